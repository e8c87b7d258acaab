package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVisibleAfter(t *testing.T) {
	assert.Equal(t, monday, VisibleAfter(1, monday))
	assert.Equal(t, monday, VisibleAfter(2, monday))
	assert.Equal(t, monday.AddDate(0, 0, 7), VisibleAfter(3, monday))
	assert.Equal(t, monday.AddDate(0, 0, 7), VisibleAfter(4, monday))
	assert.Equal(t, monday.AddDate(0, 0, 14), VisibleAfter(5, monday))
}

func TestVisibleAfter_Monotonic(t *testing.T) {
	prev := VisibleAfter(1, monday)
	for order := 2; order <= 24; order++ {
		cur := VisibleAfter(order, monday)
		assert.False(t, cur.Before(prev), "order=%d 可见时间回退", order)
		prev = cur
	}
}

func TestIsVisible(t *testing.T) {
	at := monday.AddDate(0, 0, 7)
	assert.False(t, IsVisible(at, at.Add(-time.Second)))
	assert.True(t, IsVisible(at, at))
}

func TestParseStartDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 17, 30, 0, 0, time.UTC)

	got, ok := ParseStartDate("2024-01-01", now)
	assert.True(t, ok)
	assert.Equal(t, monday, got)

	got, ok = ParseStartDate("2024-01-01T10:00:00Z", now)
	assert.True(t, ok)
	assert.Equal(t, monday, got)

	got, ok = ParseStartDate("next tuesday", now)
	assert.False(t, ok)
	assert.Equal(t, date(2024, 6, 1), got, "无法解析时回退到当天")
}
