package timeline

import (
	"strings"
	"time"
)

// DateLayout 开始日期格式
const DateLayout = "2006-01-02"

// VisibleAfter 任务对学生可见的时间
// 前两个任务从开始日即可见，之后每两个任务推迟一周：start + floor((order-1)/2) 周
func VisibleAfter(order int, start time.Time) time.Time {
	start = DateOf(start)
	if order <= MaxTasksPerWeek {
		return start
	}
	return start.Add(time.Duration((order-1)/MaxTasksPerWeek) * week)
}

// IsVisible 任务在 now 时是否可见
func IsVisible(visibleAfter, now time.Time) bool {
	return !now.Before(visibleAfter)
}

// ParseStartDate 解析开始日期，接受 YYYY-MM-DD 与 RFC3339
// 无法解析时回退到 now 当天，ok 返回 false
func ParseStartDate(raw string, now time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return DateOf(t), true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return DateOf(t), true
	}
	return DateOf(now), false
}
