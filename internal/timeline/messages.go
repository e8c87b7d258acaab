package timeline

import (
	"math"
	"math/rand"
	"regexp"
	"sort"
	"time"
)

var managerRolePattern = regexp.MustCompile(`(?i)manager|lead|director|head|supervisor`)

// IsManagerRole 角色名是否属于管理者语气
func IsManagerRole(role string) bool {
	return managerRolePattern.MatchString(role)
}

// ShouldCheckIn 是否需要发送阶段性问候
// 仍有未完成任务，且从未问候或距上次问候已超过 interval
func ShouldCheckIn(lastCheckIn *time.Time, now time.Time, interval time.Duration, hasIncomplete bool) bool {
	if !hasIncomplete {
		return false
	}
	if lastCheckIn == nil {
		return true
	}
	return now.Sub(*lastCheckIn) >= interval
}

// DaysUntil 距截止日的天数（按日期计算，可为负）
func DaysUntil(due, now time.Time) int {
	return int(math.Round(DateOf(due).Sub(DateOf(now)).Hours() / 24))
}

// ReminderDue 截止日是否落在提醒窗口内：0 ≤ due - today ≤ window
func ReminderDue(due, now time.Time, window time.Duration) bool {
	diff := DateOf(due).Sub(DateOf(now))
	return diff >= 0 && diff <= window
}

// ReminderTime 提醒发送时间：max(now, due - lead)
func ReminderTime(due, now time.Time, lead time.Duration) time.Time {
	at := DateOf(due).Add(-lead)
	if at.Before(now) {
		return now
	}
	return at
}

// TeamIntroOffsets 团队成员自我介绍的发送偏移
// 第 i 个成员基准为 window*(i+1)/(n+1)，叠加 [-jitter, +jitter] 抖动，
// 结果限制在 [0, window] 内并升序返回
func TeamIntroOffsets(n int, window, jitter time.Duration, rnd *rand.Rand) []time.Duration {
	if n <= 0 {
		return nil
	}
	offsets := make([]time.Duration, n)
	for i := 0; i < n; i++ {
		base := window * time.Duration(i+1) / time.Duration(n+1)
		offsets[i] = clampDuration(base+jitterOf(jitter, rnd), 0, window)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	return offsets
}

// InteractionDelay 团队互动消息延迟，均匀分布于 [min, max]
func InteractionDelay(min, max time.Duration, rnd *rand.Rand) time.Duration {
	if max <= min || rnd == nil {
		return min
	}
	return min + time.Duration(rnd.Int63n(int64(max-min)+1))
}

func jitterOf(jitter time.Duration, rnd *rand.Rand) time.Duration {
	if jitter <= 0 || rnd == nil {
		return 0
	}
	return time.Duration(rnd.Int63n(int64(2*jitter)+1)) - jitter
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
