// Package timeline 实现实习时间线的纯计算逻辑：
// 周次分桶、任务重分配、可见性闸门与消息时间偏移。
// 包内函数不做 I/O，所有时间参数都由调用方传入。
package timeline

import (
	"time"
)

const (
	// MaxTasksPerWeek 每周任务上限
	MaxTasksPerWeek = 2
	// MinTasksPerWeek 每周任务下限
	MinTasksPerWeek = 1

	day  = 24 * time.Hour
	week = 7 * day
)

// Window 实习时间窗口 [Start, Start + 7×Weeks 天]，两端均包含
type Window struct {
	Start time.Time
	Weeks int
}

// NewWindow 以 start 所在日期（UTC 零点）为起点构造窗口
// weeks 小于 1 时按 1 处理
func NewWindow(start time.Time, weeks int) Window {
	if weeks < 1 {
		weeks = 1
	}
	return Window{Start: DateOf(start), Weeks: weeks}
}

// DateOf 截断到 UTC 日期
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// End 窗口结束日期
func (w Window) End() time.Time {
	return w.Start.AddDate(0, 0, 7*w.Weeks)
}

// Contains 日期是否落在窗口内（含两端）
func (w Window) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(w.Start) && !d.After(w.End())
}

// ClampWeek 将周次限制在 [1, Weeks]
func (w Window) ClampWeek(n int) int {
	if n < 1 {
		return 1
	}
	if n > w.Weeks {
		return w.Weeks
	}
	return n
}

// WeekStart 第 n 周第一天
func (w Window) WeekStart(n int) time.Time {
	return w.Start.AddDate(0, 0, 7*(w.ClampWeek(n)-1))
}

// WeekEnd 第 n 周最后一天，每周恰好 7 天
func (w Window) WeekEnd(n int) time.Time {
	return w.WeekStart(n).AddDate(0, 0, 6)
}

// LastDay 最后一周的最后一天，即 End 前一天
func (w Window) LastDay() time.Time {
	return w.End().AddDate(0, 0, -1)
}

// WeekContaining 日期所在周次，超出窗口时截断到边界周
func (w Window) WeekContaining(t time.Time) int {
	d := DateOf(t)
	days := int(d.Sub(w.Start) / day)
	if days < 0 {
		return 1
	}
	return w.ClampWeek(days/7 + 1)
}

// WeekdayOf 第 n 周内首个 weekday（含周首日）
func (w Window) WeekdayOf(n int, weekday time.Weekday) time.Time {
	ws := w.WeekStart(n)
	offset := (int(weekday) - int(ws.Weekday()) + 7) % 7
	return w.clampEnd(ws.AddDate(0, 0, offset))
}

// FridayOf 第 n 周的周五
func (w Window) FridayOf(n int) time.Time { return w.WeekdayOf(n, time.Friday) }

// TuesdayOf 第 n 周的周二
func (w Window) TuesdayOf(n int) time.Time { return w.WeekdayOf(n, time.Tuesday) }

// clampEnd 晚于最后一周的日期截断到 LastDay；窗口结束日本身也归入最后一周
func (w Window) clampEnd(t time.Time) time.Time {
	if last := w.LastDay(); t.After(last) {
		return last
	}
	return t
}

// WeekOfOrder 任务序号（从 1 开始）对应的周次：ceil(order/2)，截断到 [1, Weeks]
func (w Window) WeekOfOrder(order int) int {
	if order < 1 {
		order = 1
	}
	return w.ClampWeek((order + MaxTasksPerWeek - 1) / MaxTasksPerWeek)
}

// DueDateFor 计算任务截止日期
// supplied 在窗口内时保留（截断到日期，结束日归入最后一周）；否则丢弃并按序号所在周的周五重算
func (w Window) DueDateFor(order int, supplied *time.Time) time.Time {
	if supplied != nil && w.Contains(*supplied) {
		return w.clampEnd(DateOf(*supplied))
	}
	return w.FridayOf(w.WeekOfOrder(order))
}
