package timeline

import (
	"fmt"
	"sort"
	"time"
)

// PlannedTask 待分配任务
// DueDate、Order 为可选输入；Week 与最终 Order 由 Redistribute 填充
type PlannedTask struct {
	Title       string
	Description string
	DueDate     *time.Time
	Order       int
	Week        int
	Placeholder bool

	seq int
}

// PlaceholderFunc 为空周生成占位任务
type PlaceholderFunc func(week int) PlannedTask

// DefaultPlaceholder 通用占位任务
func DefaultPlaceholder(week int) PlannedTask {
	return PlannedTask{
		Title:       fmt.Sprintf("Week %d: Progress Report", week),
		Description: "Summarize what you worked on this week, the blockers you hit, and your plan for next week. Share it with your supervisor.",
	}
}

// Redistribute 将任务分配到各周，保证每周 1–2 个任务
//
//  1. 超过 2×Weeks 的部分先截断（优先丢弃无有效日期的任务）
//  2. 有效日期任务按日期入桶；日期越界但带序号的任务按序号重算日期后入桶
//  3. 桶已满的任务退回无日期池
//  4. 空周从无日期池取一个（池空则生成占位任务），截止日为该周周五
//  5. 剩余无日期任务轮流放入任务最少且未满的周，截止日为该周周二
//
// 输出按（周次, 截止日, 输入顺序）排序，Order 从 1 重新编号。
func Redistribute(tasks []PlannedTask, w Window, placeholder PlaceholderFunc) []PlannedTask {
	if placeholder == nil {
		placeholder = DefaultPlaceholder
	}

	input := make([]PlannedTask, len(tasks))
	for i, t := range tasks {
		t.seq = i
		t.Placeholder = false
		t.Week = 0
		input[i] = t
	}
	sort.SliceStable(input, func(i, j int) bool {
		return orderKey(input[i]) < orderKey(input[j])
	})

	// 拆分有效日期 / 无日期
	var dated, undated []PlannedTask
	for _, t := range input {
		switch {
		case t.DueDate != nil && w.Contains(*t.DueDate):
			d := w.clampEnd(DateOf(*t.DueDate))
			t.DueDate = &d
			dated = append(dated, t)
		case t.DueDate != nil && t.Order > 0:
			d := w.DueDateFor(t.Order, nil)
			t.DueDate = &d
			dated = append(dated, t)
		default:
			t.DueDate = nil
			undated = append(undated, t)
		}
	}

	dated, undated = truncate(dated, undated, MaxTasksPerWeek*w.Weeks)

	buckets := make([][]PlannedTask, w.Weeks+1)

	for _, t := range dated {
		wk := w.WeekContaining(*t.DueDate)
		if len(buckets[wk]) >= MaxTasksPerWeek {
			t.DueDate = nil
			undated = append(undated, t)
			continue
		}
		t.Week = wk
		buckets[wk] = append(buckets[wk], t)
	}

	// 空周回填
	for wk := 1; wk <= w.Weeks; wk++ {
		if len(buckets[wk]) > 0 {
			continue
		}
		var t PlannedTask
		if len(undated) > 0 {
			t, undated = undated[0], undated[1:]
		} else {
			t = placeholder(wk)
			t.Placeholder = true
			t.seq = len(tasks) + wk
		}
		d := w.FridayOf(wk)
		t.DueDate = &d
		t.Week = wk
		buckets[wk] = append(buckets[wk], t)
	}

	// 剩余任务放入最空的未满周
	for _, t := range undated {
		wk := leastFilled(buckets)
		if wk == 0 {
			break
		}
		d := w.TuesdayOf(wk)
		t.DueDate = &d
		t.Week = wk
		buckets[wk] = append(buckets[wk], t)
	}

	out := make([]PlannedTask, 0, len(tasks))
	for wk := 1; wk <= w.Weeks; wk++ {
		b := buckets[wk]
		sort.SliceStable(b, func(i, j int) bool {
			if !b[i].DueDate.Equal(*b[j].DueDate) {
				return b[i].DueDate.Before(*b[j].DueDate)
			}
			return b[i].seq < b[j].seq
		})
		out = append(out, b...)
	}
	for i := range out {
		out[i].Order = i + 1
	}
	return out
}

// orderKey 有序号的任务排在前面，其余保持输入顺序
func orderKey(t PlannedTask) int {
	if t.Order > 0 {
		return t.Order
	}
	return 1 << 20
}

func truncate(dated, undated []PlannedTask, max int) ([]PlannedTask, []PlannedTask) {
	total := len(dated) + len(undated)
	if total <= max {
		return dated, undated
	}
	excess := total - max
	if excess <= len(undated) {
		return dated, undated[:len(undated)-excess]
	}
	excess -= len(undated)
	return dated[:len(dated)-excess], nil
}

// leastFilled 返回任务最少且未满的周次（并列取较早周），全部已满返回 0
func leastFilled(buckets [][]PlannedTask) int {
	best := 0
	for wk := 1; wk < len(buckets); wk++ {
		if len(buckets[wk]) >= MaxTasksPerWeek {
			continue
		}
		if best == 0 || len(buckets[wk]) < len(buckets[best]) {
			best = wk
		}
	}
	return best
}
