package clock

import (
	"sync"
	"time"
)

// Clock 时间来源；业务代码只通过它取当前时间，便于测试注入
type Clock interface {
	Now() time.Time
}

// Real 系统时钟
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fake 可手动推进的测试时钟
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake 创建停在 t 的测试时钟
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance 将时钟向前推进 d
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Set 将时钟设置为 t
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}
