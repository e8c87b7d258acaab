// Package ratelimit 提供按 key 划分、时钟可注入的令牌桶限流器。
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JoshH2S/tuterra-sub001/pkg/clock"
)

// Limiter 按 key 维护独立令牌桶
// 每 interval 补充一个令牌，桶容量为 burst
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	every    rate.Limit
	interval time.Duration
	burst    int
	clock    clock.Clock
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New 创建限流器；clk 为 nil 时使用系统时钟
func New(interval time.Duration, burst int, clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.Real{}
	}
	if burst <= 0 {
		burst = 1
	}
	every := rate.Inf
	if interval > 0 {
		every = rate.Every(interval)
	}
	return &Limiter{
		buckets:  make(map[string]*bucket),
		every:    every,
		interval: interval,
		burst:    burst,
		clock:    clk,
	}
}

// NewCooldown 创建冷却窗口限流器：同一 key 在 cooldown 内仅允许一次
func NewCooldown(cooldown time.Duration, clk clock.Clock) *Limiter {
	return New(cooldown, 1, clk)
}

// Allow 在当前时钟时间尝试消耗一个令牌
func (l *Limiter) Allow(key string) bool {
	ok, _ := l.Reserve(key)
	return ok
}

// Reserve 尝试消耗一个令牌；被拒绝时返回需等待的时长
func (l *Limiter) Reserve(key string) (bool, time.Duration) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, l.interval
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Sweep 清理 idle 时长内未使用的桶，返回清理数量
func (l *Limiter) Sweep(idle time.Duration) int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > idle {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}
