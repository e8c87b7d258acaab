package service

import (
	"context"
	"sync"

	"github.com/JoshH2S/tuterra-sub001/internal/model"
)

// Event 推送给用户的消息事件
type Event struct {
	UserID  string
	Message model.ScheduledMessage
}

// EventBus 进程内按用户分发的事件总线
// 传输方式（SSE、轮询）由 HTTP 层决定，总线本身不感知
type EventBus struct {
	mu   sync.RWMutex
	next uint64
	subs map[string]map[uint64]func(Event)
}

// NewEventBus 创建事件总线
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[string]map[uint64]func(Event))}
}

// Subscribe 订阅用户事件，返回取消订阅函数（可重复调用）
// fn 在发布方的 goroutine 中同步执行，不应阻塞
func (b *EventBus) Subscribe(userID string, fn func(Event)) func() {
	b.mu.Lock()
	b.next++
	id := b.next
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[uint64]func(Event))
	}
	b.subs[userID][id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[userID], id)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
		})
	}
}

// Publish 向用户的全部订阅者分发事件，返回接收者数量
func (b *EventBus) Publish(ev Event) int {
	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.subs[ev.UserID]))
	for _, fn := range b.subs[ev.UserID] {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
	return len(handlers)
}

// Subscribers 当前订阅者数量
func (b *EventBus) Subscribers(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}

// Deliver 实现 Deliverer：消息已落库，无在线订阅者时由轮询接口补齐
func (b *EventBus) Deliver(ctx context.Context, msg *model.ScheduledMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.Publish(Event{UserID: msg.UserID, Message: *msg})
	return nil
}
