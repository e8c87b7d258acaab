package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/JoshH2S/tuterra-sub001/config"
	"github.com/JoshH2S/tuterra-sub001/internal/model"
	"github.com/JoshH2S/tuterra-sub001/internal/repository"
	"github.com/JoshH2S/tuterra-sub001/pkg/clock"
)

const (
	dispatchRunTimeout = 5 * time.Minute
	maintenanceSpec    = "@every 1h"
)

// Deliverer 消息投递通道
type Deliverer interface {
	Deliver(ctx context.Context, msg *model.ScheduledMessage) error
}

// GapGuard 同一范围两次派发之间的最小间隔锁
// 返回 false 表示间隔内已有派发，本次跳过
type GapGuard interface {
	AcquireGap(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// DispatchResult 一次派发的统计
type DispatchResult struct {
	Processed int  `json:"processed"`
	Failed    int  `json:"failed"`
	Skipped   int  `json:"skipped"`
	Throttled bool `json:"throttled"`
}

// DispatchService 计划消息派发业务接口
type DispatchService interface {
	// ProcessDue 发送范围内所有到期的 pending 消息
	ProcessDue(ctx context.Context, scope repository.MessageScope) (*DispatchResult, error)
	// Start 启动定时派发
	Start() error
	// Stop 停止定时派发，等待进行中的任务结束
	Stop(ctx context.Context)
}

type dispatchService struct {
	cfg       *config.SchedulerConfig
	repo      *repository.Repository
	deliverer Deliverer
	guard     GapGuard
	clock     clock.Clock
	logger    *zap.Logger

	mu          sync.Mutex
	cron        *cron.Cron
	maintenance []func()
}

func newDispatchService(
	cfg *config.SchedulerConfig,
	repo *repository.Repository,
	deliverer Deliverer,
	guard GapGuard,
	clk clock.Clock,
	logger *zap.Logger,
) *dispatchService {
	if guard == nil {
		guard = newMemoryGapGuard(clk)
	}
	return &dispatchService{
		cfg:       cfg,
		repo:      repo,
		deliverer: deliverer,
		guard:     guard,
		clock:     clk,
		logger:    logger,
	}
}

// ════════════════════════════════════════════════════════════
// ProcessDue
// ════════════════════════════════════════════════════════════
//
// 每条消息先以 WHERE status='pending' 条件更新认领为 sending，认领成功才投递，
// 重叠的派发不会重复发送。

func (s *dispatchService) ProcessDue(ctx context.Context, scope repository.MessageScope) (*DispatchResult, error) {
	result := &DispatchResult{}

	if s.cfg.DispatchMinGap > 0 {
		ok, err := s.guard.AcquireGap(ctx, scopeKey(scope), s.cfg.DispatchMinGap)
		if err != nil {
			// 锁不可用时继续派发，认领保证不重复
			s.logger.Warn("获取派发间隔锁失败", zap.Error(err))
		} else if !ok {
			result.Throttled = true
			return result, nil
		}
	}

	now := s.clock.Now()
	msgs, err := s.repo.ScheduledMessage.ListDue(ctx, scope, now, s.cfg.DispatchBatchSize)
	if err != nil {
		s.logger.Error("查询待发送消息失败", zap.Error(err))
		return nil, err
	}

	for i := range msgs {
		msg := &msgs[i]
		// 先认领再投递，被其他派发认领的消息直接跳过
		claimed, err := s.repo.ScheduledMessage.Claim(ctx, msg.MessageID)
		if err != nil {
			s.logger.Error("认领消息出错", zap.String("message_id", msg.MessageID), zap.Error(err))
			result.Skipped++
			continue
		}
		if !claimed {
			result.Skipped++
			continue
		}

		// 推送给订阅方的是发送后的状态
		sentAt := now
		msg.Status, msg.SentAt = model.MessageStatusSent, &sentAt
		if err := s.deliverer.Deliver(ctx, msg); err != nil {
			s.logger.Warn("消息投递失败", zap.String("message_id", msg.MessageID), zap.String("type", msg.Type), zap.Error(err))
			if _, uerr := s.repo.ScheduledMessage.MarkFailed(ctx, msg.MessageID, err.Error()); uerr != nil {
				s.logger.Error("标记消息失败状态出错", zap.String("message_id", msg.MessageID), zap.Error(uerr))
			}
			result.Failed++
			continue
		}

		if _, err := s.repo.ScheduledMessage.MarkSent(ctx, msg.MessageID, now); err != nil {
			// 已投递，只是状态未落库
			s.logger.Error("标记消息已发送出错", zap.String("message_id", msg.MessageID), zap.Error(err))
		}
		result.Processed++
	}

	if len(msgs) > 0 {
		s.logger.Info("计划消息派发完成",
			zap.String("scope", scopeKey(scope)),
			zap.Int("processed", result.Processed),
			zap.Int("failed", result.Failed),
			zap.Int("skipped", result.Skipped),
		)
	}
	return result, nil
}

// scopeKey 派发范围的锁键
func scopeKey(scope repository.MessageScope) string {
	parts := []string{"global"}
	if scope.SessionID != "" {
		parts = append(parts, "session:"+scope.SessionID)
	}
	if scope.UserID != "" {
		parts = append(parts, "user:"+scope.UserID)
	}
	if scope.TypePrefix != "" {
		parts = append(parts, "type:"+scope.TypePrefix)
	}
	return strings.Join(parts, "|")
}

// ════════════════════════════════════════════════════════════
// 定时派发
// ════════════════════════════════════════════════════════════

func (s *dispatchService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger), cron.Recover(cron.DiscardLogger)))
	_, err := c.AddFunc(s.cfg.DispatchSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchRunTimeout)
		defer cancel()
		if _, err := s.ProcessDue(ctx, repository.MessageScope{}); err != nil {
			s.logger.Error("定时派发失败", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	for _, fn := range s.maintenance {
		if _, err := c.AddFunc(maintenanceSpec, fn); err != nil {
			return err
		}
	}

	c.Start()
	s.cron = c
	s.logger.Info("定时派发已启动", zap.String("spec", s.cfg.DispatchSpec))
	return nil
}

func (s *dispatchService) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}

	select {
	case <-c.Stop().Done():
		s.logger.Info("定时派发已停止")
	case <-ctx.Done():
		s.logger.Warn("等待定时派发结束超时")
	}
}

// ════════════════════════════════════════════════════════════
// 进程内间隔锁（无 Redis 时使用）
// ════════════════════════════════════════════════════════════

type memoryGapGuard struct {
	mu    sync.Mutex
	clock clock.Clock
	until map[string]time.Time
}

func newMemoryGapGuard(clk clock.Clock) *memoryGapGuard {
	return &memoryGapGuard{clock: clk, until: make(map[string]time.Time)}
}

func (g *memoryGapGuard) AcquireGap(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	if until, ok := g.until[key]; ok && now.Before(until) {
		return false, nil
	}
	g.until[key] = now.Add(ttl)

	// 顺带清理过期键
	for k, until := range g.until {
		if !now.Before(until) {
			delete(g.until, k)
		}
	}
	return true, nil
}
