package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/JoshH2S/tuterra-sub001/config"
	"github.com/JoshH2S/tuterra-sub001/internal/repository"
	"github.com/JoshH2S/tuterra-sub001/pkg/clock"
	"github.com/JoshH2S/tuterra-sub001/pkg/llm"
	applogger "github.com/JoshH2S/tuterra-sub001/pkg/logger"
	"github.com/JoshH2S/tuterra-sub001/pkg/ratelimit"
)

// 冷却记录闲置超过该时长后清理
const cooldownIdle = time.Hour

// Service 所有 Service 的聚合入口
type Service struct {
	Internship   InternshipService
	Supervisor   SupervisorService
	Dispatch     DispatchService
	Interview    InterviewService
	Notification NotificationService
	Export       ExportService
	Events       *EventBus
}

// NewService 创建 Service 聚合
// guard 为 nil 时派发间隔锁退化为进程内实现
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	gen llm.Generator,
	guard GapGuard,
	clk clock.Clock,
	logger *zap.Logger,
) *Service {
	if clk == nil {
		clk = clock.Real{}
	}

	bus := NewEventBus()
	comp := &composer{gen: gen, logger: applogger.Component(logger, "composer")}
	cooldown := ratelimit.NewCooldown(cfg.RateLimit.SessionCooldown, clk)

	dispatch := newDispatchService(&cfg.Scheduler, repo, bus, guard, clk, applogger.Component(logger, "dispatch"))
	dispatch.maintenance = append(dispatch.maintenance, func() {
		if n := cooldown.Sweep(cooldownIdle); n > 0 {
			logger.Debug("清理冷却记录", zap.Int("count", n))
		}
	})
	supervisor := newSupervisorService(&cfg.Scheduler, repo, comp, dispatch, clk, applogger.Component(logger, "supervisor"))

	return &Service{
		Internship:   newInternshipService(cfg, repo, comp, supervisor, cooldown, clk, applogger.Component(logger, "internship")),
		Supervisor:   supervisor,
		Dispatch:     dispatch,
		Interview:    newInterviewService(repo, comp, clk, applogger.Component(logger, "interview")),
		Notification: newNotificationService(repo, bus, applogger.Component(logger, "notification")),
		Export:       newExportService(repo, clk, applogger.Component(logger, "export")),
		Events:       bus,
	}
}
