package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JoshH2S/tuterra-sub001/internal/auth"
	"github.com/JoshH2S/tuterra-sub001/internal/dto"
	"github.com/JoshH2S/tuterra-sub001/internal/repository"
)

const defaultNotificationLimit = 50

// NotificationService 已发送消息查询与订阅
type NotificationService interface {
	// List 轮询：since 之后发送的消息，按发送时间倒序
	List(ctx context.Context, ac *auth.AuthContext, since time.Time, limit int) ([]dto.MessageResponse, error)
	// Subscribe 订阅实时推送，返回取消订阅函数
	Subscribe(ac *auth.AuthContext, fn func(dto.MessageResponse)) func()
}

type notificationService struct {
	repo   *repository.Repository
	bus    *EventBus
	logger *zap.Logger
}

func newNotificationService(repo *repository.Repository, bus *EventBus, logger *zap.Logger) *notificationService {
	return &notificationService{repo: repo, bus: bus, logger: logger}
}

func (s *notificationService) List(ctx context.Context, ac *auth.AuthContext, since time.Time, limit int) ([]dto.MessageResponse, error) {
	if !ac.Authenticated() {
		return nil, ErrUserMismatch
	}
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	msgs, err := s.repo.ScheduledMessage.ListSentForUser(ctx, ac.UserID, since, limit)
	if err != nil {
		s.logger.Error("查询通知失败", zap.String("user_id", ac.UserID), zap.Error(err))
		return nil, err
	}
	return toMessageResponses(msgs), nil
}

func (s *notificationService) Subscribe(ac *auth.AuthContext, fn func(dto.MessageResponse)) func() {
	return s.bus.Subscribe(ac.UserID, func(ev Event) {
		fn(ToMessageResponse(&ev.Message))
	})
}
