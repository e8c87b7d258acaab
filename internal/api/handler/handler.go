package handler

import (
	"time"

	"github.com/JoshH2S/tuterra-sub001/internal/service"
)

// 实时推送心跳间隔，每次心跳重新校验令牌
const defaultHeartbeat = 25 * time.Second

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Internship   *InternshipHandler
	Supervisor   *SupervisorHandler
	Interview    *InterviewHandler
	Notification *NotificationHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(),
		Internship:   NewInternshipHandler(svc.Internship),
		Supervisor:   NewSupervisorHandler(svc.Supervisor),
		Interview:    NewInterviewHandler(svc.Interview),
		Notification: NewNotificationHandler(svc.Notification, defaultHeartbeat),
		Export:       NewExportHandler(svc.Export),
	}
}
