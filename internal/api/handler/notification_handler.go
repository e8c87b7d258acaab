package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JoshH2S/tuterra-sub001/internal/dto"
	"github.com/JoshH2S/tuterra-sub001/internal/service"
	"github.com/JoshH2S/tuterra-sub001/pkg/response"
)

// 单个连接的待推送缓冲，写满时丢弃，客户端通过轮询补齐
const streamBuffer = 32

// NotificationHandler 通知模块 HTTP 处理器
type NotificationHandler struct {
	notificationSvc service.NotificationService
	heartbeat       time.Duration
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notificationSvc service.NotificationService, heartbeat time.Duration) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc, heartbeat: heartbeat}
}

// ListNotifications 轮询已发送消息
// GET /api/v1/notifications?since=RFC3339&limit=50
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	var req dto.NotificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	var since time.Time
	if req.Since != "" {
		t, err := time.Parse(time.RFC3339, req.Since)
		if err != nil {
			response.BadRequest(c, msgValidationFailed, []response.FieldError{{
				Field:   "since",
				Rule:    "rfc3339",
				Message: "since must be an RFC3339 timestamp",
			}})
			return
		}
		since = t
	}

	ac, ok := MustGetAuth(c)
	if !ok {
		return
	}

	msgs, err := h.notificationSvc.List(c.Request.Context(), ac, since, req.Limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": msgs})
}

// Stream 实时推送（Server-Sent Events）
// GET /api/v1/notifications/stream
func (h *NotificationHandler) Stream(c *gin.Context) {
	ac, ok := MustGetAuth(c)
	if !ok {
		return
	}

	events := make(chan dto.MessageResponse, streamBuffer)
	unsubscribe := h.notificationSvc.Subscribe(ac, func(m dto.MessageResponse) {
		select {
		case events <- m:
		default:
		}
	})
	defer unsubscribe()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case m := <-events:
			c.SSEvent("message", m)
			return true
		case <-ticker.C:
			// 长连接期间令牌过期或被注销则断开
			if err := ac.Refresh(ctx); err != nil {
				c.SSEvent("error", gin.H{"error": "session expired"})
				return false
			}
			c.SSEvent("ping", gin.H{"time": time.Now().UTC().Format(time.RFC3339)})
			return true
		}
	})
}
