package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/JoshH2S/tuterra-sub001/internal/dto"
	"github.com/JoshH2S/tuterra-sub001/internal/service"
	"github.com/JoshH2S/tuterra-sub001/pkg/response"
)

// SupervisorHandler 导师消息模块 HTTP 处理器
type SupervisorHandler struct {
	supervisorSvc service.SupervisorService
}

// NewSupervisorHandler 创建 SupervisorHandler
func NewSupervisorHandler(supervisorSvc service.SupervisorService) *SupervisorHandler {
	return &SupervisorHandler{supervisorSvc: supervisorSvc}
}

// Handle 执行导师动作
// POST /api/v1/supervisor
func (h *SupervisorHandler) Handle(c *gin.Context) {
	var req dto.SupervisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	ac, ok := MustGetAuth(c)
	if !ok {
		return
	}

	result, err := h.supervisorSvc.Handle(c.Request.Context(), ac, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}
