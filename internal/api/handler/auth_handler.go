package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/JoshH2S/tuterra-sub001/internal/dto"
	"github.com/JoshH2S/tuterra-sub001/pkg/response"
)

// AuthHandler 认证模块 HTTP 处理器
// 令牌由外部身份服务签发，这里只负责注销
type AuthHandler struct{}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// Logout 注销当前令牌
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	ac, ok := MustGetAuth(c)
	if !ok {
		return
	}

	if err := ac.Teardown(c.Request.Context()); err != nil {
		_ = c.Error(err)
		response.InternalError(c, "")
		return
	}

	response.OK(c, dto.SuccessResponse{Success: true})
}
