package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/JoshH2S/tuterra-sub001/internal/auth"
	"github.com/JoshH2S/tuterra-sub001/pkg/jwt"
	"github.com/JoshH2S/tuterra-sub001/pkg/redis"
	"github.com/JoshH2S/tuterra-sub001/pkg/response"
)

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取令牌，构造认证上下文注入 gin.Context
// rdb 为 nil 时跳过黑名单检查
func JWTAuth(jwtMgr *jwt.Manager, rdb *redis.Client) gin.HandlerFunc {
	var revoker auth.Revoker
	if rdb != nil {
		revoker = rdb
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}

		ac := auth.New(jwtMgr, revoker, nil)
		if err := ac.Init(c.Request.Context(), parts[1]); err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(auth.ContextKey, ac)
		c.Next()
	}
}
