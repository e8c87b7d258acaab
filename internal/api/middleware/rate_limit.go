package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JoshH2S/tuterra-sub001/pkg/ratelimit"
	"github.com/JoshH2S/tuterra-sub001/pkg/redis"
	"github.com/JoshH2S/tuterra-sub001/pkg/response"
)

// RateLimit 速率限制中间件
// limit: 窗口内允许的最大请求数
// window: 窗口时长
// rdb 非 nil 时使用 Redis 滑动窗口（多实例共享）；为 nil 或出错时使用进程内令牌桶
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	if limit <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	local := ratelimit.New(window/time.Duration(limit), limit, nil)

	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s:%s", c.ClientIP(), c.FullPath())

		var allowed bool
		if rdb != nil {
			ok, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
			// Redis 出错时退回进程内限流
			allowed = ok
			if err != nil {
				allowed = local.Allow(key)
			}
		} else {
			allowed = local.Allow(key)
		}

		if !allowed {
			response.TooManyRequests(c, "too many requests, please slow down")
			c.Abort()
			return
		}

		c.Next()
	}
}
