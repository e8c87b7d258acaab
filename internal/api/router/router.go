package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/JoshH2S/tuterra-sub001/config"
	"github.com/JoshH2S/tuterra-sub001/internal/api/handler"
	"github.com/JoshH2S/tuterra-sub001/internal/api/middleware"
	"github.com/JoshH2S/tuterra-sub001/pkg/jwt"
	"github.com/JoshH2S/tuterra-sub001/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	handler.RegisterValidatorTags()

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── API v1（全部需要认证） ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr, rdb))
	v1.Use(middleware.RateLimit(rdb, cfg.RateLimit.GlobalLimit, cfg.RateLimit.GlobalWindow))
	{
		v1.POST("/auth/logout", h.Auth.Logout)

		// 实习会话模块
		internships := v1.Group("/internships")
		{
			internships.POST("", h.Internship.CreateInternship)
			internships.GET("", h.Internship.ListInternships)
			internships.GET("/:id", h.Internship.GetInternship)
			internships.GET("/:id/tasks", h.Internship.ListTasks)
			internships.POST("/:id/tasks/:task_id/start", h.Internship.StartTask)
			internships.POST("/:id/tasks/:task_id/submit", h.Internship.SubmitDeliverable)
			internships.POST("/:id/tasks/:task_id/reopen", h.Internship.ReopenTask)
			internships.GET("/:id/export", h.Export.ExportTimeline)
		}

		// 导师消息模块
		v1.POST("/supervisor", h.Supervisor.Handle)

		// 面试题模块
		v1.POST("/interview-questions", h.Interview.GenerateQuestions)

		// 通知模块
		notifications := v1.Group("/notifications")
		{
			notifications.GET("", h.Notification.ListNotifications)
			notifications.GET("/stream", h.Notification.Stream)
		}
	}

	return r
}
