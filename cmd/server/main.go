package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JoshH2S/tuterra-sub001/config"
	"github.com/JoshH2S/tuterra-sub001/internal/api/handler"
	"github.com/JoshH2S/tuterra-sub001/internal/api/router"
	"github.com/JoshH2S/tuterra-sub001/internal/repository"
	"github.com/JoshH2S/tuterra-sub001/internal/service"
	"github.com/JoshH2S/tuterra-sub001/pkg/clock"
	"github.com/JoshH2S/tuterra-sub001/pkg/database"
	"github.com/JoshH2S/tuterra-sub001/pkg/jwt"
	"github.com/JoshH2S/tuterra-sub001/pkg/llm"
	applogger "github.com/JoshH2S/tuterra-sub001/pkg/logger"
	"github.com/JoshH2S/tuterra-sub001/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("dispatch_enabled", cfg.Scheduler.DispatchEnabled),
	)

	// 3. 连接数据库并执行迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：失败时降级为进程内限流与间隔锁，令牌注销不可用）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，降级运行", zap.Error(err))
		rdb = nil
	}

	// 5. JWT 与内容生成客户端
	jwtMgr := jwt.NewManager(&cfg.Auth)
	gen := llm.NewClient(&cfg.LLM, logger)
	if !gen.Configured() {
		logger.Warn("未配置内容生成服务，创建实习会话将不可用")
	}

	// 6. 依赖注入: Repository → Service → Handler
	var guard service.GapGuard
	if rdb != nil {
		guard = rdb
	}
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, gen, guard, clock.Real{}, logger)
	h := handler.NewHandler(svc)

	// 7. 定时派发
	if cfg.Scheduler.DispatchEnabled {
		if err := svc.Dispatch.Start(); err != nil {
			logger.Fatal("启动定时派发失败", zap.Error(err))
		}
	}

	// 8. 初始化路由并启动 HTTP 服务器
	// 通知推送为 SSE 长连接，不设置 WriteTimeout
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     engine,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	svc.Dispatch.Stop(ctx)

	if err := sqlDB.Close(); err != nil {
		logger.Error("关闭数据库连接失败", zap.Error(err))
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("关闭 Redis 连接失败", zap.Error(err))
		}
	}

	logger.Info("服务器已关闭")
}
