package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"academic-mesh/backend/config"
	"academic-mesh/backend/internal/api/handler"
	"academic-mesh/backend/internal/api/router"
	"academic-mesh/backend/internal/bootstrap"
	"academic-mesh/backend/pkg/jwt"
	applogger "academic-mesh/backend/pkg/logger"
)

func main() {
	// 0. 本地开发时从 .env 注入环境变量（文件不存在则忽略）
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("ACADEMIC_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log, "server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接各存储并组装 Repository → Service
	app, err := bootstrap.Open(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("初始化存储失败", zap.Error(err))
	}
	defer app.Close()

	// 4. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 5. Handler 与路由
	h := handler.NewHandler(app.Service)
	engine := router.Setup(cfg, h, jwtMgr, app.Redis, logger)

	// 6. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // 同步作业在请求内执行
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 7. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	logger.Info("服务器已关闭")
}
