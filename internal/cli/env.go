package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"academic-mesh/backend/config"
	"academic-mesh/backend/internal/bootstrap"
	applogger "academic-mesh/backend/pkg/logger"
)

func loadConfig(opts *RootOptions) (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "加载配置失败", err)
	}
	return cfg, nil
}

// withApp 连接全部存储后执行 fn；收到 SIGINT/SIGTERM 时取消 ctx
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, app *bootstrap.App) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := applogger.NewLogger(&cfg.Log, "syncctl")
	if err != nil {
		return WrapExitError(ExitCommandError, "初始化日志失败", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("初始化存储失败", zap.Error(err))
		return WrapExitError(ExitFailure, "初始化存储失败", err)
	}
	defer app.Close()

	return fn(ctx, app)
}

func formatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}
