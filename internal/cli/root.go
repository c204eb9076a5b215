package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions 全局参数
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
}

// ValidFormats 支持的输出格式
var ValidFormats = []string{"text", "json"}

// NewRootCommand 创建 syncctl 根命令
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "syncctl",
		Short: "学术数据派生存储同步与报表工具",
		Long: `syncctl 在命令行执行与 HTTP 接口相同的作业：
图存储全量复制、变更流文档快照、学生缓存刷新、考勤报表以及运维 Token 签发。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("无效的输出格式 %q，可选 %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "配置文件路径（默认查找 ./config/config.yaml）")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "输出格式 (json|text)")

	cmd.AddCommand(NewReplicateCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))
	cmd.AddCommand(NewCacheStudentsCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
