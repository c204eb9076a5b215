package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"academic-mesh/backend/internal/bootstrap"
)

// NewReplicateCommand 图存储全量复制
func NewReplicateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replicate",
		Short: "将关系库全部实体与关系幂等复制到图存储",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				result, err := app.Service.Replication.Run(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "图复制失败", err)
				}
				return formatter(cmd, opts).Success(result, func(w io.Writer) {
					fmt.Fprintf(w, "图复制完成 run=%s\n", result.RunID)
					for _, k := range result.Stats.Kinds {
						fmt.Fprintf(w, "  L%d %-12s %6d 行 %s\n", k.Level, k.Label, k.Rows, k.Duration)
					}
					fmt.Fprintf(w, "共 %d 行，耗时 %s；图中节点 %d 关系 %d\n",
						result.Stats.Rows, result.Stats.Duration, result.Counts.Nodes, result.Counts.Edges)
				})
			})
		},
	}
}

// NewSnapshotCommand 变更流文档快照
func NewSnapshotCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "回放变更流并整体替换文档存储中的大学快照",
		Long: `从最早偏移回放变更流，构建大学→学院→系→专业嵌套文档后整体替换集合。
流读取出错时不发布；Ctrl-C 视为正常停止，已回放的状态仍会发布。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				result, err := app.Service.Snapshot.Rebuild(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "文档快照失败", err)
				}
				return formatter(cmd, opts).Success(result, func(w io.Writer) {
					fmt.Fprintf(w, "文档快照已发布 run=%s 大学 %d\n", result.RunID, result.Universities)
					fmt.Fprintf(w, "消息 %d 应用 %d 丢弃 %d 停止原因 %s\n",
						result.Consume.Messages, result.Consume.Applied, result.Consume.Dropped, result.Consume.StopReason)
					fmt.Fprintf(w, "学院 %d 系 %d 专业 %d\n",
						result.Cache.Institutes, result.Cache.Departments, result.Cache.Specialties)
				})
			})
		},
	}
}

// NewCacheStudentsCommand 刷新学生缓存
func NewCacheStudentsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cache-students",
		Short: "将全部学生档案写入 Redis 缓存",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				n, err := app.Service.Student.SyncCache(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "刷新学生缓存失败", err)
				}
				return formatter(cmd, opts).Success(map[string]int{"students": n}, func(w io.Writer) {
					fmt.Fprintf(w, "已缓存 %d 名学生\n", n)
				})
			})
		},
	}
}
