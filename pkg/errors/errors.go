package errors

import "errors"

// 跨存储共享错误，服务层用 errors.Is 判定

var (
	// ErrReferentialGap 图复制时父节点尚未复制：依赖顺序被破坏，整个实体类别的复制失败
	ErrReferentialGap = errors.New("父节点不存在，违反复制依赖顺序")

	// ErrPartitionCreate 分区创建失败，仅对触发它的写入致命
	ErrPartitionCreate = errors.New("创建考勤分区失败")

	// ErrPublishFailed 文档快照发布失败，已发布的集合保持不变
	ErrPublishFailed = errors.New("发布文档快照失败")
)
