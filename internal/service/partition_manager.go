package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"academic-mesh/backend/internal/calendar"
	"academic-mesh/backend/internal/repository"
	pkgerrors "academic-mesh/backend/pkg/errors"
)

// PartitionManager 考勤分区管理：写入前按需创建学期分区
type PartitionManager interface {
	// EnsurePartition 幂等；并发调用同一分桶只会触发一次 DDL
	EnsurePartition(ctx context.Context, key calendar.BucketKey) error
	// ListPartitions 已存在物理分区的分桶
	ListPartitions(ctx context.Context) ([]calendar.BucketKey, error)
}

type partitionManager struct {
	repo   *repository.Repository
	logger *zap.Logger

	flight singleflight.Group
	known  sync.Map // calendar.BucketKey → struct{}
}

// NewPartitionManager 创建 PartitionManager 实例
func NewPartitionManager(repo *repository.Repository, logger *zap.Logger) PartitionManager {
	return &partitionManager{repo: repo, logger: logger}
}

func (m *partitionManager) EnsurePartition(ctx context.Context, key calendar.BucketKey) error {
	if _, ok := m.known.Load(key); ok {
		return nil
	}

	bucket := key.String()
	// 合并后的调用共享第一个调用方的 ctx
	_, err, shared := m.flight.Do(bucket, func() (interface{}, error) {
		if _, ok := m.known.Load(key); ok {
			return nil, nil
		}
		if err := m.repo.Partition.Create(ctx, bucket); err != nil {
			return nil, err
		}
		m.known.Store(key, struct{}{})
		return nil, nil
	})
	if err != nil {
		// 失败不写入 known，下次调用重新尝试
		m.logger.Error("创建考勤分区失败",
			zap.String("bucket", bucket),
			zap.Bool("shared", shared),
			zap.Error(err),
		)
		return fmt.Errorf("%w %s: %w", pkgerrors.ErrPartitionCreate, key.PartitionTable(), err)
	}
	return nil
}

func (m *partitionManager) ListPartitions(ctx context.Context) ([]calendar.BucketKey, error) {
	names, err := m.repo.Partition.List(ctx)
	if err != nil {
		m.logger.Error("查询考勤分区失败", zap.Error(err))
		return nil, err
	}

	keys := make([]calendar.BucketKey, 0, len(names))
	for _, name := range names {
		key, err := calendar.ParseBucketKey(name)
		if err != nil {
			m.logger.Warn("忽略无法识别的分区", zap.String("partition", name))
			continue
		}
		m.known.Store(key, struct{}{})
		keys = append(keys, key)
	}
	return keys, nil
}
