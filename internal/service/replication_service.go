package service

import (
	"context"

	"go.uber.org/zap"

	"academic-mesh/backend/internal/graph"
	"academic-mesh/backend/internal/model"
	"academic-mesh/backend/internal/repository"
)

// GraphReplicator 全量图复制，*graph.Replicator 满足该接口
type GraphReplicator interface {
	ReplicateAll(ctx context.Context) (graph.ReplicationStats, error)
}

// GraphCounter 图规模统计，*graph.Reader 满足该接口
type GraphCounter interface {
	Counts(ctx context.Context) (graph.Counts, error)
}

// ReplicationResult 一次复制作业的结果
type ReplicationResult struct {
	RunID  string                 `json:"run_id,omitempty"`
	Stats  graph.ReplicationStats `json:"stats"`
	Counts graph.Counts           `json:"counts"`
}

// ReplicationService 关系库 → 图存储复制作业
type ReplicationService interface {
	Run(ctx context.Context) (*ReplicationResult, error)
}

type replicationService struct {
	repo       *repository.Repository
	replicator GraphReplicator
	counter    GraphCounter
	logger     *zap.Logger
}

// NewReplicationService 创建 ReplicationService 实例
func NewReplicationService(repo *repository.Repository, replicator GraphReplicator, counter GraphCounter, logger *zap.Logger) ReplicationService {
	return &replicationService{
		repo:       repo,
		replicator: replicator,
		counter:    counter,
		logger:     logger,
	}
}

func (s *replicationService) Run(ctx context.Context) (*ReplicationResult, error) {
	rec := startRun(ctx, s.repo, model.SyncJobGraph, s.logger)
	result := &ReplicationResult{RunID: rec.ID()}

	stats, err := s.replicator.ReplicateAll(ctx)
	result.Stats = stats
	if err != nil {
		s.logger.Error("图复制失败", zap.String("run_id", rec.ID()), zap.Error(err))
		rec.finish(ctx, result, err)
		return nil, err
	}

	counts, err := s.counter.Counts(ctx)
	if err != nil {
		// 计数只用于核对，失败不影响作业结果
		s.logger.Warn("统计图规模失败", zap.Error(err))
	}
	result.Counts = counts

	s.logger.Info("图复制完成",
		zap.String("run_id", rec.ID()),
		zap.Int("rows", stats.Rows),
		zap.Int64("nodes", counts.Nodes),
		zap.Int64("edges", counts.Edges),
		zap.Duration("duration", stats.Duration),
	)
	rec.finish(ctx, result, nil)
	return result, nil
}
