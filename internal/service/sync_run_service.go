package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"academic-mesh/backend/internal/dto"
	"academic-mesh/backend/internal/model"
	"academic-mesh/backend/internal/repository"
)

// SyncRunService 同步作业记录查询接口
type SyncRunService interface {
	List(ctx context.Context, q *dto.SyncRunQuery) ([]dto.SyncRunResponse, int64, error)
}

type syncRunService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSyncRunService 创建 SyncRunService 实例
func NewSyncRunService(repo *repository.Repository, logger *zap.Logger) SyncRunService {
	return &syncRunService{repo: repo, logger: logger}
}

func (s *syncRunService) List(ctx context.Context, q *dto.SyncRunQuery) ([]dto.SyncRunResponse, int64, error) {
	page, pageSize := q.Page, q.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	runs, total, err := s.repo.SyncRun.List(ctx, q.Job, (page-1)*pageSize, pageSize)
	if err != nil {
		s.logger.Error("查询同步记录失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.SyncRunResponse, 0, len(runs))
	for i := range runs {
		result = append(result, toSyncRunResponse(&runs[i]))
	}
	return result, total, nil
}

func toSyncRunResponse(run *model.SyncRun) dto.SyncRunResponse {
	resp := dto.SyncRunResponse{
		ID:        run.ID,
		Job:       run.Job,
		Status:    run.Status,
		StartedAt: run.StartedAt.Format(time.RFC3339),
		Error:     run.Error,
	}
	if run.FinishedAt != nil {
		resp.FinishedAt = run.FinishedAt.Format(time.RFC3339)
	}
	if len(run.Stats) > 0 {
		resp.Stats = json.RawMessage(run.Stats)
	}
	return resp
}

// ── 作业记录辅助 ──

// runRecorder 记录一次同步作业的起止
// 记录失败只打日志，不影响作业本身
type runRecorder struct {
	repo   *repository.Repository
	logger *zap.Logger
	run    *model.SyncRun
}

func startRun(ctx context.Context, repo *repository.Repository, job string, logger *zap.Logger) *runRecorder {
	rec := &runRecorder{repo: repo, logger: logger}
	run, err := repo.SyncRun.Start(ctx, job)
	if err != nil {
		logger.Warn("写入同步记录失败", zap.String("job", job), zap.Error(err))
		return rec
	}
	rec.run = run
	return rec
}

// ID 作业记录 ID，记录失败时为空
func (r *runRecorder) ID() string {
	if r.run == nil {
		return ""
	}
	return r.run.ID
}

func (r *runRecorder) finish(ctx context.Context, stats interface{}, jobErr error) {
	if r.run == nil {
		return
	}

	status, errMsg := model.SyncStatusSucceeded, ""
	if jobErr != nil {
		status, errMsg = model.SyncStatusFailed, jobErr.Error()
	}

	var raw datatypes.JSON
	if stats != nil {
		if b, err := json.Marshal(stats); err == nil {
			raw = datatypes.JSON(b)
		}
	}

	// 作业 ctx 可能已取消，收尾写入不跟随取消
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.repo.SyncRun.Finish(finishCtx, r.run.ID, status, raw, errMsg); err != nil {
		r.logger.Warn("更新同步记录失败", zap.String("run_id", r.run.ID), zap.Error(err))
	}
}
