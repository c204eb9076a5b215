package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"academic-mesh/backend/internal/model"
)

// SyncRunRepository 同步审计数据访问接口
type SyncRunRepository interface {
	Start(ctx context.Context, job string) (*model.SyncRun, error)
	Finish(ctx context.Context, id string, status string, stats datatypes.JSON, errMsg string) error
	List(ctx context.Context, job string, offset, limit int) ([]model.SyncRun, int64, error)
}

type syncRunRepo struct {
	db *gorm.DB
}

// NewSyncRunRepo 创建 SyncRunRepository 实例
func NewSyncRunRepo(db *gorm.DB) SyncRunRepository {
	return &syncRunRepo{db: db}
}

func (r *syncRunRepo) Start(ctx context.Context, job string) (*model.SyncRun, error) {
	run := &model.SyncRun{
		Job:       job,
		Status:    model.SyncStatusRunning,
		StartedAt: time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *syncRunRepo) Finish(ctx context.Context, id string, status string, stats datatypes.JSON, errMsg string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&model.SyncRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"finished_at": &now,
			"stats":       stats,
			"error":       errMsg,
		}).Error
}

func (r *syncRunRepo) List(ctx context.Context, job string, offset, limit int) ([]model.SyncRun, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.SyncRun{})
	if job != "" {
		q = q.Where("job = ?", job)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var runs []model.SyncRun
	err := q.Order("started_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&runs).Error
	return runs, total, err
}
