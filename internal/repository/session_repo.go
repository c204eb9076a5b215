package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"academic-mesh/backend/internal/model"
)

// SessionRepository 课次数据访问接口
type SessionRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Session, error)
	// ListByLectures 返回讲次下日期落在 [from, to) 的课次，nil 端点不设限
	ListByLectures(ctx context.Context, lectureIDs []int64, from, to *time.Time) ([]model.Session, error)
	ListByIDs(ctx context.Context, ids []int64) ([]model.Session, error)
	// Reschedule 保存新日期（钩子重算 semester）并把该课次的考勤事实迁移到新分桶，同一事务；
	// 课次行先加排他锁，进行中的考勤写入提交后才改期
	Reschedule(ctx context.Context, session *model.Session) error
	// DeleteWithFacts 先删除依赖的考勤事实，再删除课次
	DeleteWithFacts(ctx context.Context, id int64) error
}

type sessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo 创建 SessionRepository 实例
func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) GetByID(ctx context.Context, id int64) (*model.Session, error) {
	var session model.Session
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) ListByLectures(ctx context.Context, lectureIDs []int64, from, to *time.Time) ([]model.Session, error) {
	if len(lectureIDs) == 0 {
		return nil, nil
	}
	q := r.db.WithContext(ctx).Where("lecture_id IN ?", lectureIDs)
	if from != nil {
		q = q.Where("date >= ?", *from)
	}
	if to != nil {
		q = q.Where("date < ?", *to)
	}

	var sessions []model.Session
	err := q.Order("date ASC, id ASC").Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) ListByIDs(ctx context.Context, ids []int64) ([]model.Session, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var sessions []model.Session
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("date ASC, id ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) Reschedule(ctx context.Context, session *model.Session) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked model.Session
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", session.ID).
			First(&locked).Error
		if err != nil {
			return err
		}
		if err := tx.Save(session).Error; err != nil {
			return err
		}
		// 分区键变化时 PostgreSQL 自动在分区间移动行
		return tx.Model(&model.Attendance{}).
			Where("session_id = ? AND semester <> ?", session.ID, session.Semester).
			Update("semester", session.Semester).Error
	})
}

func (r *sessionRepo) DeleteWithFacts(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&model.Attendance{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Session{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
