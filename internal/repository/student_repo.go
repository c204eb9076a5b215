package repository

import (
	"context"

	"gorm.io/gorm"

	"academic-mesh/backend/internal/model"
)

// StudentRepository 学生数据访问接口
type StudentRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Student, error)
	// ListWithGroup 全量学生（预加载班级），用于刷新缓存
	ListWithGroup(ctx context.Context) ([]model.Student, error)
	DeleteWithFacts(ctx context.Context, id int64) error
}

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) GetByID(ctx context.Context, id int64) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) ListWithGroup(ctx context.Context) ([]model.Student, error) {
	var students []model.Student
	err := r.db.WithContext(ctx).
		Preload("Group").
		Order("id ASC").
		Find(&students).Error
	return students, err
}

func (r *studentRepo) DeleteWithFacts(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("student_id = ?", id).Delete(&model.Attendance{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Student{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
