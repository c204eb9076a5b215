package repository

import (
	"context"

	"gorm.io/gorm"
)

// SourceRepository 按表全量读取行，供图复制使用
// 列清单由调用方（实体描述表）给出，结果为列名 → 值
type SourceRepository interface {
	Rows(ctx context.Context, table string, columns []string) ([]map[string]interface{}, error)
}

type sourceRepo struct {
	db *gorm.DB
}

// NewSourceRepo 创建 SourceRepository 实例
func NewSourceRepo(db *gorm.DB) SourceRepository {
	return &sourceRepo{db: db}
}

func (r *sourceRepo) Rows(ctx context.Context, table string, columns []string) ([]map[string]interface{}, error) {
	var rows []map[string]interface{}
	err := r.db.WithContext(ctx).
		Table(table).
		Select(columns).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
