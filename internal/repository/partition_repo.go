package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const partitionParent = "attendance"

// PartitionRepository attendance 分区 DDL
type PartitionRepository interface {
	// Create 创建 bucket 对应的 LIST 分区；已存在视为成功
	Create(ctx context.Context, bucket string) error
	// List 返回已存在物理分区的分桶键
	List(ctx context.Context) ([]string, error)
}

type partitionRepo struct {
	db *gorm.DB
}

// NewPartitionRepo 创建 PartitionRepository 实例
func NewPartitionRepo(db *gorm.DB) PartitionRepository {
	return &partitionRepo{db: db}
}

func (r *partitionRepo) Create(ctx context.Context, bucket string) error {
	table := pgx.Identifier{partitionParent + "_" + bucket}.Sanitize()
	literal := "'" + strings.ReplaceAll(bucket, "'", "''") + "'"

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s PARTITION OF %s FOR VALUES IN (%s)",
		table, partitionParent, literal)

	err := r.db.WithContext(ctx).Exec(ddl).Error
	if err != nil && !isDuplicateObject(err) {
		return err
	}
	return nil
}

func (r *partitionRepo) List(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Raw(`
		SELECT c.relname
		FROM pg_inherits i
		JOIN pg_class c ON c.oid = i.inhrelid
		JOIN pg_class p ON p.oid = i.inhparent
		WHERE p.relname = ?
		ORDER BY c.relname`, partitionParent).
		Scan(&names).Error
	if err != nil {
		return nil, err
	}

	buckets := make([]string, 0, len(names))
	for _, n := range names {
		buckets = append(buckets, strings.TrimPrefix(n, partitionParent+"_"))
	}
	return buckets, nil
}

// isDuplicateObject 并发建表竞争：IF NOT EXISTS 仍可能在 pg_type 上撞唯一约束
func isDuplicateObject(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "42P07" || pgErr.Code == "23505"
}
