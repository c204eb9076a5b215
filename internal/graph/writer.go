package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// NodeWriter 图节点写入
// Upsert 返回 false 表示父节点未全部匹配，节点与边均未写入
type NodeWriter interface {
	EnsureConstraint(ctx context.Context, label string) error
	Upsert(ctx context.Context, d Descriptor, row Row) (bool, error)
}

// Neo4jWriter 基于驱动会话的 NodeWriter 实现
type Neo4jWriter struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jWriter 创建写入器
func NewNeo4jWriter(driver neo4j.DriverWithContext, database string) *Neo4jWriter {
	return &Neo4jWriter{driver: driver, database: database}
}

func (w *Neo4jWriter) EnsureConstraint(ctx context.Context, label string) error {
	session := w.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: w.database})
	defer session.Close(ctx)

	result, err := session.Run(ctx, ConstraintCypher(label), nil)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

func (w *Neo4jWriter) Upsert(ctx context.Context, d Descriptor, row Row) (bool, error) {
	session := w.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: w.database})
	defer session.Close(ctx)

	result, err := session.Run(ctx, UpsertCypher(d), upsertParams(row))
	if err != nil {
		return false, err
	}
	record, err := result.Single(ctx)
	if err != nil {
		return false, err
	}
	return getInt64FromRecord(record, "matched") > 0, nil
}
