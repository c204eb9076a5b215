package graphdb

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"academic-mesh/backend/config"
)

// Connect 创建 Neo4j 驱动并校验连通性
// 驱动是并发安全的，整个进程共享一个实例，会话按需创建
func Connect(ctx context.Context, cfg *config.Neo4jConfig, logger *zap.Logger) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("创建 Neo4j 驱动失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(context.Background())
		return nil, fmt.Errorf("Neo4j 连接失败: %w", err)
	}

	logger.Info("Neo4j 连接成功", zap.String("uri", cfg.URI), zap.String("database", cfg.Database))
	return driver, nil
}
