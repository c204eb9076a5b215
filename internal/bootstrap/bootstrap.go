package bootstrap

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"academic-mesh/backend/config"
	"academic-mesh/backend/internal/graph"
	"academic-mesh/backend/internal/repository"
	"academic-mesh/backend/internal/service"
	"academic-mesh/backend/internal/snapshot"
	"academic-mesh/backend/pkg/database"
	"academic-mesh/backend/pkg/docstore"
	"academic-mesh/backend/pkg/graphdb"
	"academic-mesh/backend/pkg/redis"
	"academic-mesh/backend/pkg/stream"
)

// App 进程内共享的存储连接与 Service 聚合
type App struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Neo4j   neo4j.DriverWithContext
	Mongo   *mongo.Client
	Repo    *repository.Repository
	Service *service.Service

	logger *zap.Logger
}

// Open 依次连接 PostgreSQL（执行迁移）、Redis、Neo4j、MongoDB 并组装 Service
// 任一连接失败时关闭已建立的连接并返回错误
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{logger: logger}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	app.DB = db

	sqlDB, err := db.DB()
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		app.Close()
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	if app.Redis, err = redis.NewClient(&cfg.Redis, logger); err != nil {
		app.Close()
		return nil, err
	}
	if app.Neo4j, err = graphdb.Connect(ctx, &cfg.Neo4j, logger); err != nil {
		app.Close()
		return nil, err
	}
	if app.Mongo, err = docstore.Connect(ctx, &cfg.Mongo, logger); err != nil {
		app.Close()
		return nil, err
	}

	app.Repo = repository.NewRepository(db)
	reader := graph.NewReader(app.Neo4j, cfg.Neo4j.Database)
	writer := graph.NewNeo4jWriter(app.Neo4j, cfg.Neo4j.Database)

	deps := service.Dependencies{
		Graph:      reader,
		Counter:    reader,
		Replicator: graph.NewReplicator(app.Repo.Source, writer, graph.Descriptors, cfg.Neo4j.Concurrency, logger),
		Stream: func() service.ChangeStream {
			return stream.NewReader(&cfg.Kafka, logger)
		},
		Documents: snapshot.NewMongoPublisher(app.Mongo, cfg.Mongo.Database, cfg.Mongo.Collection, logger),
		Students:  app.Redis,
		Snapshot: service.SnapshotOptions{
			TopicKinds:   stream.TopicKinds(&cfg.Kafka),
			PollInterval: cfg.Kafka.PollInterval,
			IdleWindow:   cfg.Kafka.IdleWindow,
		},
	}
	app.Service = service.NewService(app.Repo, deps, logger)

	return app, nil
}

// Close 关闭全部已建立的连接，可重复调用
func (a *App) Close() {
	ctx := context.Background()

	if a.Mongo != nil {
		if err := a.Mongo.Disconnect(ctx); err != nil {
			a.logger.Warn("关闭 MongoDB 连接失败", zap.Error(err))
		}
		a.Mongo = nil
	}
	if a.Neo4j != nil {
		if err := a.Neo4j.Close(ctx); err != nil {
			a.logger.Warn("关闭 Neo4j 驱动失败", zap.Error(err))
		}
		a.Neo4j = nil
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
		a.Redis = nil
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
		a.DB = nil
	}
}
