package snapshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	pkgerrors "academic-mesh/backend/pkg/errors"
)

// DocumentStore 文档快照的发布目标
type DocumentStore interface {
	ReplaceAll(ctx context.Context, docs []UniversityDoc) error
}

// MongoPublisher 以 临时集合 + renameCollection 的方式整体替换目标集合
// 任一步失败都删除临时集合，已发布的集合保持原样
type MongoPublisher struct {
	client     *mongo.Client
	database   string
	collection string
	logger     *zap.Logger
}

// NewMongoPublisher 创建发布器
func NewMongoPublisher(client *mongo.Client, database, collection string, logger *zap.Logger) *MongoPublisher {
	return &MongoPublisher{
		client:     client,
		database:   database,
		collection: collection,
		logger:     logger,
	}
}

func (p *MongoPublisher) ReplaceAll(ctx context.Context, docs []UniversityDoc) error {
	db := p.client.Database(p.database)
	tmpName := fmt.Sprintf("%s_tmp_%s", p.collection, strings.ReplaceAll(uuid.NewString(), "-", ""))

	opts := options.CreateCollection().SetValidator(UniversitySchema())
	if err := db.CreateCollection(ctx, tmpName, opts); err != nil {
		return fmt.Errorf("%w: 创建临时集合: %w", pkgerrors.ErrPublishFailed, err)
	}
	tmp := db.Collection(tmpName)

	discard := func() {
		if err := tmp.Drop(context.Background()); err != nil {
			p.logger.Warn("删除临时集合失败", zap.String("collection", tmpName), zap.Error(err))
		}
	}

	if len(docs) > 0 {
		items := make([]interface{}, len(docs))
		for i := range docs {
			items[i] = docs[i]
		}
		if _, err := tmp.InsertMany(ctx, items); err != nil {
			discard()
			return fmt.Errorf("%w: 写入临时集合: %w", pkgerrors.ErrPublishFailed, err)
		}
	} else {
		p.logger.Warn("快照为空，目标集合将被替换为空集合")
	}

	cmd := bson.D{
		{Key: "renameCollection", Value: p.database + "." + tmpName},
		{Key: "to", Value: p.database + "." + p.collection},
		{Key: "dropTarget", Value: true},
	}
	if err := p.client.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		discard()
		return fmt.Errorf("%w: 替换目标集合: %w", pkgerrors.ErrPublishFailed, err)
	}

	p.logger.Info("文档快照已发布",
		zap.String("collection", p.collection),
		zap.Int("documents", len(docs)),
	)
	return nil
}

// UniversitySchema 目标集合的 $jsonSchema 校验器
func UniversitySchema() bson.M {
	department := bson.M{
		"bsonType": "object",
		"required": bson.A{"name"},
		"properties": bson.M{
			"name": bson.M{"bsonType": "string"},
			"specializations": bson.M{
				"bsonType": "array",
				"items":    bson.M{"bsonType": "string"},
			},
		},
	}
	institute := bson.M{
		"bsonType": "object",
		"required": bson.A{"name", "departments"},
		"properties": bson.M{
			"name":        bson.M{"bsonType": "string"},
			"departments": bson.M{"bsonType": "array", "items": department},
		},
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "location", "institutes"},
			"properties": bson.M{
				"name":       bson.M{"bsonType": "string"},
				"location":   bson.M{"bsonType": "string"},
				"institutes": bson.M{"bsonType": "array", "items": institute},
			},
		},
	}
}
