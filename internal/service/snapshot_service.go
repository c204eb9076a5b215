package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"academic-mesh/backend/internal/model"
	"academic-mesh/backend/internal/repository"
	"academic-mesh/backend/internal/snapshot"
)

// publishGrace 消费被取消后，发布快照仍可使用的时间
const publishGrace = 30 * time.Second

// ErrSnapshotRunning 本进程已有一次重建在进行
var ErrSnapshotRunning = errors.New("文档快照重建正在进行")

// ChangeStream 变更流读取器，*kafka.Reader 满足该接口
type ChangeStream interface {
	snapshot.MessageSource
	Close() error
}

// StreamOpener 每次重建打开一个新的读取器，从最早偏移开始回放
type StreamOpener func() ChangeStream

// SnapshotOptions 消费参数
type SnapshotOptions struct {
	TopicKinds   map[string]string // topic → kind
	PollInterval time.Duration
	IdleWindow   time.Duration
}

// SnapshotResult 一次快照重建的结果
type SnapshotResult struct {
	RunID        string                `json:"run_id,omitempty"`
	Consume      snapshot.ConsumeStats `json:"consume"`
	Cache        snapshot.Stats        `json:"cache"`
	Universities int                   `json:"universities"`
}

// SnapshotService 变更流 → 文档快照作业
type SnapshotService interface {
	// Rebuild 回放变更流并整体替换文档集合；流错误时不发布。
	// 同一进程内不允许重叠执行，重叠调用返回 ErrSnapshotRunning
	Rebuild(ctx context.Context) (*SnapshotResult, error)
}

type snapshotService struct {
	repo       *repository.Repository
	open       StreamOpener
	store      snapshot.DocumentStore
	topicKinds map[string]snapshot.Kind
	opts       SnapshotOptions
	logger     *zap.Logger

	running atomic.Bool
}

// NewSnapshotService 创建 SnapshotService 实例
func NewSnapshotService(repo *repository.Repository, open StreamOpener, store snapshot.DocumentStore, opts SnapshotOptions, logger *zap.Logger) SnapshotService {
	kinds := make(map[string]snapshot.Kind, len(opts.TopicKinds))
	for topic, name := range opts.TopicKinds {
		kind, err := snapshot.ParseKind(name)
		if err != nil {
			logger.Warn("忽略未知实体类别的主题", zap.String("topic", topic), zap.String("kind", name))
			continue
		}
		kinds[topic] = kind
	}
	return &snapshotService{
		repo:       repo,
		open:       open,
		store:      store,
		topicKinds: kinds,
		opts:       opts,
		logger:     logger,
	}
}

func (s *snapshotService) Rebuild(ctx context.Context) (*SnapshotResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("已有快照重建在进行，拒绝重叠执行")
		return nil, ErrSnapshotRunning
	}
	defer s.running.Store(false)

	rec := startRun(ctx, s.repo, model.SyncJobDocuments, s.logger)
	result := &SnapshotResult{RunID: rec.ID()}

	stream := s.open()
	defer func() {
		if err := stream.Close(); err != nil {
			s.logger.Warn("关闭变更流失败", zap.Error(err))
		}
	}()

	cache := snapshot.NewCache(s.logger)
	consumer := snapshot.NewConsumer(stream, s.topicKinds, s.opts.PollInterval, s.opts.IdleWindow, s.logger)

	cs, err := consumer.Consume(ctx, cache)
	result.Consume = cs
	result.Cache = cache.Stats()
	if err != nil {
		s.logger.Error("消费变更流失败，本次不发布", zap.String("run_id", rec.ID()), zap.Error(err))
		rec.finish(ctx, result, err)
		return nil, err
	}

	pubCtx := ctx
	if cs.StopReason == snapshot.StopCancelled {
		var cancel context.CancelFunc
		pubCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), publishGrace)
		defer cancel()
	}

	docs := cache.Assemble()
	result.Universities = len(docs)
	if err := s.store.ReplaceAll(pubCtx, docs); err != nil {
		s.logger.Error("发布文档快照失败", zap.String("run_id", rec.ID()), zap.Error(err))
		rec.finish(ctx, result, err)
		return nil, err
	}

	s.logger.Info("文档快照已发布",
		zap.String("run_id", rec.ID()),
		zap.String("stop_reason", cs.StopReason),
		zap.Int("messages", cs.Messages),
		zap.Int("dropped", cs.Dropped),
		zap.Int("universities", len(docs)),
	)
	rec.finish(ctx, result, nil)
	return result, nil
}
