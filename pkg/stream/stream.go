package stream

import (
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"academic-mesh/backend/config"
)

// NewReader 创建订阅全部实体主题的消费组读取器
// 从最早偏移开始读取，调用方只使用 FetchMessage 且从不提交偏移，
// 因此每次运行都会重放完整历史（快照需要全量状态）。
// 每个读取器使用独立的消费组，并行的两次运行各自拿到全部分区
func NewReader(cfg *config.KafkaConfig, logger *zap.Logger) *kafka.Reader {
	groupID := RunGroupID(cfg.GroupID)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     groupID,
		GroupTopics: cfg.TopicList(),
		StartOffset: kafka.FirstOffset,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.PollInterval,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Sugar().Errorf(msg, args...)
		}),
	})

	logger.Info("Kafka 读取器已创建",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("group_id", groupID),
		zap.Strings("topics", cfg.TopicList()),
	)
	return reader
}

// RunGroupID 以配置的消费组为前缀生成单次运行的消费组 ID
func RunGroupID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// TopicKinds 主题 → 实体类别映射（config 中为类别 → 主题）
func TopicKinds(cfg *config.KafkaConfig) map[string]string {
	kinds := make(map[string]string, len(cfg.Topics))
	for kind, topic := range cfg.Topics {
		kinds[topic] = kind
	}
	return kinds
}
