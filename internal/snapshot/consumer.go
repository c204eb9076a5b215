package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageSource 变更消息来源，*kafka.Reader 满足该接口
type MessageSource interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
}

// 停止原因
const (
	StopIdle      = "idle"
	StopCancelled = "cancelled"
)

// ConsumeStats 单次消费统计
type ConsumeStats struct {
	Messages   int    `json:"messages"`
	Applied    int    `json:"applied"`
	Dropped    int    `json:"dropped"`
	StopReason string `json:"stop_reason"`
}

// Consumer 批量消费变更流，空闲窗口内无新消息即停止
type Consumer struct {
	src          MessageSource
	topicKinds   map[string]Kind
	pollInterval time.Duration
	idleWindow   time.Duration
	logger       *zap.Logger
}

// NewConsumer 创建消费者；topicKinds 为主题 → 实体类别
func NewConsumer(src MessageSource, topicKinds map[string]Kind, pollInterval, idleWindow time.Duration, logger *zap.Logger) *Consumer {
	return &Consumer{
		src:          src,
		topicKinds:   topicKinds,
		pollInterval: pollInterval,
		idleWindow:   idleWindow,
		logger:       logger,
	}
}

// Consume 将消息逐条归约进 cache
// ctx 取消视为正常停止；broker 错误直接返回，调用方不应发布
func (c *Consumer) Consume(ctx context.Context, cache *Cache) (ConsumeStats, error) {
	var stats ConsumeStats
	lastReceived := time.Now()

	for {
		if ctx.Err() != nil {
			stats.StopReason = StopCancelled
			return stats, nil
		}

		fetchCtx, cancel := context.WithTimeout(ctx, c.pollInterval)
		msg, err := c.src.FetchMessage(fetchCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				stats.StopReason = StopCancelled
				return stats, nil
			}
			if errors.Is(err, context.DeadlineExceeded) {
				if idle := time.Since(lastReceived); idle >= c.idleWindow {
					c.logger.Info("变更流空闲，停止消费",
						zap.Duration("idle", idle),
						zap.Int("messages", stats.Messages),
					)
					stats.StopReason = StopIdle
					return stats, nil
				}
				continue
			}
			return stats, fmt.Errorf("拉取变更消息失败: %w", err)
		}

		lastReceived = time.Now()
		stats.Messages++

		kind, ok := c.topicKinds[msg.Topic]
		if !ok {
			stats.Dropped++
			cache.MarkDropped()
			c.logger.Warn("未订阅的主题", zap.String("topic", msg.Topic))
			continue
		}

		ev, err := DecodeMessage(kind, msg.Value)
		if err != nil {
			stats.Dropped++
			cache.MarkDropped()
			c.logger.Warn("解析变更消息失败",
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			continue
		}

		if cache.Apply(ev) {
			stats.Applied++
		} else {
			stats.Dropped++
		}
	}
}
