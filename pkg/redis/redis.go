package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"academic-mesh/backend/config"
)

// Client Redis 客户端封装
// 用于学生信息缓存（student:{id} 哈希 + 名称/班级索引）与导出接口限流
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 学生缓存 ──

const (
	studentPrefix    = "student:"
	nameIndexPrefix  = "index:student:name:"
	groupIndexPrefix = "index:student:group:"
)

// StudentEntry 缓存中的学生档案
type StudentEntry struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Mail  string `json:"mail"`
	Group string `json:"group"`
}

// PutStudents 批量写入学生哈希及索引集合（单个 pipeline）
func (c *Client) PutStudents(ctx context.Context, students []StudentEntry) error {
	if len(students) == 0 {
		return nil
	}
	_, err := c.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for _, s := range students {
			id := strconv.FormatInt(s.ID, 10)
			p.HSet(ctx, studentPrefix+id, map[string]interface{}{
				"id":    id,
				"name":  s.Name,
				"age":   s.Age,
				"mail":  s.Mail,
				"group": s.Group,
			})
			p.SAdd(ctx, nameIndexPrefix+strings.ToLower(s.Name), id)
			if s.Group != "" {
				p.SAdd(ctx, groupIndexPrefix+strings.ToLower(s.Group), id)
			}
		}
		return nil
	})
	return err
}

// GetStudent 读取学生档案，不存在时返回 (nil, nil)
func (c *Client) GetStudent(ctx context.Context, id int64) (*StudentEntry, error) {
	fields, err := c.rdb.HGetAll(ctx, studentPrefix+strconv.FormatInt(id, 10)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	age, _ := strconv.Atoi(fields["age"])
	return &StudentEntry{
		ID:    id,
		Name:  fields["name"],
		Age:   age,
		Mail:  fields["mail"],
		Group: fields["group"],
	}, nil
}

// SearchByName 按名称片段（不区分大小写）检索学生 ID
// 使用 SCAN 遍历索引键，避免 KEYS 阻塞
func (c *Client) SearchByName(ctx context.Context, fragment string) ([]int64, error) {
	pattern := nameIndexPrefix + "*" + strings.ToLower(fragment) + "*"

	seen := make(map[int64]struct{})
	var ids []int64
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		members, err := c.rdb.SMembers(ctx, iter.Val()).Result()
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			id, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ── 限流 ──

// CheckRateLimit 滑动窗口限流：窗口内请求数未超过 limit 返回 true
// 基于有序集合，score 为请求时间戳（纳秒）
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixNano()

	var card *goredis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
		p.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
		card = p.ZCard(ctx, key)
		p.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		return false, err
	}

	return card.Val() <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
