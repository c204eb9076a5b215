package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ExportRateLimit int `mapstructure:"export_rate_limit"` // 每分钟导出次数上限
}

// DatabaseConfig PostgreSQL（关系型事实源）配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 分钟
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig 学生信息缓存配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Neo4jConfig 图存储配置
type Neo4jConfig struct {
	URI         string `mapstructure:"uri"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	Database    string `mapstructure:"database"`
	Concurrency int    `mapstructure:"concurrency"` // 同一依赖层级内的并发写入数
}

// MongoConfig 文档存储配置
type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// KafkaConfig 变更流配置
type KafkaConfig struct {
	Brokers      []string          `mapstructure:"brokers"`
	GroupID      string            `mapstructure:"group_id"`
	Topics       map[string]string `mapstructure:"topics"` // kind → topic
	PollInterval time.Duration     `mapstructure:"poll_interval"`
	IdleWindow   time.Duration     `mapstructure:"idle_window"`
	MinBytes     int               `mapstructure:"min_bytes"`
	MaxBytes     int               `mapstructure:"max_bytes"`
}

// TopicList 返回全部订阅主题
func (c *KafkaConfig) TopicList() []string {
	topics := make([]string, 0, len(c.Topics))
	for _, t := range c.Topics {
		topics = append(topics, t)
	}
	return topics
}

// AuthConfig 运维 Token 配置
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.export_rate_limit", 20)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "postgres_db")
	v.SetDefault("db.user", "postgres_user")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.user", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "neo4j")
	v.SetDefault("neo4j.concurrency", 8)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017/")
	v.SetDefault("mongo.database", "university_db")
	v.SetDefault("mongo.collection", "universities")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.group_id", "mongo-sync-consumer-group")
	v.SetDefault("kafka.topics", map[string]string{
		"university": "postgres_server.public.universities",
		"institute":  "postgres_server.public.institutes",
		"department": "postgres_server.public.departments",
		"specialty":  "postgres_server.public.specialties",
	})
	v.SetDefault("kafka.poll_interval", "1s")
	v.SetDefault("kafka.idle_window", "5s")
	v.SetDefault("kafka.min_bytes", 1)
	v.SetDefault("kafka.max_bytes", 10<<20)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "720h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("ACADEMIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("配置校验失败: kafka.brokers 不能为空")
	}
	for _, kind := range []string{"university", "institute", "department", "specialty"} {
		if c.Kafka.Topics[kind] == "" {
			return fmt.Errorf("配置校验失败: kafka.topics.%s 不能为空", kind)
		}
	}
	if c.Kafka.IdleWindow <= c.Kafka.PollInterval {
		return fmt.Errorf("配置校验失败: kafka.idle_window 必须大于 kafka.poll_interval")
	}
	if c.Neo4j.Concurrency <= 0 {
		return fmt.Errorf("配置校验失败: neo4j.concurrency 必须为正数")
	}
	return nil
}
