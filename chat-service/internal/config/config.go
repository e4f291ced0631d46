package config

import (
	"time"

	"github.com/google/uuid"

	"github.com/weiawesome/wes-io-chat/chat-service/internal/history"
	pkgconfig "github.com/weiawesome/wes-io-chat/pkg/config"
	"github.com/weiawesome/wes-io-chat/pkg/database"
	"github.com/weiawesome/wes-io-chat/pkg/pubsub"
)

type Config struct {
	Server     ServerConfig
	GRPC       GRPCConfig
	WebSocket  WebSocketConfig
	Auth       AuthConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Membership MembershipConfig
	History    HistoryConfig
	Database   database.Config
	PubSub     pubsub.Config
	Chat       ChatConfig
	InstanceID string `mapstructure:"instance_id"`
	Log        LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type GRPCConfig struct {
	Host string
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string
}

type RedisConfig struct {
	Address           string
	Password          string
	DB                int
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	KeyTTL            time.Duration `mapstructure:"key_ttl"`
}

// RateLimitConfig windows are configured in whole seconds.
type RateLimitConfig struct {
	Window    time.Duration
	MaxEvents int `mapstructure:"max_events"`
}

type MembershipConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type HistoryConfig struct {
	Driver          string // memory, cassandra
	MaxPageSize     int    `mapstructure:"max_page_size"`
	DefaultPageSize int    `mapstructure:"default_page_size"`
	Retention       time.Duration
	Cassandra       history.CassandraConfig
}

type ChatConfig struct {
	MaxMessageLength int `mapstructure:"max_message_length"`
}

type LogConfig struct {
	Level  string
	Pretty bool
}

func Load() (*Config, error) {
	return LoadFrom("./config", "config")
}

func LoadFrom(configPath, configName string) (*Config, error) {
	v, err := pkgconfig.Load(configPath, configName)
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8088)
	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50052)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 8192)
	v.SetDefault("auth.issuer", "wes-io-chat")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.heartbeat_interval", "10s")
	v.SetDefault("redis.key_ttl", "30s")
	v.SetDefault("rate_limit.window", 30)
	v.SetDefault("rate_limit.max_events", 30)
	v.SetDefault("membership.cache_ttl", "1m")
	v.SetDefault("history.driver", "memory")
	v.SetDefault("history.max_page_size", 100)
	v.SetDefault("history.default_page_size", 50)
	v.SetDefault("history.retention", "720h")
	v.SetDefault("history.cassandra.hosts", []string{"localhost:9042"})
	v.SetDefault("history.cassandra.keyspace", "chat")
	v.SetDefault("history.cassandra.consistency", "LOCAL_QUORUM")
	v.SetDefault("history.cassandra.connect_timeout", "10s")
	v.SetDefault("history.cassandra.timeout", "5s")
	v.SetDefault("history.cassandra.num_conns", 2)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "chat")
	v.SetDefault("database.dbname", "chat")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "chat.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", 30)
	v.SetDefault("pubsub.driver", "redis")
	v.SetDefault("pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("pubsub.kafka.group_id", "chat-broadcast")
	v.SetDefault("pubsub.kafka.partitions", 8)
	v.SetDefault("chat.max_message_length", 4000)
	v.SetDefault("log.level", "info")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("grpc.port", "GRPC_PORT")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("pubsub.driver", "PUBSUB_DRIVER")
	v.BindEnv("pubsub.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("history.driver", "HISTORY_DRIVER")
	v.BindEnv("instance_id", "INSTANCE_ID")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = pkgconfig.Duration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = pkgconfig.Duration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = pkgconfig.Duration(v, "websocket.write_wait", 10*time.Second)
	cfg.Redis.HeartbeatInterval = pkgconfig.Duration(v, "redis.heartbeat_interval", 10*time.Second)
	cfg.Redis.KeyTTL = pkgconfig.Duration(v, "redis.key_ttl", 30*time.Second)
	cfg.RateLimit.Window = pkgconfig.Seconds(v, "rate_limit.window", 30*time.Second)
	cfg.Membership.CacheTTL = pkgconfig.Duration(v, "membership.cache_ttl", time.Minute)
	cfg.History.Retention = pkgconfig.Duration(v, "history.retention", 720*time.Hour)
	cfg.History.Cassandra.ConnectTimeout = pkgconfig.Duration(v, "history.cassandra.connect_timeout", 10*time.Second)
	cfg.History.Cassandra.Timeout = pkgconfig.Duration(v, "history.cassandra.timeout", 5*time.Second)
	cfg.PubSub.Redis.Address = cfg.Redis.Address
	cfg.PubSub.Redis.Password = cfg.Redis.Password
	cfg.PubSub.Redis.DB = cfg.Redis.DB

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	cfg.PubSub.Kafka = cfg.PubSub.Kafka.ForInstance(cfg.InstanceID)
	normalizePaging(&cfg.History)

	return &cfg, nil
}

func normalizePaging(h *HistoryConfig) {
	if h.MaxPageSize <= 0 {
		h.MaxPageSize = 100
	}
	if h.DefaultPageSize <= 0 || h.DefaultPageSize > h.MaxPageSize {
		h.DefaultPageSize = h.MaxPageSize
	}
}
