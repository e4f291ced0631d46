package config

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgconfig "github.com/weiawesome/wes-io-chat/pkg/config"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Presence PresenceConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host       string
	Port       int
	InstanceID string `mapstructure:"instance_id"`
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string
}

// PresenceConfig TTL and HeartbeatInterval are configured in whole seconds.
type PresenceConfig struct {
	TTL               time.Duration
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	MaxBatchSize      int           `mapstructure:"max_batch_size"`
	PingInterval      time.Duration `mapstructure:"ping_interval"`
	PongWait          time.Duration `mapstructure:"pong_wait"`
	WriteWait         time.Duration `mapstructure:"write_wait"`
	MaxMessageSize    int64         `mapstructure:"max_message_size"`
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
	v.SetDefault("server.port", 8092)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.issuer", "wes-io-chat")
	v.SetDefault("presence.ttl", 60)
	v.SetDefault("presence.heartbeat_interval", 30)
	v.SetDefault("presence.max_batch_size", 200)
	v.SetDefault("presence.ping_interval", "30s")
	v.SetDefault("presence.pong_wait", "60s")
	v.SetDefault("presence.write_wait", "10s")
	v.SetDefault("presence.max_message_size", 4096)
	v.SetDefault("log.level", "info")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.instance_id", "INSTANCE_ID")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("presence.ttl", "PRESENCE_TTL")
	v.BindEnv("presence.heartbeat_interval", "PRESENCE_HEARTBEAT_INTERVAL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.Presence.TTL = pkgconfig.Seconds(v, "presence.ttl", 60*time.Second)
	cfg.Presence.HeartbeatInterval = pkgconfig.Seconds(v, "presence.heartbeat_interval", 30*time.Second)
	cfg.Presence.PingInterval = pkgconfig.Duration(v, "presence.ping_interval", 30*time.Second)
	cfg.Presence.PongWait = pkgconfig.Duration(v, "presence.pong_wait", 60*time.Second)
	cfg.Presence.WriteWait = pkgconfig.Duration(v, "presence.write_wait", 10*time.Second)

	// A zero TTL would make the online flag permanent.
	if cfg.Presence.TTL <= 0 {
		return nil, fmt.Errorf("presence.ttl must be positive, got %s", cfg.Presence.TTL)
	}

	if cfg.Server.InstanceID == "" {
		cfg.Server.InstanceID = uuid.NewString()
	}

	return &cfg, nil
}
