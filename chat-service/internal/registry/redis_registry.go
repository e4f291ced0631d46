package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/wes-io-chat/chat-service/internal/config"
	"github.com/weiawesome/wes-io-chat/pkg/log"
)

const KeyPrefix = "chat:conn:"

var ErrNotFound = errors.New("connection not registered")

type RedisRegistry struct {
	client            *redis.Client
	keyTTL            time.Duration
	heartbeatInterval time.Duration
	managedKeys       map[string]string // key -> user id, owned by this instance
	mu                sync.RWMutex
	cancel            context.CancelFunc
}

func NewRedisRegistry(client *redis.Client, cfg config.RedisConfig) *RedisRegistry {
	return &RedisRegistry{
		client:            client,
		keyTTL:            cfg.KeyTTL,
		heartbeatInterval: cfg.HeartbeatInterval,
		managedKeys:       make(map[string]string),
	}
}

func Key(connectionID string) string {
	return KeyPrefix + connectionID
}

func (r *RedisRegistry) Register(ctx context.Context, connectionID, userID string) error {
	key := Key(connectionID)

	if err := r.client.Set(ctx, key, userID, r.keyTTL).Err(); err != nil {
		return fmt.Errorf("failed to register connection: %w", err)
	}

	r.mu.Lock()
	r.managedKeys[key] = userID
	r.mu.Unlock()

	l := log.Ctx(ctx)
	l.Debug().Str(log.FieldConnectionID, connectionID).Msg("registered connection")
	return nil
}

// Deregister removes the connection key together with any per-connection
// keys the caller owns.
func (r *RedisRegistry) Deregister(ctx context.Context, connectionID string, extraKeys ...string) error {
	key := Key(connectionID)

	r.mu.Lock()
	delete(r.managedKeys, key)
	r.mu.Unlock()

	keys := append([]string{key}, extraKeys...)
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to deregister connection: %w", err)
	}

	l := log.Ctx(ctx)
	l.Debug().Str(log.FieldConnectionID, connectionID).Msg("deregistered connection")
	return nil
}

func (r *RedisRegistry) Lookup(ctx context.Context, connectionID string) (string, error) {
	userID, err := r.client.Get(ctx, Key(connectionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to lookup connection: %w", err)
	}
	return userID, nil
}

func (r *RedisRegistry) StartHeartbeat(ctx context.Context) error {
	if r.heartbeatInterval <= 0 {
		return fmt.Errorf("invalid heartbeat interval %s", r.heartbeatInterval)
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	go r.heartbeatLoop(ctx)
	l := log.L()
	l.Info().Dur("interval", r.heartbeatInterval).Dur("ttl", r.keyTTL).Msg("registry heartbeat started")
	return nil
}

func (r *RedisRegistry) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshKeys(ctx)
		}
	}
}

func (r *RedisRegistry) refreshKeys(ctx context.Context) {
	r.mu.RLock()
	entries := make(map[string]string, len(r.managedKeys))
	for k, v := range r.managedKeys {
		entries[k] = v
	}
	r.mu.RUnlock()

	if len(entries) == 0 {
		return
	}

	pipe := r.client.Pipeline()
	for key, userID := range entries {
		pipe.Set(ctx, key, userID, r.keyTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		l := log.L()
		l.Error().Err(err).Int("keys", len(entries)).Msg("failed to refresh connection keys")
	}
}

func (r *RedisRegistry) StopHeartbeat() {
	if r.cancel != nil {
		r.cancel()
	}
}
