package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrInvalidTTL is returned when the online flag would never expire.
var ErrInvalidTTL = errors.New("presence ttl must be positive")

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// redisStore implements PresenceStore using Redis.
type redisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed presence store.
func NewRedisStore(cfg RedisConfig) (PresenceStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client. Close closes it.
func NewRedisStoreFromClient(client *redis.Client) PresenceStore {
	return &redisStore{client: client}
}

// Redis key patterns:
// presence:online:{user_id}     STRING "1" with TTL   - existence = online
// presence:last_seen:{user_id}  STRING unix ms        - no TTL

func onlineKey(userID string) string {
	return fmt.Sprintf("presence:online:%s", userID)
}

func lastSeenKey(userID string) string {
	return fmt.Sprintf("presence:last_seen:%s", userID)
}

func (s *redisStore) SetOnline(ctx context.Context, userID string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return s.client.Set(ctx, onlineKey(userID), "1", ttl).Err()
}

func (s *redisStore) SetLastSeen(ctx context.Context, userID string, at time.Time) error {
	return s.client.Set(ctx, lastSeenKey(userID), strconv.FormatInt(at.UnixMilli(), 10), 0).Err()
}

func (s *redisStore) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := s.client.Exists(ctx, onlineKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *redisStore) LastSeen(ctx context.Context, userID string) (time.Time, bool, error) {
	val, err := s.client.Get(ctx, lastSeenKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("malformed last-seen value %q: %w", val, err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
