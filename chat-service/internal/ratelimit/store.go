package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// WindowStore records one event in a sliding window and returns how many
// events the window holds afterwards. Implementations must be atomic.
type WindowStore interface {
	TryAcquire(ctx context.Context, key string, now time.Time, member string, window time.Duration) (int64, error)
	Reset(ctx context.Context, key string) error
}

// slidingWindowScript trims expired entries, records the event, refreshes the
// key expiry and returns the window size in one round trip.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
redis.call('ZREMRANGEBYSCORE', key, '-inf', '(' .. (now - window))
redis.call('ZADD', key, now, ARGV[3])
redis.call('PEXPIRE', key, window)
return redis.call('ZCARD', key)
`)

// RedisWindowStore keeps each window in a sorted set scored by unix millis.
type RedisWindowStore struct {
	client *redis.Client
}

func NewRedisWindowStore(client *redis.Client) *RedisWindowStore {
	return &RedisWindowStore{client: client}
}

func (s *RedisWindowStore) TryAcquire(ctx context.Context, key string, now time.Time, member string, window time.Duration) (int64, error) {
	return slidingWindowScript.Run(ctx, s.client, []string{key},
		now.UnixMilli(), window.Milliseconds(), member,
	).Int64()
}

func (s *RedisWindowStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
