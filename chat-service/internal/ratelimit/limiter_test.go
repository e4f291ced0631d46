package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type erroringStore struct{}

func (erroringStore) TryAcquire(context.Context, string, time.Time, string, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func (erroringStore) Reset(context.Context, string) error { return nil }

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newRedisLimiter(t *testing.T, cfg Config) (*miniredis.Miniredis, *Limiter, *fakeClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLimiter(NewRedisWindowStore(client), cfg)
	l.now = clock.now
	return mr, l, clock
}

func TestBoundaryThirtyPerThirtySeconds(t *testing.T) {
	_, l, clock := newRedisLimiter(t, Config{Window: 30 * time.Second, MaxEvents: 30})
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		assert.True(t, l.Allow(ctx, "conn-1"), "call %d", i+1)
		clock.advance(10 * time.Millisecond)
	}
	assert.False(t, l.Allow(ctx, "conn-1"), "31st call in window")

	clock.advance(30*time.Second + time.Millisecond)
	assert.True(t, l.Allow(ctx, "conn-1"), "after window elapsed")
}

func TestBudgetIsPerConnection(t *testing.T) {
	_, l, _ := newRedisLimiter(t, Config{Window: time.Minute, MaxEvents: 1})
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "conn-1"))
	assert.False(t, l.Allow(ctx, "conn-1"))
	assert.True(t, l.Allow(ctx, "conn-2"))
}

func TestWindowKeyExpires(t *testing.T) {
	mr, l, _ := newRedisLimiter(t, Config{Window: 30 * time.Second, MaxEvents: 5})
	ctx := context.Background()

	require.True(t, l.Allow(ctx, "conn-1"))
	assert.True(t, mr.Exists(Key("conn-1")))
	assert.Equal(t, 30*time.Second, mr.TTL(Key("conn-1")))

	require.NoError(t, l.Reset(ctx, "conn-1"))
	assert.False(t, mr.Exists(Key("conn-1")))
}

func TestFailsOpenOnStoreError(t *testing.T) {
	l := NewLimiter(erroringStore{}, Config{Window: time.Second, MaxEvents: 1})
	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(context.Background(), "conn-1"))
	}
}

func TestDisabledConfigurations(t *testing.T) {
	for _, cfg := range []Config{
		{Window: time.Second, MaxEvents: 0},
		{Window: time.Second, MaxEvents: -1},
		{Window: 0, MaxEvents: 10},
		{Window: -time.Second, MaxEvents: 10},
	} {
		l := NewLimiter(erroringStore{}, cfg)
		assert.False(t, l.Enabled())
		assert.True(t, l.Allow(context.Background(), "conn-1"))
	}
}
