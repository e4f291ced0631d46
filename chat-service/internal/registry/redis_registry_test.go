package registry

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-chat/chat-service/internal/config"
)

func newRegistry(t *testing.T) (*miniredis.Miniredis, *RedisRegistry) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisRegistry(client, config.RedisConfig{KeyTTL: 30 * time.Second, HeartbeatInterval: 10 * time.Second})
}

func TestRegisterLookupDeregister(t *testing.T) {
	mr, r := newRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, "conn-1", "user-1"))
	assert.Equal(t, 30*time.Second, mr.TTL(Key("conn-1")))

	userID, err := r.Lookup(ctx, "conn-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	require.NoError(t, mr.Set("chat:ratelimit:conn:conn-1", "x"))
	require.NoError(t, r.Deregister(ctx, "conn-1", "chat:ratelimit:conn:conn-1"))
	assert.False(t, mr.Exists(Key("conn-1")))
	assert.False(t, mr.Exists("chat:ratelimit:conn:conn-1"))

	_, err = r.Lookup(ctx, "conn-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.Deregister(ctx, "conn-1"))
}

func TestRefreshKeepsLiveConnections(t *testing.T) {
	mr, r := newRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, "conn-1", "user-1"))
	mr.FastForward(25 * time.Second)
	r.refreshKeys(ctx)
	mr.FastForward(25 * time.Second)

	userID, err := r.Lookup(ctx, "conn-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}
