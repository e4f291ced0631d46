package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (PresenceStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreFromClient(client)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestOnlineFlagExpires(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetOnline(ctx, "u1", 30*time.Second))
	assert.Equal(t, 30*time.Second, mr.TTL(onlineKey("u1")))

	online, err := s.IsOnline(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, online)

	mr.FastForward(31 * time.Second)

	online, err = s.IsOnline(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, online)
}

func TestLastSeenHasNoTTL(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 123e6, time.UTC)

	_, ok, err := s.LastSeen(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetLastSeen(ctx, "u1", at))
	assert.Equal(t, time.Duration(0), mr.TTL(lastSeenKey("u1")))

	mr.FastForward(24 * time.Hour)

	got, ok, err := s.LastSeen(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.Equal(got))
}

func TestLastSeenRejectsGarbage(t *testing.T) {
	s, mr := newTestStore(t)
	require.NoError(t, mr.Set(lastSeenKey("u1"), "yesterday"))

	_, _, err := s.LastSeen(context.Background(), "u1")
	assert.Error(t, err)
}

func TestSetOnlineRequiresExpiry(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.SetOnline(ctx, "u1", 0), ErrInvalidTTL)
	assert.ErrorIs(t, s.SetOnline(ctx, "u1", -time.Second), ErrInvalidTTL)
	assert.False(t, mr.Exists("presence:online:u1"))
}
