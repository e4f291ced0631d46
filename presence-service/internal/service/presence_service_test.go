package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-chat/presence-service/internal/domain"
	"github.com/weiawesome/wes-io-chat/presence-service/internal/store"
)

const (
	u1     = "5b1e3a52-4c1f-4b8e-9c1e-0a1b2c3d4e01"
	u2     = "5b1e3a52-4c1f-4b8e-9c1e-0a1b2c3d4e02"
	u3     = "5b1e3a52-4c1f-4b8e-9c1e-0a1b2c3d4e03"
	ghost  = "5b1e3a52-4c1f-4b8e-9c1e-0a1b2c3d4e0f"
	broken = "5b1e3a52-4c1f-4b8e-9c1e-0a1b2c3d4eff"
)

func newRedisBacked(t *testing.T) (*presenceService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	st := store.NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { st.Close() })

	svc := NewPresenceService(st, Config{TTL: 30 * time.Second, MaxBatchSize: 10}).(*presenceService)
	return svc, mr
}

func TestHeartbeatOnlineThenOfflineKeepsLastSeen(t *testing.T) {
	svc, mr := newRedisBacked(t)
	ctx := context.Background()
	stamp := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return stamp }

	require.NoError(t, svc.Heartbeat(ctx, u1))

	online, err := svc.IsOnline(ctx, u1)
	require.NoError(t, err)
	assert.True(t, online)

	mr.FastForward(31 * time.Second)

	online, err = svc.IsOnline(ctx, u1)
	require.NoError(t, err)
	assert.False(t, online)

	status, err := svc.Status(ctx, u1)
	require.NoError(t, err)
	assert.False(t, status.Online)
	require.NotNil(t, status.LastSeen)
	assert.Equal(t, stamp.UnixMilli(), *status.LastSeen)
}

func TestHeartbeatRefreshesWindow(t *testing.T) {
	svc, mr := newRedisBacked(t)
	ctx := context.Background()

	require.NoError(t, svc.Heartbeat(ctx, u1))
	mr.FastForward(20 * time.Second)
	require.NoError(t, svc.Heartbeat(ctx, u1))
	mr.FastForward(20 * time.Second)

	online, err := svc.IsOnline(ctx, u1)
	require.NoError(t, err)
	assert.True(t, online)
}

func TestHeartbeatRequiresUser(t *testing.T) {
	svc, _ := newRedisBacked(t)
	assert.ErrorIs(t, svc.Heartbeat(context.Background(), ""), domain.ErrUnauthenticated)
}

func TestStatusForUnknownUser(t *testing.T) {
	svc, _ := newRedisBacked(t)

	status, err := svc.Status(context.Background(), ghost)
	require.NoError(t, err)
	assert.False(t, status.Online)
	assert.Nil(t, status.LastSeen)
}

func TestBatchIsOnlineCoversEveryID(t *testing.T) {
	svc, _ := newRedisBacked(t)
	ctx := context.Background()
	require.NoError(t, svc.Heartbeat(ctx, u1))
	require.NoError(t, svc.Heartbeat(ctx, u3))

	got, err := svc.BatchIsOnline(ctx, []string{u1, u2, u3, u1, ""})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{u1: true, u2: false, u3: true, "": false}, got)

	_, err = svc.BatchIsOnline(ctx, make([]string, 11))
	assert.ErrorIs(t, err, domain.ErrBatchTooLarge)
}

type flakyStore struct {
	store.PresenceStore
	failOnline   bool
	lastSeenHits int
}

func (f *flakyStore) SetOnline(context.Context, string, time.Duration) error {
	if f.failOnline {
		return errors.New("online write failed")
	}
	return nil
}

func (f *flakyStore) SetLastSeen(context.Context, string, time.Time) error {
	f.lastSeenHits++
	return nil
}

func (f *flakyStore) IsOnline(_ context.Context, userID string) (bool, error) {
	if userID == broken {
		return false, errors.New("connection reset")
	}
	return true, nil
}

func TestHeartbeatAttemptsBothWrites(t *testing.T) {
	fs := &flakyStore{failOnline: true}
	svc := NewPresenceService(fs, Config{TTL: time.Minute})

	err := svc.Heartbeat(context.Background(), u1)
	assert.ErrorContains(t, err, "online write failed")
	assert.Equal(t, 1, fs.lastSeenHits)
}

func TestBatchTreatsErrorsAsOffline(t *testing.T) {
	svc := NewPresenceService(&flakyStore{}, Config{TTL: time.Minute})

	got, err := svc.BatchIsOnline(context.Background(), []string{u1, broken})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{u1: true, broken: false}, got)
}

func TestLastSeen(t *testing.T) {
	svc, _ := newRedisBacked(t)
	ctx := context.Background()

	at, err := svc.LastSeen(ctx, u1)
	require.NoError(t, err)
	assert.Nil(t, at)

	stamp := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return stamp }
	require.NoError(t, svc.Heartbeat(ctx, u1))

	at, err = svc.LastSeen(ctx, u1)
	require.NoError(t, err)
	require.NotNil(t, at)
	assert.True(t, stamp.Equal(*at))

	_, err = svc.LastSeen(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrInvalidUserID)
}

func TestPresenceIgnoresUUIDSpelling(t *testing.T) {
	svc, _ := newRedisBacked(t)
	ctx := context.Background()
	upper := strings.ToUpper(u1)

	require.NoError(t, svc.Heartbeat(ctx, upper))

	online, err := svc.IsOnline(ctx, u1)
	require.NoError(t, err)
	assert.True(t, online)

	status, err := svc.Status(ctx, "{"+u1+"}")
	require.NoError(t, err)
	assert.Equal(t, u1, status.UserID)
	assert.True(t, status.Online)

	got, err := svc.BatchIsOnline(ctx, []string{u1, upper, "not-a-uuid"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{u1: true, upper: true, "not-a-uuid": false}, got)

	_, err = svc.IsOnline(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrInvalidUserID)
	assert.ErrorIs(t, svc.Heartbeat(ctx, "not-a-uuid"), domain.ErrUnauthenticated)
}
