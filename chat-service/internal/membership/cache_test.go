package membership

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	statuses map[string]Status
	err      error
	calls    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{statuses: make(map[string]Status)}
}

func (f *fakeStore) set(roomID, userID string, s Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[roomID+"/"+userID] = s
}

func (f *fakeStore) MembershipStatus(ctx context.Context, roomID, userID string) (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return StatusNone, f.err
	}
	return f.statuses[roomID+"/"+userID], nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func setup(t *testing.T) (*miniredis.Miniredis, *fakeStore, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := newFakeStore()
	return mr, store, NewCache(client, store, time.Minute)
}

func TestCacheHitAvoidsStore(t *testing.T) {
	mr, store, cache := setup(t)
	ctx := context.Background()
	store.set("r1", "u1", StatusApproved)

	ok, err := cache.IsApprovedMember(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, store.callCount())

	ok, err = cache.IsApprovedMember(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, store.callCount())

	isMember, err := mr.SIsMember(DefaultKeyPrefix+"r1", "u1")
	require.NoError(t, err)
	assert.True(t, isMember)
	assert.InDelta(t, time.Minute.Seconds(), mr.TTL(DefaultKeyPrefix+"r1").Seconds(), 1)
}

func TestPendingAndRejectedAreDenied(t *testing.T) {
	mr, store, cache := setup(t)
	ctx := context.Background()
	store.set("r1", "pending", StatusPending)
	store.set("r1", "rejected", StatusRejected)

	for _, user := range []string{"pending", "rejected", "stranger"} {
		ok, err := cache.IsApprovedMember(ctx, "r1", user)
		require.NoError(t, err)
		assert.False(t, ok, user)
	}
	assert.False(t, mr.Exists(DefaultKeyPrefix+"r1"))
}

func TestRevocationVisibleOnlyAfterTTL(t *testing.T) {
	mr, store, cache := setup(t)
	ctx := context.Background()
	store.set("r1", "u1", StatusApproved)

	ok, err := cache.IsApprovedMember(ctx, "r1", "u1")
	require.NoError(t, err)
	require.True(t, ok)

	store.set("r1", "u1", StatusRejected)

	// Still cached: bounded staleness.
	ok, err = cache.IsApprovedMember(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(time.Minute + time.Second)

	ok, err = cache.IsApprovedMember(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, store.callCount())
}

func TestInvalidateForcesStoreRead(t *testing.T) {
	_, store, cache := setup(t)
	ctx := context.Background()
	store.set("r1", "u1", StatusApproved)

	_, err := cache.IsApprovedMember(ctx, "r1", "u1")
	require.NoError(t, err)

	store.set("r1", "u1", StatusRejected)
	require.NoError(t, cache.Invalidate(ctx, "r1", "u1"))

	ok, err := cache.IsApprovedMember(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreErrorPropagates(t *testing.T) {
	_, store, cache := setup(t)
	store.err = errors.New("db down")

	_, err := cache.IsApprovedMember(context.Background(), "r1", "u1")
	assert.ErrorIs(t, err, store.err)
}

func TestCacheOutageFallsBackToStore(t *testing.T) {
	mr, store, cache := setup(t)
	store.set("r1", "u1", StatusApproved)
	mr.SetError("ERR injected failure")

	ok, err := cache.IsApprovedMember(context.Background(), "r1", "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, store.callCount())
}
