package history

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-chat/chat-service/internal/domain"
)

func appendN(t *testing.T, s Store, channel string, n int, start time.Time) []*domain.ChatMessage {
	t.Helper()
	out := make([]*domain.ChatMessage, 0, n)
	for i := 0; i < n; i++ {
		m, err := s.Append(context.Background(), &domain.ChatMessage{
			Channel:    channel,
			FromUserID: "u1",
			RoomID:     "lobby",
			Text:       fmt.Sprintf("msg %d", i),
			SentAt:     start.Add(time.Duration(i) * time.Millisecond),
		})
		require.NoError(t, err)
		out = append(out, m)
	}
	return out
}

func TestMemoryStorePaging(t *testing.T) {
	s := NewMemoryStore(0)
	msgs := appendN(t, s, "room:lobby", 5, time.Now())

	page, err := s.LoadPage(context.Background(), "room:lobby", "", 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, msgs[0].ID, page.Items[0].ID)
	assert.Equal(t, msgs[1].ID, page.NextAfterID)

	page, err = s.LoadPage(context.Background(), "room:lobby", page.NextAfterID, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "msg 2", page.Items[0].Text)

	page, err = s.LoadPage(context.Background(), "room:lobby", page.NextAfterID, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Empty(t, page.NextAfterID)
}

func TestMemoryStoreIdsAreSortable(t *testing.T) {
	s := NewMemoryStore(0)
	msgs := appendN(t, s, "room:lobby", 50, time.Now())
	for i := 1; i < len(msgs); i++ {
		assert.Less(t, msgs[i-1].ID, msgs[i].ID)
	}
}

func TestMemoryStoreRetention(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	now := time.Now()
	s.now = func() time.Time { return now }

	appendN(t, s, "room:lobby", 2, now.Add(-2*time.Hour))
	fresh := appendN(t, s, "room:lobby", 1, now)

	page, err := s.LoadPage(context.Background(), "room:lobby", "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, fresh[0].ID, page.Items[0].ID)
}

func TestMemoryStoreRejectsBadCursor(t *testing.T) {
	s := NewMemoryStore(0)
	_, err := s.LoadPage(context.Background(), "room:lobby", "not-a-ulid", 10)
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestMemoryStoreHonoursCancellation(t *testing.T) {
	s := NewMemoryStore(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Append(ctx, &domain.ChatMessage{Channel: "room:lobby", Text: "x", SentAt: time.Now()})
	assert.ErrorIs(t, err, context.Canceled)

	page, err := s.LoadPage(context.Background(), "room:lobby", "", 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

type countingStore struct {
	Store
	loads   atomic.Int32
	release chan struct{}
}

func (c *countingStore) LoadPage(ctx context.Context, channel, afterID string, take int) (*domain.HistoryPage, error) {
	c.loads.Add(1)
	<-c.release
	return c.Store.LoadPage(ctx, channel, afterID, take)
}

func TestDeduplicatedCollapsesConcurrentLoads(t *testing.T) {
	inner := &countingStore{Store: NewMemoryStore(0), release: make(chan struct{})}
	appendN(t, inner, "room:lobby", 3, time.Now())
	d := NewDeduplicated(inner)

	var wg sync.WaitGroup
	pages := make([]*domain.HistoryPage, 4)
	for i := range pages {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := d.LoadPage(context.Background(), "room:lobby", "", 10)
			assert.NoError(t, err)
			pages[i] = p
		}(i)
	}

	require.Eventually(t, func() bool { return inner.loads.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(inner.release)
	wg.Wait()

	assert.LessOrEqual(t, inner.loads.Load(), int32(4))
	for _, p := range pages {
		require.NotNil(t, p)
		assert.Len(t, p.Items, 3)
	}
	pages[0].Items[0].Text = "mutated"
	assert.Equal(t, "msg 0", pages[1].Items[0].Text)
}

func TestTTLSeconds(t *testing.T) {
	assert.Equal(t, 0, ttlSeconds(0))
	assert.Equal(t, 1, ttlSeconds(10*time.Millisecond))
	assert.Equal(t, 86400, ttlSeconds(24*time.Hour))
}
