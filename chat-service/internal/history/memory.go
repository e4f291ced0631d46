package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/weiawesome/wes-io-chat/chat-service/internal/domain"
)

// MemoryStore keeps history in process. Messages older than the retention
// window are dropped lazily.
type MemoryStore struct {
	mu        sync.RWMutex
	channels  map[string][]*domain.ChatMessage
	ids       *IDGenerator
	retention time.Duration
	now       func() time.Time
}

func NewMemoryStore(retention time.Duration) *MemoryStore {
	return &MemoryStore{
		channels:  make(map[string][]*domain.ChatMessage),
		ids:       NewIDGenerator(),
		retention: retention,
		now:       time.Now,
	}
}

func (s *MemoryStore) Append(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := s.ids.New(msg.SentAt)
	if err != nil {
		return nil, err
	}

	stored := *msg
	stored.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := append(s.channels[msg.Channel], &stored)
	// Callers may pass SentAt values slightly out of order.
	if n := len(msgs); n > 1 && msgs[n-2].ID > id {
		sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
	}
	s.channels[msg.Channel] = msgs

	out := stored
	return &out, nil
}

func (s *MemoryStore) LoadPage(ctx context.Context, channel, afterID string, take int) (*domain.HistoryPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ValidCursor(afterID) {
		return nil, ErrInvalidCursor
	}

	s.mu.Lock()
	msgs := s.prune(channel)
	start := 0
	if afterID != "" {
		start = sort.Search(len(msgs), func(i int) bool { return msgs[i].ID > afterID })
	}
	end := start + take
	if end > len(msgs) {
		end = len(msgs)
	}
	items := make([]*domain.ChatMessage, 0, end-start)
	for _, m := range msgs[start:end] {
		cp := *m
		items = append(items, &cp)
	}
	hasMore := end < len(msgs)
	s.mu.Unlock()

	page := &domain.HistoryPage{Channel: channel, Items: items}
	if hasMore && len(items) > 0 {
		page.NextAfterID = items[len(items)-1].ID
	}
	return page, nil
}

// prune must be called with mu held.
func (s *MemoryStore) prune(channel string) []*domain.ChatMessage {
	msgs := s.channels[channel]
	if s.retention <= 0 {
		return msgs
	}
	cutoff := s.now().Add(-s.retention)
	i := 0
	for i < len(msgs) && msgs[i].SentAt.Before(cutoff) {
		i++
	}
	if i > 0 {
		msgs = msgs[i:]
		s.channels[channel] = msgs
	}
	return msgs
}
