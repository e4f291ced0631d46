package domain

import (
	"sort"
	"sync"
	"time"
)

// Session is the per-connection state owned by the hub.
type Session struct {
	ID           string
	UserID       string
	Username     string
	CreatedAt    time.Time
	LastActiveAt time.Time
	channels     map[string]struct{}
	mu           sync.RWMutex
}

func NewSession(id, userID, username string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		UserID:       userID,
		Username:     username,
		CreatedAt:    now,
		LastActiveAt: now,
		channels:     make(map[string]struct{}),
	}
}

// AddChannel records a subscription and reports whether it is new.
func (s *Session) AddChannel(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[channel]; ok {
		return false
	}
	s.channels[channel] = struct{}{}
	return true
}

func (s *Session) RemoveChannel(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, channel)
}

func (s *Session) HasChannel(channel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.channels[channel]
	return ok
}

// Channels returns the subscribed channels sorted.
func (s *Session) Channels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.channels))
	for ch := range s.channels {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
}
