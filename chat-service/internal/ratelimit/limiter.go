package ratelimit

import (
	"context"
	"strconv"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/weiawesome/wes-io-chat/pkg/log"
)

const KeyPrefix = "chat:ratelimit:conn:"

// Config is the per-connection budget. A non-positive value disables limiting.
type Config struct {
	Window    time.Duration
	MaxEvents int
}

// Limiter enforces a sliding-window event budget per connection.
type Limiter struct {
	store WindowStore
	cfg   Config
	now   func() time.Time
	nonce func() (string, error)
}

func NewLimiter(store WindowStore, cfg Config) *Limiter {
	return &Limiter{
		store: store,
		cfg:   cfg,
		now:   time.Now,
		nonce: func() (string, error) { return gonanoid.New(12) },
	}
}

// Key returns the window key for a connection.
func Key(connectionID string) string {
	return KeyPrefix + connectionID
}

func (l *Limiter) Enabled() bool {
	return l.cfg.MaxEvents > 0 && l.cfg.Window > 0
}

// Allow records an event for connectionID and reports whether it fits the
// budget. Store failures allow the event.
func (l *Limiter) Allow(ctx context.Context, connectionID string) bool {
	if !l.Enabled() {
		return true
	}

	logger := log.Ctx(ctx)
	now := l.now()

	nonce, err := l.nonce()
	if err != nil {
		nonce = strconv.FormatInt(now.UnixNano(), 36)
	}
	member := strconv.FormatInt(now.UnixMilli(), 10) + "-" + nonce

	count, err := l.store.TryAcquire(ctx, Key(connectionID), now, member, l.cfg.Window)
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldConnectionID, connectionID).Msg("rate limit store unavailable, allowing event")
		return true
	}

	return count <= int64(l.cfg.MaxEvents)
}

// Reset discards the connection's window.
func (l *Limiter) Reset(ctx context.Context, connectionID string) error {
	return l.store.Reset(ctx, Key(connectionID))
}
