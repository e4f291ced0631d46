package store

import (
	"context"
	"time"
)

// PresenceStore holds the two presence keys of a user. They are written
// independently and are never updated atomically together.
type PresenceStore interface {
	// SetOnline marks the user online for ttl. Expiry is the only offline signal.
	SetOnline(ctx context.Context, userID string, ttl time.Duration) error

	// SetLastSeen overwrites the user's last-seen timestamp. It never expires.
	SetLastSeen(ctx context.Context, userID string, at time.Time) error

	// IsOnline reports whether the online flag currently exists.
	IsOnline(ctx context.Context, userID string) (bool, error)

	// LastSeen returns the last-seen timestamp; ok is false when the user was never seen.
	LastSeen(ctx context.Context, userID string) (at time.Time, ok bool, err error)

	// Close closes the store connection.
	Close() error
}
