package service

import (
	"context"
	"time"

	"github.com/weiawesome/wes-io-chat/presence-service/internal/domain"
)

// PresenceService records and answers "recently active" state per user.
type PresenceService interface {
	// Heartbeat marks userID online for the presence window and stamps last-seen.
	Heartbeat(ctx context.Context, userID string) error

	// IsOnline reports whether the user's online flag has not yet expired.
	IsOnline(ctx context.Context, userID string) (bool, error)

	// BatchIsOnline checks every user in parallel. The result has an entry for
	// every requested id; lookups that fail count as offline.
	BatchIsOnline(ctx context.Context, userIDs []string) (map[string]bool, error)

	// LastSeen returns the last heartbeat time, or nil when the user was never seen.
	LastSeen(ctx context.Context, userID string) (*time.Time, error)

	// Status returns the online flag and last-seen timestamp together.
	Status(ctx context.Context, userID string) (*domain.UserPresence, error)
}
