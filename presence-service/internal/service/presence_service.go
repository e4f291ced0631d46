package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/presence-service/internal/domain"
	"github.com/weiawesome/wes-io-chat/presence-service/internal/store"
)

// batchConcurrency caps in-flight EXISTS calls per batch.
const batchConcurrency = 16

// Config holds presence service configuration.
type Config struct {
	TTL          time.Duration
	MaxBatchSize int
}

type presenceService struct {
	store  store.PresenceStore
	config Config
	now    func() time.Time
}

// NewPresenceService creates a new PresenceService instance.
func NewPresenceService(s store.PresenceStore, cfg Config) PresenceService {
	return &presenceService{
		store:  s,
		config: cfg,
		now:    time.Now,
	}
}

func (s *presenceService) Heartbeat(ctx context.Context, userID string) error {
	userID, err := domain.CanonicalUserID(userID)
	if err != nil {
		return domain.ErrUnauthenticated
	}

	// Both writes are attempted even when one fails.
	var errs []error
	if err := s.store.SetOnline(ctx, userID, s.config.TTL); err != nil {
		errs = append(errs, fmt.Errorf("set online flag: %w", err))
	}
	if err := s.store.SetLastSeen(ctx, userID, s.now()); err != nil {
		errs = append(errs, fmt.Errorf("set last seen: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("heartbeat partially failed")
		return err
	}
	return nil
}

func (s *presenceService) IsOnline(ctx context.Context, userID string) (bool, error) {
	userID, err := domain.CanonicalUserID(userID)
	if err != nil {
		return false, err
	}
	return s.store.IsOnline(ctx, userID)
}

func (s *presenceService) BatchIsOnline(ctx context.Context, userIDs []string) (map[string]bool, error) {
	if s.config.MaxBatchSize > 0 && len(userIDs) > s.config.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d > %d", domain.ErrBatchTooLarge, len(userIDs), s.config.MaxBatchSize)
	}

	// Results are keyed by the ids as requested. Ids that are not UUIDs
	// report offline without a lookup.
	result := make(map[string]bool, len(userIDs))
	lookups := make(map[string][]string, len(userIDs))
	for _, id := range userIDs {
		if _, seen := result[id]; seen {
			continue
		}
		result[id] = false
		if canonical, err := domain.CanonicalUserID(id); err == nil {
			lookups[canonical] = append(lookups[canonical], id)
		}
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(batchConcurrency)

	for userID, requested := range lookups {
		userID, requested := userID, requested
		g.Go(func() error {
			online, err := s.store.IsOnline(ctx, userID)
			if err != nil {
				l := log.Ctx(ctx)
				l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("presence lookup failed, reporting offline")
				return nil
			}
			if online {
				mu.Lock()
				for _, id := range requested {
					result[id] = true
				}
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	return result, nil
}

func (s *presenceService) LastSeen(ctx context.Context, userID string) (*time.Time, error) {
	userID, err := domain.CanonicalUserID(userID)
	if err != nil {
		return nil, err
	}
	at, ok, err := s.store.LastSeen(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load last seen: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &at, nil
}

func (s *presenceService) Status(ctx context.Context, userID string) (*domain.UserPresence, error) {
	userID, err := domain.CanonicalUserID(userID)
	if err != nil {
		return nil, err
	}

	online, err := s.IsOnline(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &domain.UserPresence{UserID: userID, Online: online}

	at, err := s.LastSeen(ctx, userID)
	if err != nil {
		return nil, err
	}
	if at != nil {
		ms := at.UnixMilli()
		p.LastSeen = &ms
	}
	return p, nil
}
