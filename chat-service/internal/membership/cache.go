package membership

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/wes-io-chat/pkg/log"
)

const (
	DefaultTTL       = time.Minute
	DefaultKeyPrefix = "chat:membership:room:"
)

// Cache is a cache-aside view of approved room members. Entries are only
// invalidated by TTL, so a revoked member can still pass for up to one TTL.
type Cache struct {
	client *redis.Client
	store  Store
	ttl    time.Duration
	prefix string
}

func NewCache(client *redis.Client, store Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		client: client,
		store:  store,
		ttl:    ttl,
		prefix: DefaultKeyPrefix,
	}
}

func (c *Cache) key(roomID string) string {
	return c.prefix + roomID
}

// IsApprovedMember checks the cached set first and falls back to the store.
func (c *Cache) IsApprovedMember(ctx context.Context, roomID, userID string) (bool, error) {
	l := log.Ctx(ctx)
	key := c.key(roomID)

	hit, err := c.client.SIsMember(ctx, key, userID).Result()
	if err != nil {
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("membership cache read failed, querying store")
	} else if hit {
		return true, nil
	}

	status, err := c.store.MembershipStatus(ctx, roomID, userID)
	if err != nil {
		return false, fmt.Errorf("membership lookup: %w", err)
	}

	if status != StatusApproved {
		if err := c.client.SRem(ctx, key, userID).Err(); err != nil {
			l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to drop user from membership cache")
		}
		return false, nil
	}

	pipe := c.client.TxPipeline()
	pipe.SAdd(ctx, key, userID)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to cache membership")
	}
	return true, nil
}

// Invalidate drops a cached member so the next check re-reads the store.
func (c *Cache) Invalidate(ctx context.Context, roomID, userID string) error {
	return c.client.SRem(ctx, c.key(roomID), userID).Err()
}
