package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/weiawesome/wes-io-chat/chat-service/internal/audit"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/domain"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/history"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/hub"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/metrics"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/ratelimit"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/registry"
	"github.com/weiawesome/wes-io-chat/pkg/log"
)

// Options bounds message and page sizes.
type Options struct {
	MaxPageSize      int
	DefaultPageSize  int
	MaxMessageLength int
}

type chatService struct {
	hub       *hub.Hub
	access    AccessValidator
	limiter   RateLimiter
	history   history.Store
	registry  registry.Registry
	publisher Publisher
	opts      Options
	now       func() time.Time
}

// NewChatService wires the gateway. publisher may be nil for a single instance.
func NewChatService(
	h *hub.Hub,
	validator AccessValidator,
	limiter RateLimiter,
	store history.Store,
	reg registry.Registry,
	publisher Publisher,
	opts Options,
) ChatService {
	s := &chatService{
		hub:       h,
		access:    validator,
		limiter:   limiter,
		history:   store,
		registry:  reg,
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
	}
	h.OnEvict = s.evicted
	return s
}

func (s *chatService) Connect(ctx context.Context, c *hub.Client) error {
	// Sessions are indexed by user id, so only the canonical form is accepted.
	if id, err := domain.CanonicalUserID(c.UserID()); err != nil || id != c.UserID() {
		return domain.ErrUnauthenticated
	}

	s.hub.Register(c)
	metrics.IncWSActive()

	if err := s.registry.Register(ctx, c.ID, c.UserID()); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("failed to record connection in registry")
	}

	audit.Log(ctx, audit.ActionConnect, c.UserID(), "connection opened")
	return nil
}

func (s *chatService) Disconnect(ctx context.Context, c *hub.Client) {
	if s.hub.Unregister(c) {
		s.release(ctx, c)
		audit.Log(ctx, audit.ActionDisconnect, c.UserID(), "connection closed")
	}
}

// evicted releases a client the hub dropped for being too slow.
func (s *chatService) evicted(c *hub.Client) {
	metrics.IncSlowClientEviction()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.release(ctx, c)
}

func (s *chatService) release(ctx context.Context, c *hub.Client) {
	metrics.DecWSActive()
	if err := s.registry.Deregister(ctx, c.ID, ratelimit.Key(c.ID)); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("failed to remove connection keys")
	}
}

func (s *chatService) SendDirect(ctx context.Context, c *hub.Client, toUserID, text string) (*domain.ChatMessage, error) {
	from := c.UserID()

	if err := domain.ValidateText(text, s.opts.MaxMessageLength); err != nil {
		return nil, err
	}
	to, err := domain.CanonicalUserID(toUserID)
	if err != nil {
		return nil, err
	}
	if to == from {
		return nil, domain.ErrSelfMessage
	}

	ch, err := domain.DirectChannel(from, to)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, from, ch); err != nil {
		return nil, err
	}
	if err := s.admit(ctx, c); err != nil {
		return nil, err
	}

	stored, err := s.persist(ctx, domain.NewChatMessage(ch, from, text, s.now()))
	if err != nil {
		return nil, err
	}

	if err := s.hub.Subscribe(c, ch.ID); err != nil {
		l := log.Ctx(ctx)
		l.Debug().Err(err).Msg("sender left before subscription")
	}
	s.hub.SubscribeUser(ch.Peer(from), ch.ID)

	s.deliver(ctx, stored)
	metrics.IncMessage(string(domain.ChannelDirect))
	audit.LogTarget(ctx, audit.ActionSendDirect, from, ch.Peer(from), "direct message sent")
	return stored, nil
}

func (s *chatService) SendToRoom(ctx context.Context, c *hub.Client, roomID, text string) (*domain.ChatMessage, error) {
	from := c.UserID()

	if err := domain.ValidateText(text, s.opts.MaxMessageLength); err != nil {
		return nil, err
	}

	ch, err := domain.RoomChannel(roomID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, from, ch); err != nil {
		return nil, err
	}
	if err := s.admit(ctx, c); err != nil {
		return nil, err
	}

	stored, err := s.persist(ctx, domain.NewChatMessage(ch, from, text, s.now()))
	if err != nil {
		return nil, err
	}

	if err := s.hub.Subscribe(c, ch.ID); err != nil {
		l := log.Ctx(ctx)
		l.Debug().Err(err).Msg("sender left before subscription")
	}

	s.deliver(ctx, stored)
	metrics.IncMessage(string(domain.ChannelRoom))
	audit.LogTarget(ctx, audit.ActionSendRoom, from, ch.ID, "room message sent")
	return stored, nil
}

func (s *chatService) LoadHistory(ctx context.Context, userID, channel, afterID string, take int) (*domain.HistoryPage, error) {
	decision, err := s.access.Validate(ctx, userID, channel)
	if err != nil {
		return nil, fmt.Errorf("validate channel access: %w", err)
	}
	if !decision.Allowed() {
		s.denied(ctx, userID, channel, decision.Err())
		return nil, decision.Err()
	}
	if !history.ValidCursor(afterID) {
		return nil, fmt.Errorf("%w: malformed afterId", domain.ErrInvalidMessage)
	}

	page, err := s.history.LoadPage(ctx, decision.Channel.ID, afterID, s.clampTake(take))
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return page, nil
}

func (s *chatService) JoinChannels(ctx context.Context, c *hub.Client, channels []string) ([]string, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("%w: no channels given", domain.ErrInvalidMessage)
	}

	seen := make(map[string]struct{}, len(channels))
	ids := make([]string, 0, len(channels))
	for _, id := range channels {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		decision, err := s.access.Validate(ctx, c.UserID(), id)
		if err != nil {
			return nil, fmt.Errorf("validate channel access: %w", err)
		}
		if !decision.Allowed() {
			s.denied(ctx, c.UserID(), id, decision.Err())
			return nil, decision.Err()
		}
		ids = append(ids, decision.Channel.ID)
	}

	if err := s.admit(ctx, c); err != nil {
		return nil, err
	}
	if err := s.hub.Subscribe(c, ids...); err != nil {
		return nil, err
	}

	audit.LogWithDetail(ctx, audit.ActionJoinChannels, c.UserID(), strings.Join(ids, ","), "joined channels")
	return ids, nil
}

func (s *chatService) authorize(ctx context.Context, userID string, ch domain.Channel) error {
	decision, err := s.access.ValidateChannel(ctx, userID, ch)
	if err != nil {
		return fmt.Errorf("validate channel access: %w", err)
	}
	if !decision.Allowed() {
		s.denied(ctx, userID, ch.ID, decision.Err())
		return decision.Err()
	}
	return nil
}

func (s *chatService) denied(ctx context.Context, userID, channel string, err error) {
	if errors.Is(err, domain.ErrForbidden) {
		audit.LogTarget(ctx, audit.ActionAccessDenied, userID, channel, "channel access denied")
	}
}

func (s *chatService) admit(ctx context.Context, c *hub.Client) error {
	if !s.limiter.Allow(ctx, c.ID) {
		audit.Log(ctx, audit.ActionRateLimited, c.UserID(), "rate limit exceeded")
		return domain.ErrRateLimited
	}
	return nil
}

func (s *chatService) persist(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stored, err := s.history.Append(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return stored, nil
}

// deliver runs only after a successful append.
func (s *chatService) deliver(ctx context.Context, msg *domain.ChatMessage) {
	l := log.Ctx(ctx)

	n, err := s.hub.BroadcastMessage(msg.Channel, domain.NewMessageFrame(msg))
	if err != nil {
		l.Error().Err(err).Str(log.FieldMessageID, msg.ID).Msg("failed to broadcast message")
		return
	}
	metrics.ObserveBroadcast(n)

	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		l.Warn().Err(err).Str(log.FieldMessageID, msg.ID).Msg("failed to relay message to other instances")
	}
}

func (s *chatService) clampTake(take int) int {
	if take <= 0 {
		take = s.opts.DefaultPageSize
	}
	if s.opts.MaxPageSize > 0 && take > s.opts.MaxPageSize {
		take = s.opts.MaxPageSize
	}
	if take <= 0 {
		take = 1
	}
	return take
}
