package broadcast

import (
	"context"
	"fmt"

	"github.com/weiawesome/wes-io-chat/chat-service/internal/domain"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/hub"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/metrics"
	"github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/pubsub"
)

// Relay fans accepted messages out to the other chat instances and delivers
// their messages to local subscribers.
type Relay struct {
	bus        pubsub.PubSub
	hub        *hub.Hub
	instanceID string
}

func NewRelay(bus pubsub.PubSub, h *hub.Hub, instanceID string) *Relay {
	return &Relay{bus: bus, hub: h, instanceID: instanceID}
}

// Publish announces msg to the other instances.
func (r *Relay) Publish(ctx context.Context, msg *domain.ChatMessage) error {
	ev, err := pubsub.NewEvent(pubsub.EventChatMessage, msg.Channel, r.instanceID, msg)
	if err != nil {
		return fmt.Errorf("build broadcast event: %w", err)
	}
	if err := r.bus.Publish(ctx, pubsub.BroadcastChannel(msg.Channel), ev); err != nil {
		metrics.IncBusPublishError()
		return fmt.Errorf("publish broadcast: %w", err)
	}
	return nil
}

// Run consumes the bus until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	events, err := r.bus.SubscribePattern(ctx, pubsub.PatternBroadcast)
	if err != nil {
		return fmt.Errorf("subscribe broadcast bus: %w", err)
	}

	l := log.L()
	l.Info().Str(log.FieldInstance, r.instanceID).Msg("broadcast relay started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			r.deliver(ev)
		}
	}
}

func (r *Relay) deliver(ev *pubsub.Event) {
	if ev.Origin == r.instanceID || ev.Type != pubsub.EventChatMessage {
		return
	}

	l := log.L()
	var msg domain.ChatMessage
	if err := ev.UnmarshalPayload(&msg); err != nil {
		l.Warn().Err(err).Str(log.FieldChannel, ev.Channel).Msg("dropping undecodable broadcast")
		return
	}
	if msg.Channel != ev.Channel {
		l.Warn().Str(log.FieldChannel, ev.Channel).Msg("dropping broadcast with mismatched channel")
		return
	}

	// The recipient may be connected here even though the sender is not.
	if msg.ToUserID != "" {
		r.hub.SubscribeUser(msg.ToUserID, msg.Channel)
	}

	n, err := r.hub.BroadcastMessage(msg.Channel, domain.NewMessageFrame(&msg))
	if err != nil {
		l.Error().Err(err).Str(log.FieldMessageID, msg.ID).Msg("failed to relay broadcast")
		return
	}
	metrics.ObserveBroadcast(n)
}
