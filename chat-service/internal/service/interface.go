package service

import (
	"context"

	"github.com/weiawesome/wes-io-chat/chat-service/internal/access"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/domain"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/hub"
)

// ChatService implements the connection gateway operations. Every operation
// is scoped to the calling connection; errors are never broadcast.
type ChatService interface {
	Connect(ctx context.Context, c *hub.Client) error
	Disconnect(ctx context.Context, c *hub.Client)
	SendDirect(ctx context.Context, c *hub.Client, toUserID, text string) (*domain.ChatMessage, error)
	SendToRoom(ctx context.Context, c *hub.Client, roomID, text string) (*domain.ChatMessage, error)
	LoadHistory(ctx context.Context, userID, channel, afterID string, take int) (*domain.HistoryPage, error)
	JoinChannels(ctx context.Context, c *hub.Client, channels []string) ([]string, error)
}

// AccessValidator authorizes users against channels.
type AccessValidator interface {
	Validate(ctx context.Context, userID, channelID string) (access.Decision, error)
	ValidateChannel(ctx context.Context, userID string, ch domain.Channel) (access.Decision, error)
}

// RateLimiter admits or rejects one event for a connection.
type RateLimiter interface {
	Allow(ctx context.Context, connectionID string) bool
}

// Publisher forwards accepted messages to other instances.
type Publisher interface {
	Publish(ctx context.Context, msg *domain.ChatMessage) error
}
