package history

import (
	"context"
	"errors"

	"github.com/weiawesome/wes-io-chat/chat-service/internal/domain"
)

var ErrInvalidCursor = errors.New("invalid history cursor")

// Store persists chat messages and pages through them oldest first.
type Store interface {
	// Append assigns the message an id, persists it and returns it.
	Append(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error)
	// LoadPage returns up to take messages with ids after afterID.
	// NextAfterID is set only when more messages follow.
	LoadPage(ctx context.Context, channel, afterID string, take int) (*domain.HistoryPage, error)
}
