package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ChatMessage is the envelope persisted and broadcast for every accepted send.
type ChatMessage struct {
	ID         string    `json:"id"`
	Channel    string    `json:"channel"`
	FromUserID string    `json:"fromUserId"`
	ToUserID   string    `json:"toUserId,omitempty"`
	RoomID     string    `json:"roomId,omitempty"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sentAt"`
}

// NewChatMessage builds an unsaved message for ch. The store assigns ID.
func NewChatMessage(ch Channel, fromUserID, text string, now time.Time) *ChatMessage {
	m := &ChatMessage{
		Channel:    ch.ID,
		FromUserID: fromUserID,
		Text:       text,
		SentAt:     now.UTC(),
	}
	if ch.Kind == ChannelDirect {
		m.ToUserID = ch.Peer(fromUserID)
	} else {
		m.RoomID = ch.RoomID
	}
	return m
}

// ValidateText rejects blank text and text longer than maxRunes.
// maxRunes <= 0 disables the length check.
func ValidateText(text string, maxRunes int) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text must not be empty", ErrInvalidMessage)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: text must be valid utf-8", ErrInvalidMessage)
	}
	if maxRunes > 0 && utf8.RuneCountInString(text) > maxRunes {
		return fmt.Errorf("%w: text exceeds %d characters", ErrInvalidMessage, maxRunes)
	}
	return nil
}

// HistoryPage is one page of a channel's history, oldest first.
type HistoryPage struct {
	Channel     string         `json:"channel"`
	Items       []*ChatMessage `json:"items"`
	NextAfterID string         `json:"nextAfterId,omitempty"`
}
