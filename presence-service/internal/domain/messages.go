package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidUserID   = errors.New("invalid user id")
	ErrBatchTooLarge   = errors.New("too many user ids")
)

// CanonicalUserID returns the lowercase hyphenated form of a UUID user id so
// every spelling of one user maps to the same presence keys.
func CanonicalUserID(id string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", ErrInvalidUserID
	}
	return u.String(), nil
}

// WebSocket message types from client.
const (
	MsgTypeHeartbeat = "heartbeat"
	MsgTypePing      = "ping"
)

// WebSocket message types to client.
const (
	MsgTypeHeartbeatAck = "heartbeat_ack"
	MsgTypeError        = "error"
	MsgTypePong         = "pong"
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// HeartbeatAckMessage confirms a recorded heartbeat.
type HeartbeatAckMessage struct {
	Type       string `json:"type"`
	TTLSeconds int    `json:"ttl_seconds"`
}

// ErrorMessage is sent when an error occurs.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewErrorMessage creates a new error message.
func NewErrorMessage(message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Message: message,
	}
}

// UserPresence is the public view of one user's presence.
// LastSeen is unix milliseconds, omitted when the user was never seen.
type UserPresence struct {
	UserID   string `json:"user_id"`
	Online   bool   `json:"online"`
	LastSeen *int64 `json:"last_seen,omitempty"`
}

// BatchRequest is the body of POST /api/v1/presence/batch.
type BatchRequest struct {
	UserIDs []string `json:"user_ids"`
}

// BatchResponse maps every requested user id to its online flag.
type BatchResponse struct {
	Online map[string]bool `json:"online"`
}
