package domain

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ChannelKind distinguishes direct conversations from room conversations.
type ChannelKind string

const (
	ChannelDirect ChannelKind = "dm"
	ChannelRoom   ChannelKind = "room"
)

const (
	directPrefix  = "dm:"
	roomPrefix    = "room:"
	pairSeparator = "_"
	maxRoomIDLen  = 128
)

// Channel is a parsed channel identifier.
type Channel struct {
	Kind ChannelKind
	ID   string

	// RoomID is set for room channels.
	RoomID string
	// Users holds both participants of a direct channel in canonical order.
	Users [2]string
}

// Includes reports whether userID is one of the two direct-channel participants.
func (c Channel) Includes(userID string) bool {
	if c.Kind != ChannelDirect {
		return false
	}
	return c.Users[0] == userID || c.Users[1] == userID
}

// Peer returns the other participant of a direct channel.
func (c Channel) Peer(userID string) string {
	switch userID {
	case c.Users[0]:
		return c.Users[1]
	case c.Users[1]:
		return c.Users[0]
	}
	return ""
}

// CanonicalUserID returns the lowercase hyphenated form of a UUID user id
// given in any spelling uuid.Parse accepts.
func CanonicalUserID(id string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", fmt.Errorf("%w: user id %q", ErrInvalidChannel, id)
	}
	return u.String(), nil
}

// DirectChannel returns the canonical direct channel for an unordered pair of
// user ids. Ids are compared as 16-byte UUID values, which orders them the
// same way as their lowercase string form.
func DirectChannel(userA, userB string) (Channel, error) {
	a, err := uuid.Parse(userA)
	if err != nil {
		return Channel{}, fmt.Errorf("%w: user id %q", ErrInvalidChannel, userA)
	}
	b, err := uuid.Parse(userB)
	if err != nil {
		return Channel{}, fmt.Errorf("%w: user id %q", ErrInvalidChannel, userB)
	}

	switch bytes.Compare(a[:], b[:]) {
	case 0:
		return Channel{}, fmt.Errorf("%w: direct channel needs two distinct users", ErrInvalidChannel)
	case 1:
		a, b = b, a
	}

	lo, hi := a.String(), b.String()
	return Channel{
		Kind:  ChannelDirect,
		ID:    directPrefix + lo + pairSeparator + hi,
		Users: [2]string{lo, hi},
	}, nil
}

// RoomChannel returns the channel for roomID.
func RoomChannel(roomID string) (Channel, error) {
	if err := validateRoomID(roomID); err != nil {
		return Channel{}, err
	}
	return Channel{Kind: ChannelRoom, ID: roomPrefix + roomID, RoomID: roomID}, nil
}

// ParseChannel parses a channel identifier. Direct channels must already be
// in canonical form.
func ParseChannel(id string) (Channel, error) {
	switch {
	case strings.HasPrefix(id, directPrefix):
		pair := strings.TrimPrefix(id, directPrefix)
		parts := strings.Split(pair, pairSeparator)
		if len(parts) != 2 {
			return Channel{}, fmt.Errorf("%w: %q", ErrInvalidChannel, id)
		}
		ch, err := DirectChannel(parts[0], parts[1])
		if err != nil {
			return Channel{}, err
		}
		if ch.ID != id {
			return Channel{}, fmt.Errorf("%w: %q is not in canonical form", ErrInvalidChannel, id)
		}
		return ch, nil

	case strings.HasPrefix(id, roomPrefix):
		return RoomChannel(strings.TrimPrefix(id, roomPrefix))

	default:
		return Channel{}, fmt.Errorf("%w: unknown channel prefix in %q", ErrInvalidChannel, id)
	}
}

func validateRoomID(roomID string) error {
	if roomID == "" || len(roomID) > maxRoomIDLen {
		return fmt.Errorf("%w: bad room id length", ErrInvalidChannel)
	}
	for _, r := range roomID {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return fmt.Errorf("%w: room id %q", ErrInvalidChannel, roomID)
		}
	}
	return nil
}
