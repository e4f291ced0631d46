package membership

import "context"

// Status is a room membership state held by the backing store.
type Status string

const (
	StatusNone     Status = ""
	StatusApproved Status = "approved"
	StatusPending  Status = "pending"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the stored states.
func (s Status) Valid() bool {
	switch s {
	case StatusApproved, StatusPending, StatusRejected:
		return true
	}
	return false
}

// Store is the durable source of membership state. Absent rows report StatusNone.
type Store interface {
	MembershipStatus(ctx context.Context, roomID, userID string) (Status, error)
}

// Checker answers whether a user is an approved member of a room.
type Checker interface {
	IsApprovedMember(ctx context.Context, roomID, userID string) (bool, error)
}
