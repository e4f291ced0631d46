package access

import (
	"context"
	"fmt"

	"github.com/weiawesome/wes-io-chat/chat-service/internal/domain"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/membership"
)

// Outcome tags a Decision.
type Outcome int

const (
	Ok Outcome = iota
	FormatError
	AuthorizationError
)

func (o Outcome) String() string {
	switch o {
	case Ok:
		return "ok"
	case FormatError:
		return "format_error"
	case AuthorizationError:
		return "authorization_error"
	}
	return "unknown"
}

// Decision is the result of validating a caller against a channel.
// Channel is populated whenever the identifier parsed.
type Decision struct {
	Outcome Outcome
	Channel domain.Channel
	Reason  string
}

func (d Decision) Allowed() bool { return d.Outcome == Ok }

// Err converts a non-Ok decision to the matching domain error.
func (d Decision) Err() error {
	switch d.Outcome {
	case Ok:
		return nil
	case FormatError:
		return fmt.Errorf("%w: %s", domain.ErrInvalidChannel, d.Reason)
	default:
		return fmt.Errorf("%w: %s", domain.ErrForbidden, d.Reason)
	}
}

// Validator decides whether a user may read or write a channel.
// Decisions are computed on every call.
type Validator struct {
	members membership.Checker
}

func NewValidator(members membership.Checker) *Validator {
	return &Validator{members: members}
}

// Validate parses channelID and authorizes userID against it. The returned
// error is reserved for backing-store failures.
func (v *Validator) Validate(ctx context.Context, userID, channelID string) (Decision, error) {
	ch, err := domain.ParseChannel(channelID)
	if err != nil {
		return Decision{Outcome: FormatError, Reason: err.Error()}, nil
	}
	return v.authorize(ctx, userID, ch)
}

// ValidateChannel authorizes an already-parsed channel.
func (v *Validator) ValidateChannel(ctx context.Context, userID string, ch domain.Channel) (Decision, error) {
	return v.authorize(ctx, userID, ch)
}

func (v *Validator) authorize(ctx context.Context, userID string, ch domain.Channel) (Decision, error) {
	switch ch.Kind {
	case domain.ChannelDirect:
		if !ch.Includes(userID) {
			return Decision{Outcome: AuthorizationError, Channel: ch, Reason: "not a participant"}, nil
		}
		return Decision{Outcome: Ok, Channel: ch}, nil

	case domain.ChannelRoom:
		ok, err := v.members.IsApprovedMember(ctx, ch.RoomID, userID)
		if err != nil {
			return Decision{}, err
		}
		if !ok {
			return Decision{Outcome: AuthorizationError, Channel: ch, Reason: "not an approved room member"}, nil
		}
		return Decision{Outcome: Ok, Channel: ch}, nil

	default:
		return Decision{Outcome: FormatError, Channel: ch, Reason: "unknown channel kind"}, nil
	}
}
