package domain

import "errors"

var (
	ErrInvalidChannel  = errors.New("invalid channel")
	ErrForbidden       = errors.New("access to channel denied")
	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrSelfMessage     = errors.New("cannot send a direct message to yourself")
	ErrInvalidMessage  = errors.New("invalid message")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Error codes sent to clients.
const (
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeInvalidChannel = "INVALID_CHANNEL"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeSelfMessage    = "SELF_MESSAGE"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// ErrorCode maps an operation error onto the client-facing code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidChannel):
		return ErrCodeInvalidChannel
	case errors.Is(err, ErrForbidden):
		return ErrCodeForbidden
	case errors.Is(err, ErrRateLimited):
		return ErrCodeRateLimited
	case errors.Is(err, ErrSelfMessage):
		return ErrCodeSelfMessage
	case errors.Is(err, ErrInvalidMessage):
		return ErrCodeBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return ErrCodeUnauthorized
	default:
		return ErrCodeInternalError
	}
}

// PublicMessage returns the text safe to show a client for err.
func PublicMessage(err error) string {
	if ErrorCode(err) == ErrCodeInternalError {
		return "internal error"
	}
	return err.Error()
}
