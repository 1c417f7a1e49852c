package chat

import (
	"context"
	"errors"
)

var (
	// ErrInvalidInput is the only error HandleMessage reports to callers.
	ErrInvalidInput = errors.New("invalid input")

	// Completion service failures. They always end in the fallback reply.
	ErrUnavailable       = errors.New("completion service unavailable")
	ErrTransport         = errors.New("completion service transport failure")
	ErrMalformedResponse = errors.New("completion service malformed response")

	// ErrStore marks profile store and doctor directory failures. The turn
	// continues without persistence.
	ErrStore = errors.New("profile store failure")
)

// failureReason labels a completion failure for logs and metrics.
func failureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	default:
		return "transport"
	}
}
