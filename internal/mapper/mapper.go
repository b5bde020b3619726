package mapper

import (
	"context"
	"errors"

	"basegraph.app/rubberduck/internal/domain"
)

var (
	// ErrUnsupportedEvent is returned for hooks the duck does not act on.
	// Callers acknowledge them without processing.
	ErrUnsupportedEvent = errors.New("unsupported webhook event")
	// ErrInvalidPayload is returned for bodies that cannot be an event.
	ErrInvalidPayload = errors.New("invalid webhook payload")
)

// EventMapper turns a raw webhook delivery into a domain event.
type EventMapper interface {
	Map(ctx context.Context, body []byte, headers map[string]string) (domain.Event, error)
}
