package brain

import (
	"errors"
	"fmt"

	"basegraph.app/rubberduck/internal/service/issue_tracker"
	"basegraph.app/rubberduck/internal/store"
)

var (
	// ErrConfiguration marks missing credentials or wiring. Never retried.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks an issue or project that does not exist upstream.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks a tracker, store or generator failure that may pass
	// on a later attempt.
	ErrTransient = errors.New("transient failure")
	// ErrEmptyGeneration is returned when the generator answers with no text.
	ErrEmptyGeneration = errors.New("generator returned empty response")
)

// EventError is the failure attached to an error Result. The worker uses
// Retryable to decide between requeue and dead-lettering.
type EventError struct {
	Err       error
	Retryable bool
}

func (e *EventError) Error() string {
	return e.Err.Error()
}

func (e *EventError) Unwrap() error {
	return e.Err
}

// classifyError maps collaborator errors onto the brain taxonomy, keeping the
// original error in the chain.
func classifyError(err error) *EventError {
	var eventErr *EventError
	if errors.As(err, &eventErr) {
		return eventErr
	}

	switch {
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrEmptyGeneration):
		return &EventError{Err: err}
	case errors.Is(err, ErrNotFound):
		return &EventError{Err: err}
	case errors.Is(err, issue_tracker.ErrUnauthorized):
		return &EventError{Err: fmt.Errorf("%w: %w", ErrConfiguration, err)}
	case errors.Is(err, issue_tracker.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return &EventError{Err: fmt.Errorf("%w: %w", ErrNotFound, err)}
	case errors.Is(err, ErrTransient):
		return &EventError{Err: err, Retryable: true}
	default:
		return &EventError{Err: fmt.Errorf("%w: %w", ErrTransient, err), Retryable: true}
	}
}
