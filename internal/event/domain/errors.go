package domain

import (
	"github.com/allisson/scanrelay/internal/errors"
)

// Event-specific error definitions.
var (
	// ErrEventNotFound indicates the event is unknown or was already reclaimed.
	ErrEventNotFound = errors.Wrap(errors.ErrNotFound, "event not found")

	// ErrValidation indicates the event payload failed validation.
	ErrValidation = errors.Wrap(errors.ErrInvalidInput, "event validation failed")

	// ErrInvalidKind indicates an unknown event kind.
	ErrInvalidKind = errors.Wrap(errors.ErrInvalidInput, "invalid event kind")

	// ErrQueueSaturated indicates the processing queue was full when the event was submitted.
	ErrQueueSaturated = errors.Wrap(errors.ErrUnavailable, "queue saturated")

	// ErrDispatcherStopped indicates the dispatcher no longer accepts events.
	ErrDispatcherStopped = errors.Wrap(errors.ErrUnavailable, "dispatcher stopped")

	// ErrDelivery indicates the remote system could not be reached. Handlers
	// return errors wrapping ErrDelivery to have the payload buffered.
	ErrDelivery = errors.Wrap(errors.ErrUnavailable, "delivery failed")
)

// ValidationError wraps err as ErrValidation keeping its message.
func ValidationError(err error) error {
	return errors.Join(ErrValidation, err)
}
