package domain

import (
	"github.com/allisson/scanrelay/internal/errors"
)

// Buffer-specific error definitions.
var (
	// ErrEntryNotFound indicates the buffer entry does not exist.
	ErrEntryNotFound = errors.Wrap(errors.ErrNotFound, "buffer entry not found")

	// ErrEmptyPayload indicates an attempt to buffer an empty payload.
	ErrEmptyPayload = errors.Wrap(errors.ErrInvalidInput, "payload must not be empty")

	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = errors.Wrap(errors.ErrInvalidInput, "invalid buffer entry status")

	// ErrInvalidTransition indicates the entry is not in the status the operation requires.
	ErrInvalidTransition = errors.Wrap(errors.ErrConflict, "invalid buffer entry status transition")

	// ErrCorruptPayload indicates the stored payload does not match its checksum.
	ErrCorruptPayload = errors.Wrap(errors.ErrConflict, "buffer entry checksum mismatch")

	// ErrDelivery indicates every sync handler failed to deliver an entry.
	ErrDelivery = errors.Wrap(errors.ErrUnavailable, "delivery failed")
)
