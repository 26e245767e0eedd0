// Package domain defines the durable buffer entry and its lifecycle.
package domain

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Status represents the lifecycle status of a buffer entry.
type Status string

const (
	StatusPending Status = "pending"
	StatusSyncing Status = "syncing"
	StatusSynced  Status = "synced"
	StatusFailed  Status = "failed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusSyncing, StatusSynced, StatusFailed}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSyncing, StatusSynced, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether entries in status s are never synchronized again.
func (s Status) IsTerminal() bool {
	return s == StatusSynced || s == StatusFailed
}

// Entry is a durable record of a payload awaiting delivery to the remote system.
type Entry struct {
	ID         uuid.UUID
	Payload    []byte
	Checksum   string
	Status     Status
	RetryCount int
	LastError  *string
	CreatedAt  time.Time
	SyncedAt   *time.Time
	UpdatedAt  time.Time
	// IdempotencyKey identifies the payload to the remote system. Every delivery
	// of the same logical record carries the same key.
	IdempotencyKey string
}

// NewEntry creates a pending entry for payload keyed by its own id.
func NewEntry(payload []byte, now time.Time) *Entry {
	return NewKeyedEntry(payload, "", now)
}

// NewKeyedEntry creates a pending entry for payload with the given idempotency
// key. An empty key falls back to the entry id.
func NewKeyedEntry(payload []byte, key string, now time.Time) *Entry {
	now = now.UTC()
	id := uuid.Must(uuid.NewV7())
	if key == "" {
		key = id.String()
	}
	return &Entry{
		ID:             id,
		Payload:        payload,
		Checksum:       Checksum(payload),
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
		IdempotencyKey: key,
	}
}

// DeliveryKey returns the idempotency key sent with every delivery attempt.
// Entries stored before keys existed use their id.
func (e *Entry) DeliveryKey() string {
	if e.IdempotencyKey != "" {
		return e.IdempotencyKey
	}
	return e.ID.String()
}

// Checksum returns the hex encoded BLAKE2b-256 digest of payload.
func Checksum(payload []byte) string {
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum reports ErrCorruptPayload when the stored payload no longer
// matches its checksum.
func (e *Entry) VerifyChecksum() error {
	if Checksum(e.Payload) != e.Checksum {
		return ErrCorruptPayload
	}
	return nil
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	c := *e
	c.Payload = append([]byte(nil), e.Payload...)
	if e.LastError != nil {
		lastError := *e.LastError
		c.LastError = &lastError
	}
	if e.SyncedAt != nil {
		syncedAt := *e.SyncedAt
		c.SyncedAt = &syncedAt
	}
	return &c
}

// Statistics summarizes the buffer content.
type Statistics struct {
	Total           int64
	StatusCounts    map[Status]int64
	OldestPendingAt *time.Time
	SizeLimit       int
}

// ExportFilter selects entries for reporting. Zero values disable a criterion.
type ExportFilter struct {
	From   *time.Time
	To     *time.Time
	Status Status
	Limit  int
}

// SyncResult reports the outcome of one synchronization batch.
type SyncResult struct {
	Processed int
	Synced    int
	Retried   int
	Failed    int
}

// Add accumulates other into r.
func (r *SyncResult) Add(other SyncResult) {
	r.Processed += other.Processed
	r.Synced += other.Synced
	r.Retried += other.Retried
	r.Failed += other.Failed
}
