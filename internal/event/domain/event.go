// Package domain defines scan events and their processing lifecycle.
//
// Events live in memory only. Producers submit them, the dispatcher moves them
// through pending, processing and a terminal status, and payloads that cannot be
// delivered are handed over to the durable buffer.
package domain

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the type of a scan event and selects its handler pipeline.
type Kind string

const (
	KindScan              Kind = "scan"
	KindWorkOrderSet      Kind = "work_order_set"
	KindComponentConsumed Kind = "component_consumed"
	KindError             Kind = "error"
	KindAlert             Kind = "alert"
)

// Kinds lists every known event kind.
var Kinds = []Kind{KindScan, KindWorkOrderSet, KindComponentConsumed, KindError, KindAlert}

// IsValid reports whether k is a known event kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindScan, KindWorkOrderSet, KindComponentConsumed, KindError, KindAlert:
		return true
	}
	return false
}

// Status represents the lifecycle status of an event.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every event status in lifecycle order.
var Statuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether s ends the event lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransitionTo reports whether an event in status s may move to next.
// Only failed events leave a terminal status, and only back to pending.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusFailed || next == StatusCancelled
	case StatusProcessing:
		return next.IsTerminal()
	case StatusFailed:
		return next == StatusPending
	}
	return false
}

// Payload carries the scan content of an event.
type Payload struct {
	ScanData    string `json:"scan_data"`
	ScanType    string `json:"scan_type"`
	WorkOrderID string `json:"work_order_id,omitempty"`
	ComponentID string `json:"component_id,omitempty"`
	OperatorID  string `json:"operator_id,omitempty"`
}

// Event is a scan event tracked by the dispatcher.
type Event struct {
	ID            uuid.UUID         `json:"id"`
	Kind          Kind              `json:"kind"`
	Status        Status            `json:"status"`
	DeviceID      string            `json:"device_id"`
	Payload       Payload           `json:"payload"`
	Error         string            `json:"error,omitempty"`
	RetryCount    int               `json:"retry_count"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	BufferEntryID *uuid.UUID        `json:"buffer_entry_id,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// SubmitInput contains the producer supplied fields of a new event.
type SubmitInput struct {
	Kind     Kind
	DeviceID string
	Payload  Payload
	Metadata map[string]string
}

// NewEvent creates a pending event from input.
func NewEvent(input *SubmitInput, now time.Time) *Event {
	now = now.UTC()
	return &Event{
		ID:        uuid.Must(uuid.NewV7()),
		Kind:      input.Kind,
		Status:    StatusPending,
		DeviceID:  input.DeviceID,
		Payload:   input.Payload,
		Metadata:  maps.Clone(input.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	c := *e
	c.Metadata = maps.Clone(e.Metadata)
	if e.BufferEntryID != nil {
		id := *e.BufferEntryID
		c.BufferEntryID = &id
	}
	return &c
}

// Document is the record delivered to the remote system for an event. It
// carries what the device reported and leaves out the local processing state.
type Document struct {
	ID        uuid.UUID         `json:"id"`
	Kind      Kind              `json:"kind"`
	DeviceID  string            `json:"device_id"`
	Payload   Payload           `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Document returns the delivery record of e.
func (e *Event) Document() Document {
	return Document{
		ID:        e.ID,
		Kind:      e.Kind,
		DeviceID:  e.DeviceID,
		Payload:   e.Payload,
		Metadata:  maps.Clone(e.Metadata),
		CreatedAt: e.CreatedAt,
	}
}

// ListFilter selects events. Zero values disable a criterion.
type ListFilter struct {
	Status      Status
	Kind        Kind
	DeviceID    string
	WorkOrderID string
	From        *time.Time
	To          *time.Time
	Limit       int
}

// Matches reports whether e satisfies every criterion of f.
func (f ListFilter) Matches(e *Event) bool {
	switch {
	case f.Status != "" && e.Status != f.Status:
		return false
	case f.Kind != "" && e.Kind != f.Kind:
		return false
	case f.DeviceID != "" && e.DeviceID != f.DeviceID:
		return false
	case f.WorkOrderID != "" && e.Payload.WorkOrderID != f.WorkOrderID:
		return false
	case f.From != nil && e.CreatedAt.Before(*f.From):
		return false
	case f.To != nil && e.CreatedAt.After(*f.To):
		return false
	}
	return true
}

// Statistics summarizes the events tracked by the dispatcher.
type Statistics struct {
	Total         int            `json:"total"`
	StatusCounts  map[Status]int `json:"status_counts"`
	KindCounts    map[Kind]int   `json:"kind_counts"`
	QueueDepth    int            `json:"queue_depth"`
	QueueCapacity int            `json:"queue_capacity"`
	Workers       int            `json:"workers"`
}
