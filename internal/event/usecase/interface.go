// Package usecase implements the event dispatch engine: a bounded queue drained
// by a fixed pool of workers that validate events and run the handlers
// registered for their kind.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/scanrelay/internal/event/domain"
)

// EventHandler processes an event. Handlers for a kind run in registration
// order and the first error aborts the pipeline for that event.
type EventHandler interface {
	Handle(ctx context.Context, event *domain.Event) error
}

// HandlerFunc adapts a function into an EventHandler.
type HandlerFunc func(ctx context.Context, event *domain.Event) error

// Handle calls f(ctx, event).
func (f HandlerFunc) Handle(ctx context.Context, event *domain.Event) error {
	return f(ctx, event)
}

// Spiller hands the payload of an undeliverable event over to durable storage
// and returns the id of the stored entry.
type Spiller interface {
	Spill(ctx context.Context, event *domain.Event) (uuid.UUID, error)
}

// EventUseCase defines the event operations exposed to producers and monitoring.
type EventUseCase interface {
	// Submit registers a new event and enqueues it without blocking. The returned
	// snapshot is already failed when the queue is saturated or the dispatcher stopped.
	Submit(ctx context.Context, input *domain.SubmitInput) *domain.Event
	Get(ctx context.Context, id uuid.UUID) (*domain.Event, error)
	List(ctx context.Context, filter domain.ListFilter) []*domain.Event
	// RetryFailed re-enqueues failed events below maxRetries and returns how many were re-enqueued.
	RetryFailed(ctx context.Context, maxRetries int) int
	Statistics(ctx context.Context) *domain.Statistics
	// ClearOld drops terminal events that have not changed for maxAge and returns how many were dropped.
	ClearOld(ctx context.Context, maxAge time.Duration) int
}
