package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/scanrelay/internal/event/domain"
	"github.com/allisson/scanrelay/internal/metrics"
)

const metricsDomain = "events"

// eventUseCaseWithMetrics decorates EventUseCase with metrics instrumentation.
type eventUseCaseWithMetrics struct {
	next    EventUseCase
	metrics metrics.BusinessMetrics
}

// NewEventUseCaseWithMetrics wraps an EventUseCase with metrics recording.
func NewEventUseCaseWithMetrics(useCase EventUseCase, m metrics.BusinessMetrics) EventUseCase {
	return &eventUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (e *eventUseCaseWithMetrics) record(ctx context.Context, operation, status string, start time.Time) {
	e.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	e.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// Submit records the outcome of the enqueue attempt. Saturated or rejected
// submissions are recorded with status "rejected".
func (e *eventUseCaseWithMetrics) Submit(ctx context.Context, input *domain.SubmitInput) *domain.Event {
	start := time.Now()
	event := e.next.Submit(ctx, input)

	status := "success"
	if event.Status == domain.StatusFailed {
		status = "rejected"
	}
	e.record(ctx, "event_submit", status, start)
	return event
}

func (e *eventUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	start := time.Now()
	event, err := e.next.Get(ctx, id)

	status := "success"
	if err != nil {
		status = "error"
	}
	e.record(ctx, "event_get", status, start)
	return event, err
}

func (e *eventUseCaseWithMetrics) List(ctx context.Context, filter domain.ListFilter) []*domain.Event {
	start := time.Now()
	events := e.next.List(ctx, filter)
	e.record(ctx, "event_list", "success", start)
	return events
}

// RetryFailed records metrics for retry sweeps.
func (e *eventUseCaseWithMetrics) RetryFailed(ctx context.Context, maxRetries int) int {
	start := time.Now()
	retried := e.next.RetryFailed(ctx, maxRetries)
	e.record(ctx, "event_retry_failed", "success", start)
	if retried > 0 {
		e.metrics.RecordEntries(ctx, metricsDomain, "requeued", int64(retried))
	}
	return retried
}

func (e *eventUseCaseWithMetrics) Statistics(ctx context.Context) *domain.Statistics {
	start := time.Now()
	stats := e.next.Statistics(ctx)
	e.record(ctx, "statistics", "success", start)
	return stats
}

func (e *eventUseCaseWithMetrics) ClearOld(ctx context.Context, maxAge time.Duration) int {
	start := time.Now()
	cleared := e.next.ClearOld(ctx, maxAge)
	e.record(ctx, "event_clear_old", "success", start)
	if cleared > 0 {
		e.metrics.RecordEntries(ctx, metricsDomain, "cleared", int64(cleared))
	}
	return cleared
}
