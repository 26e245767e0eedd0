package usecase

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/scanrelay/internal/errors"
	"github.com/allisson/scanrelay/internal/event/domain"
)

const (
	defaultQueueSize = 1000
	defaultWorkers   = 4
)

// Config holds dispatcher configuration
type Config struct {
	QueueSize int
	Workers   int
}

// Dispatcher tracks events in memory and processes them with a fixed worker pool.
type Dispatcher struct {
	config  Config
	spiller Spiller
	logger  *slog.Logger
	now     func() time.Time

	queue chan uuid.UUID

	mu      sync.RWMutex
	events  map[uuid.UUID]*domain.Event
	started bool
	stopped bool
	cancel  context.CancelFunc

	handlersMu sync.RWMutex
	handlers   map[domain.Kind][]EventHandler

	wg sync.WaitGroup
}

// NewDispatcher creates a new Dispatcher. spiller may be nil, in which case
// undeliverable events are only marked failed.
func NewDispatcher(config Config, spiller Spiller, logger *slog.Logger) *Dispatcher {
	if config.QueueSize <= 0 {
		config.QueueSize = defaultQueueSize
	}
	if config.Workers <= 0 {
		config.Workers = defaultWorkers
	}
	return &Dispatcher{
		config:   config,
		spiller:  spiller,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		queue:    make(chan uuid.UUID, config.QueueSize),
		events:   make(map[uuid.UUID]*domain.Event),
		handlers: make(map[domain.Kind][]EventHandler),
	}
}

// RegisterHandler appends handler to the pipeline of kind
func (d *Dispatcher) RegisterHandler(kind domain.Kind, handler EventHandler) {
	d.handlersMu.Lock()
	defer d.handlersMu.Unlock()
	d.handlers[kind] = append(d.handlers[kind], handler)

	if d.logger != nil {
		d.logger.Info("registered event handler",
			slog.String("kind", string(kind)),
			slog.Int("position", len(d.handlers[kind])),
		)
	}
}

func (d *Dispatcher) handlersFor(kind domain.Kind) []EventHandler {
	d.handlersMu.RLock()
	defer d.handlersMu.RUnlock()
	return slices.Clone(d.handlers[kind])
}

// Start launches the workers. They run until Stop is called or ctx is done.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return domain.ErrDispatcherStopped
	}
	if d.started {
		return apperrors.New("dispatcher already started")
	}
	d.started = true

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	for i := range d.config.Workers {
		d.wg.Add(1)
		go d.worker(runCtx, i)
	}

	if d.logger != nil {
		d.logger.Info("event dispatcher started",
			slog.Int("workers", d.config.Workers),
			slog.Int("queue_size", d.config.QueueSize),
		)
	}
	return nil
}

// Stop stops accepting events, waits for workers to finish their current event
// and cancels every event still queued, spilling it to the buffer. It returns
// ctx.Err() if the workers did not finish in time.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	cancel := d.cancel
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	cancelled := d.drain(ctx)

	if d.logger != nil {
		d.logger.Info("event dispatcher stopped", slog.Int("cancelled", cancelled))
	}
	return err
}

func (d *Dispatcher) drain(ctx context.Context) int {
	cancelled := 0
	for {
		select {
		case id := <-d.queue:
			if d.cancelEvent(ctx, id) {
				cancelled++
			}
		default:
			return cancelled
		}
	}
}

func (d *Dispatcher) worker(ctx context.Context, n int) {
	defer d.wg.Done()

	// Handlers get a context that survives Stop so the current event completes.
	handlerCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			if d.logger != nil {
				d.logger.Debug("event worker exiting", slog.Int("worker", n))
			}
			return
		case id := <-d.queue:
			if ctx.Err() != nil {
				d.cancelEvent(handlerCtx, id)
				continue
			}
			d.process(handlerCtx, id)
		}
	}
}

// Submit registers a new pending event and enqueues it without blocking
func (d *Dispatcher) Submit(ctx context.Context, input *domain.SubmitInput) *domain.Event {
	event := domain.NewEvent(input, d.now())

	d.mu.Lock()
	defer d.mu.Unlock()

	d.events[event.ID] = event

	switch {
	case !event.Kind.IsValid():
		d.failLocked(event, domain.ErrInvalidKind)
	case d.stopped:
		d.failLocked(event, domain.ErrDispatcherStopped)
	default:
		select {
		case d.queue <- event.ID:
		default:
			d.failLocked(event, domain.ErrQueueSaturated)
			if d.logger != nil {
				d.logger.Warn("event queue saturated",
					slog.String("event_id", event.ID.String()),
					slog.String("kind", string(event.Kind)),
					slog.Int("queue_size", d.config.QueueSize),
				)
			}
		}
	}

	return event.Clone()
}

func (d *Dispatcher) failLocked(event *domain.Event, err error) {
	event.Status = domain.StatusFailed
	event.Error = err.Error()
	event.UpdatedAt = d.now()
}

// claim moves a pending event to processing and returns a snapshot of it
func (d *Dispatcher) claim(id uuid.UUID) *domain.Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	event, ok := d.events[id]
	if !ok || !event.Status.CanTransitionTo(domain.StatusProcessing) {
		return nil
	}
	event.Status = domain.StatusProcessing
	event.UpdatedAt = d.now()
	return event.Clone()
}

func (d *Dispatcher) finish(id uuid.UUID, status domain.Status, cause error, entryID *uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	event, ok := d.events[id]
	if !ok || !event.Status.CanTransitionTo(status) {
		return
	}
	event.Status = status
	event.Error = ""
	if cause != nil {
		event.Error = cause.Error()
	}
	if entryID != nil {
		event.BufferEntryID = entryID
	}
	event.UpdatedAt = d.now()
}

func (d *Dispatcher) process(ctx context.Context, id uuid.UUID) {
	event := d.claim(id)
	if event == nil {
		return
	}

	if err := event.Payload.Validate(); err != nil {
		if d.logger != nil {
			d.logger.Warn("event validation failed",
				slog.String("event_id", event.ID.String()),
				slog.Any("error", err),
			)
		}
		d.finish(id, domain.StatusFailed, err, nil)
		return
	}

	handlers := d.handlersFor(event.Kind)
	if len(handlers) == 0 {
		if d.logger != nil {
			d.logger.Debug("no handlers registered for event kind", slog.String("kind", string(event.Kind)))
		}
		d.finish(id, domain.StatusCompleted, nil, nil)
		return
	}

	for _, h := range handlers {
		err := safeHandle(ctx, h, event.Clone())
		if err == nil {
			continue
		}

		if d.logger != nil {
			d.logger.Error("event handler failed",
				slog.String("event_id", event.ID.String()),
				slog.String("kind", string(event.Kind)),
				slog.Any("error", err),
			)
		}

		if apperrors.Is(err, domain.ErrDelivery) {
			if entryID, ok := d.spill(ctx, event); ok {
				err = fmt.Errorf("%w (buffered as %s)", err, entryID)
				d.finish(id, domain.StatusFailed, err, &entryID)
				return
			}
		}
		d.finish(id, domain.StatusFailed, err, nil)
		return
	}

	d.finish(id, domain.StatusCompleted, nil, nil)
}

func safeHandle(ctx context.Context, h EventHandler, event *domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, event)
}

func (d *Dispatcher) spill(ctx context.Context, event *domain.Event) (uuid.UUID, bool) {
	if d.spiller == nil {
		return uuid.Nil, false
	}

	entryID, err := d.spiller.Spill(ctx, event)
	if err != nil {
		if d.logger != nil {
			d.logger.Error("failed to buffer undeliverable event",
				slog.String("event_id", event.ID.String()),
				slog.Any("error", err),
			)
		}
		return uuid.Nil, false
	}
	return entryID, true
}

// cancelEvent marks a queued event cancelled and spills it. It reports whether
// the event was still pending.
func (d *Dispatcher) cancelEvent(ctx context.Context, id uuid.UUID) bool {
	d.mu.Lock()
	event, ok := d.events[id]
	if !ok || event.Status != domain.StatusPending {
		d.mu.Unlock()
		return false
	}
	event.Status = domain.StatusCancelled
	event.Error = domain.ErrDispatcherStopped.Error()
	event.UpdatedAt = d.now()
	snapshot := event.Clone()
	d.mu.Unlock()

	if entryID, ok := d.spill(context.WithoutCancel(ctx), snapshot); ok {
		d.mu.Lock()
		if event, ok := d.events[id]; ok {
			event.BufferEntryID = &entryID
		}
		d.mu.Unlock()
	}
	return true
}

// Get returns a snapshot of the event
func (d *Dispatcher) Get(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	event, ok := d.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	return event.Clone(), nil
}

// List returns snapshots of the events matching filter, oldest first
func (d *Dispatcher) List(ctx context.Context, filter domain.ListFilter) []*domain.Event {
	d.mu.RLock()
	result := make([]*domain.Event, 0)
	for _, event := range d.events {
		if filter.Matches(event) {
			result = append(result, event.Clone())
		}
	}
	d.mu.RUnlock()

	sortByCreation(result)
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result
}

func sortByCreation(events []*domain.Event) {
	slices.SortFunc(events, func(a, b *domain.Event) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
}

// RetryFailed resets failed events with fewer than maxRetries attempts to
// pending and re-enqueues them. Events already handed to the buffer are left
// alone. A retry that finds the queue saturated is dropped.
func (d *Dispatcher) RetryFailed(ctx context.Context, maxRetries int) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return 0
	}

	candidates := make([]*domain.Event, 0)
	for _, event := range d.events {
		if event.Status == domain.StatusFailed && event.RetryCount < maxRetries && event.BufferEntryID == nil {
			candidates = append(candidates, event)
		}
	}
	sortByCreation(candidates)

	retried := 0
	for _, event := range candidates {
		event.RetryCount++
		event.Status = domain.StatusPending
		event.Error = ""
		event.UpdatedAt = d.now()

		select {
		case d.queue <- event.ID:
			retried++
		default:
			d.failLocked(event, domain.ErrQueueSaturated)
			if d.logger != nil {
				d.logger.Warn("cannot retry event, queue saturated",
					slog.String("event_id", event.ID.String()),
					slog.Int("retry_count", event.RetryCount),
				)
			}
		}
	}

	if retried > 0 && d.logger != nil {
		d.logger.Info("retrying failed events", slog.Int("count", retried))
	}
	return retried
}

// Statistics summarizes the tracked events
func (d *Dispatcher) Statistics(ctx context.Context) *domain.Statistics {
	stats := &domain.Statistics{
		StatusCounts:  make(map[domain.Status]int, len(domain.Statuses)),
		KindCounts:    make(map[domain.Kind]int, len(domain.Kinds)),
		QueueDepth:    len(d.queue),
		QueueCapacity: cap(d.queue),
		Workers:       d.config.Workers,
	}
	for _, s := range domain.Statuses {
		stats.StatusCounts[s] = 0
	}
	for _, k := range domain.Kinds {
		stats.KindCounts[k] = 0
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	stats.Total = len(d.events)
	for _, event := range d.events {
		stats.StatusCounts[event.Status]++
		stats.KindCounts[event.Kind]++
	}
	return stats
}

// QueueDepth returns the number of events waiting for a worker
func (d *Dispatcher) QueueDepth() int {
	return len(d.queue)
}

// ClearOld drops terminal events whose last update is older than maxAge
func (d *Dispatcher) ClearOld(ctx context.Context, maxAge time.Duration) int {
	cutoff := d.now().Add(-maxAge)

	d.mu.Lock()
	defer d.mu.Unlock()

	cleared := 0
	for id, event := range d.events {
		if event.Status.IsTerminal() && event.UpdatedAt.Before(cutoff) {
			delete(d.events, id)
			cleared++
		}
	}

	if cleared > 0 && d.logger != nil {
		d.logger.Info("cleared old events", slog.Int("count", cleared))
	}
	return cleared
}

var _ EventUseCase = (*Dispatcher)(nil)
