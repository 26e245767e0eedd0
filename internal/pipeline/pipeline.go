// Package pipeline ties the event dispatcher, the durable buffer and the
// synchronization loop together behind a single facade with one lifecycle.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	bufferDomain "github.com/allisson/scanrelay/internal/buffer/domain"
	bufferUsecase "github.com/allisson/scanrelay/internal/buffer/usecase"
	apperrors "github.com/allisson/scanrelay/internal/errors"
	eventDomain "github.com/allisson/scanrelay/internal/event/domain"
	eventUsecase "github.com/allisson/scanrelay/internal/event/usecase"
)

// Config holds pipeline configuration
type Config struct {
	SyncInterval    time.Duration
	SyncMaxRetries  int
	EventMaxRetries int
	JanitorInterval time.Duration
	SyncedRetention time.Duration
	EventRetention  time.Duration
}

// Dispatcher is the lifecycle of the event worker pool.
type Dispatcher interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	QueueDepth() int
}

// BufferStatistics extends the buffer statistics with the synchronization settings.
type BufferStatistics struct {
	*bufferDomain.Statistics
	SyncInterval time.Duration
	MaxRetries   int
	Handlers     []string
}

// Pipeline is the entry point for producers and monitoring.
type Pipeline struct {
	config       Config
	dispatcher   Dispatcher
	events       eventUsecase.EventUseCase
	buffer       bufferUsecase.BufferUseCase
	synchronizer bufferUsecase.SyncUseCase
	logger       *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// New creates a new Pipeline
func New(
	config Config,
	dispatcher Dispatcher,
	events eventUsecase.EventUseCase,
	buffer bufferUsecase.BufferUseCase,
	synchronizer bufferUsecase.SyncUseCase,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		config:       config,
		dispatcher:   dispatcher,
		events:       events,
		buffer:       buffer,
		synchronizer: synchronizer,
		logger:       logger,
	}
}

// Start launches the dispatcher workers, the synchronization loop and the janitor.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return apperrors.New("pipeline already running")
	}

	if err := p.dispatcher.Start(ctx); err != nil {
		return apperrors.Wrap(err, "failed to start dispatcher")
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)

	group.Go(func() error {
		return ignoreCanceled(p.synchronizer.Start(groupCtx))
	})
	group.Go(func() error {
		return ignoreCanceled(p.runJanitor(groupCtx))
	})

	p.running = true
	p.cancel = cancel
	p.group = group

	if p.logger != nil {
		p.logger.Info("pipeline started",
			slog.Duration("sync_interval", p.config.SyncInterval),
			slog.Duration("janitor_interval", p.config.JanitorInterval),
		)
	}
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop stops the dispatcher, spilling queued events to the buffer, stops the
// background loops and runs a final drain of the buffer bounded by ctx.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	cancel, group := p.cancel, p.group
	p.mu.Unlock()

	var errs []error

	if err := p.dispatcher.Stop(ctx); err != nil {
		errs = append(errs, apperrors.Wrap(err, "failed to stop dispatcher"))
	}

	cancel()
	if err := group.Wait(); err != nil {
		errs = append(errs, apperrors.Wrap(err, "background task failed"))
	}

	result, err := p.synchronizer.SyncAll(ctx)
	if err != nil {
		errs = append(errs, apperrors.Wrap(err, "final buffer drain failed"))
	}

	if p.logger != nil {
		p.logger.Info("pipeline stopped",
			slog.Int("final_synced", result.Synced),
			slog.Int("final_retried", result.Retried),
			slog.Int("final_failed", result.Failed),
		)
	}

	return errors.Join(errs...)
}

// Submit hands an event to the dispatcher
func (p *Pipeline) Submit(ctx context.Context, input *eventDomain.SubmitInput) *eventDomain.Event {
	return p.events.Submit(ctx, input)
}

// BufferPayload stores payload directly in the durable buffer
func (p *Pipeline) BufferPayload(ctx context.Context, payload []byte) (uuid.UUID, error) {
	entry, err := p.buffer.Append(ctx, payload)
	if err != nil {
		return uuid.Nil, err
	}
	return entry.ID, nil
}

// GetEvent returns an event snapshot
func (p *Pipeline) GetEvent(ctx context.Context, id uuid.UUID) (*eventDomain.Event, error) {
	return p.events.Get(ctx, id)
}

// ListEvents returns event snapshots matching filter
func (p *Pipeline) ListEvents(ctx context.Context, filter eventDomain.ListFilter) []*eventDomain.Event {
	return p.events.List(ctx, filter)
}

// RetryFailed re-enqueues failed events using the configured retry bound
func (p *Pipeline) RetryFailed(ctx context.Context) int {
	return p.events.RetryFailed(ctx, p.config.EventMaxRetries)
}

// EventStatistics summarizes the tracked events
func (p *Pipeline) EventStatistics(ctx context.Context) *eventDomain.Statistics {
	return p.events.Statistics(ctx)
}

// BufferStatistics summarizes the buffer and the synchronization settings
func (p *Pipeline) BufferStatistics(ctx context.Context) (*BufferStatistics, error) {
	stats, err := p.buffer.Statistics(ctx)
	if err != nil {
		return nil, err
	}
	return &BufferStatistics{
		Statistics:   stats,
		SyncInterval: p.config.SyncInterval,
		MaxRetries:   p.config.SyncMaxRetries,
		Handlers:     p.synchronizer.HandlerNames(),
	}, nil
}

// ListBufferEntries returns buffer entries matching filter
func (p *Pipeline) ListBufferEntries(
	ctx context.Context,
	filter bufferDomain.ExportFilter,
) ([]*bufferDomain.Entry, error) {
	return p.buffer.Export(ctx, filter)
}

// SyncNow drains the buffer immediately. The drain ends early when a batch
// delivers nothing, for example while the remote is offline. Entries left
// pending then wait for the next scheduled batch.
func (p *Pipeline) SyncNow(ctx context.Context) (bufferDomain.SyncResult, error) {
	return p.synchronizer.SyncAll(ctx)
}

// PurgeSynced deletes synced entries older than olderThan
func (p *Pipeline) PurgeSynced(ctx context.Context, olderThan time.Duration, dryRun bool) (int64, error) {
	return p.buffer.PurgeSynced(ctx, olderThan, dryRun)
}

// QueueDepth returns the number of events waiting for a worker
func (p *Pipeline) QueueDepth() int {
	return p.dispatcher.QueueDepth()
}

// PendingEntries returns the number of buffer entries awaiting synchronization
func (p *Pipeline) PendingEntries(ctx context.Context) (int64, error) {
	return p.buffer.Count(ctx, bufferDomain.StatusPending)
}
