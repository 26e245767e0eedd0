package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/scanrelay/internal/buffer/domain"
	"github.com/allisson/scanrelay/internal/metrics"
)

const metricsDomain = "buffer"

// bufferUseCaseWithMetrics decorates BufferUseCase with metrics instrumentation.
type bufferUseCaseWithMetrics struct {
	next    BufferUseCase
	metrics metrics.BusinessMetrics
}

// NewBufferUseCaseWithMetrics wraps a BufferUseCase with metrics recording.
func NewBufferUseCaseWithMetrics(useCase BufferUseCase, m metrics.BusinessMetrics) BufferUseCase {
	return &bufferUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (b *bufferUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	b.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	b.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// Append records metrics for buffer append operations.
func (b *bufferUseCaseWithMetrics) Append(ctx context.Context, payload []byte) (*domain.Entry, error) {
	start := time.Now()
	entry, err := b.next.Append(ctx, payload)
	b.record(ctx, "entry_append", start, err)
	return entry, err
}

// AppendKeyed records metrics for keyed buffer append operations.
func (b *bufferUseCaseWithMetrics) AppendKeyed(ctx context.Context, key string, payload []byte) (*domain.Entry, error) {
	start := time.Now()
	entry, err := b.next.AppendKeyed(ctx, key, payload)
	b.record(ctx, "entry_append", start, err)
	return entry, err
}

func (b *bufferUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*domain.Entry, error) {
	start := time.Now()
	entry, err := b.next.Get(ctx, id)
	b.record(ctx, "entry_get", start, err)
	return entry, err
}

func (b *bufferUseCaseWithMetrics) ListPending(ctx context.Context, limit int) ([]*domain.Entry, error) {
	start := time.Now()
	entries, err := b.next.ListPending(ctx, limit)
	b.record(ctx, "entry_list_pending", start, err)
	return entries, err
}

func (b *bufferUseCaseWithMetrics) MarkSyncing(ctx context.Context, entry *domain.Entry) error {
	start := time.Now()
	err := b.next.MarkSyncing(ctx, entry)
	b.record(ctx, "entry_mark_syncing", start, err)
	return err
}

// MarkSynced records metrics for successful deliveries.
func (b *bufferUseCaseWithMetrics) MarkSynced(ctx context.Context, entry *domain.Entry) error {
	start := time.Now()
	err := b.next.MarkSynced(ctx, entry)
	b.record(ctx, "entry_mark_synced", start, err)
	if err == nil {
		b.metrics.RecordEntries(ctx, metricsDomain, "synced", 1)
	}
	return err
}

func (b *bufferUseCaseWithMetrics) MarkRetry(ctx context.Context, entry *domain.Entry, cause string) error {
	start := time.Now()
	err := b.next.MarkRetry(ctx, entry, cause)
	b.record(ctx, "entry_mark_retry", start, err)
	if err == nil {
		b.metrics.RecordEntries(ctx, metricsDomain, "retried", 1)
	}
	return err
}

// MarkFailed records metrics for entries that exhausted their retries.
func (b *bufferUseCaseWithMetrics) MarkFailed(ctx context.Context, entry *domain.Entry, cause string) error {
	start := time.Now()
	err := b.next.MarkFailed(ctx, entry, cause)
	b.record(ctx, "entry_mark_failed", start, err)
	if err == nil {
		b.metrics.RecordEntries(ctx, metricsDomain, "failed", 1)
	}
	return err
}

func (b *bufferUseCaseWithMetrics) RecoverInFlight(ctx context.Context, olderThan time.Duration) (int64, error) {
	start := time.Now()
	count, err := b.next.RecoverInFlight(ctx, olderThan)
	b.record(ctx, "entry_recover", start, err)
	if err == nil && count > 0 {
		b.metrics.RecordEntries(ctx, metricsDomain, "recovered", count)
	}
	return count, err
}

func (b *bufferUseCaseWithMetrics) PurgeSynced(ctx context.Context, olderThan time.Duration, dryRun bool) (int64, error) {
	start := time.Now()
	count, err := b.next.PurgeSynced(ctx, olderThan, dryRun)
	b.record(ctx, "entry_purge", start, err)
	if err == nil && !dryRun && count > 0 {
		b.metrics.RecordEntries(ctx, metricsDomain, "purged", count)
	}
	return count, err
}

func (b *bufferUseCaseWithMetrics) Count(ctx context.Context, status domain.Status) (int64, error) {
	start := time.Now()
	count, err := b.next.Count(ctx, status)
	b.record(ctx, "entry_count", start, err)
	return count, err
}

func (b *bufferUseCaseWithMetrics) Export(ctx context.Context, filter domain.ExportFilter) ([]*domain.Entry, error) {
	start := time.Now()
	entries, err := b.next.Export(ctx, filter)
	b.record(ctx, "entry_export", start, err)
	return entries, err
}

func (b *bufferUseCaseWithMetrics) Statistics(ctx context.Context) (*domain.Statistics, error) {
	start := time.Now()
	stats, err := b.next.Statistics(ctx)
	b.record(ctx, "statistics", start, err)
	return stats, err
}
