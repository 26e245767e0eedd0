package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/scanrelay/internal/buffer/domain"
	"github.com/allisson/scanrelay/internal/database"
	apperrors "github.com/allisson/scanrelay/internal/errors"
)

const defaultListLimit = 100

// Config holds buffer store configuration
type Config struct {
	// Size is the maximum number of pending entries. Zero disables the ceiling.
	Size int
	// EvictionBatch is how many oldest pending entries are removed when Size is reached.
	EvictionBatch int
}

type bufferUseCase struct {
	config    Config
	txManager database.TxManager
	repo      EntryRepository
	logger    *slog.Logger
	now       func() time.Time
}

// NewBufferUseCase creates a new BufferUseCase
func NewBufferUseCase(
	config Config,
	txManager database.TxManager,
	repo EntryRepository,
	logger *slog.Logger,
) BufferUseCase {
	return &bufferUseCase{
		config:    config,
		txManager: txManager,
		repo:      repo,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Append stores payload as a new pending entry keyed by its own id.
func (b *bufferUseCase) Append(ctx context.Context, payload []byte) (*domain.Entry, error) {
	return b.AppendKeyed(ctx, "", payload)
}

// AppendKeyed stores payload as a new pending entry. The capacity check,
// eviction and insert run in one transaction.
func (b *bufferUseCase) AppendKeyed(ctx context.Context, key string, payload []byte) (*domain.Entry, error) {
	if len(payload) == 0 {
		return nil, domain.ErrEmptyPayload
	}

	entry := domain.NewKeyedEntry(payload, key, b.now())

	err := b.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := b.makeRoom(ctx); err != nil {
			return err
		}
		return b.repo.Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

func (b *bufferUseCase) makeRoom(ctx context.Context) error {
	if b.config.Size <= 0 {
		return nil
	}

	pending, err := b.repo.CountByStatus(ctx, domain.StatusPending)
	if err != nil {
		return err
	}
	if pending < int64(b.config.Size) {
		return nil
	}

	batch := max(b.config.EvictionBatch, 1)
	if overflow := int(pending) - b.config.Size + 1; overflow > batch {
		batch = overflow
	}

	evicted, err := b.repo.DeleteOldest(ctx, domain.StatusPending, batch)
	if err != nil {
		return err
	}

	if b.logger != nil {
		b.logger.Warn("buffer full, evicted oldest pending entries",
			slog.Int64("pending", pending),
			slog.Int("size", b.config.Size),
			slog.Int64("evicted", evicted),
		)
	}
	return nil
}

// Get retrieves an entry by id
func (b *bufferUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Entry, error) {
	return b.repo.Get(ctx, id)
}

// ListPending returns pending entries oldest first
func (b *bufferUseCase) ListPending(ctx context.Context, limit int) ([]*domain.Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return b.repo.ListByStatus(ctx, domain.StatusPending, limit)
}

// transition applies mutate to a copy of entry and persists it only if the
// stored status is still from. entry is updated in place on success.
func (b *bufferUseCase) transition(
	ctx context.Context,
	entry *domain.Entry,
	from domain.Status,
	mutate func(next *domain.Entry, now time.Time),
) error {
	now := b.now()
	next := entry.Clone()
	mutate(next, now)
	next.UpdatedAt = now

	updated, err := b.repo.UpdateStatus(ctx, next, from)
	if err != nil {
		return err
	}
	if !updated {
		return apperrors.Wrapf(domain.ErrInvalidTransition, "entry %s is no longer %s", entry.ID, from)
	}

	*entry = *next
	return nil
}

func requireStatus(entry *domain.Entry, allowed ...domain.Status) error {
	for _, s := range allowed {
		if entry.Status == s {
			return nil
		}
	}
	return apperrors.Wrapf(domain.ErrInvalidTransition, "entry %s is %s", entry.ID, entry.Status)
}

// MarkSyncing claims a pending entry for a synchronization attempt
func (b *bufferUseCase) MarkSyncing(ctx context.Context, entry *domain.Entry) error {
	if err := requireStatus(entry, domain.StatusPending); err != nil {
		return err
	}
	return b.transition(ctx, entry, domain.StatusPending, func(next *domain.Entry, _ time.Time) {
		next.Status = domain.StatusSyncing
	})
}

// MarkSynced records a successful delivery
func (b *bufferUseCase) MarkSynced(ctx context.Context, entry *domain.Entry) error {
	if entry.Status == domain.StatusSynced {
		return nil
	}
	if err := requireStatus(entry, domain.StatusSyncing, domain.StatusPending); err != nil {
		return err
	}

	err := b.transition(ctx, entry, entry.Status, func(next *domain.Entry, now time.Time) {
		next.Status = domain.StatusSynced
		next.SyncedAt = &now
		next.LastError = nil
	})
	if err == nil || !apperrors.Is(err, domain.ErrInvalidTransition) {
		return err
	}

	// The stored row moved on; it is fine if it was already synced.
	stored, getErr := b.repo.Get(ctx, entry.ID)
	if getErr != nil {
		return getErr
	}
	if stored.Status == domain.StatusSynced {
		*entry = *stored
		return nil
	}
	return err
}

// MarkRetry returns an entry to pending after a failed attempt. No capacity
// check runs here, so pending may exceed Size until the next Append evicts.
func (b *bufferUseCase) MarkRetry(ctx context.Context, entry *domain.Entry, cause string) error {
	if err := requireStatus(entry, domain.StatusSyncing); err != nil {
		return err
	}
	return b.transition(ctx, entry, domain.StatusSyncing, func(next *domain.Entry, _ time.Time) {
		next.Status = domain.StatusPending
		next.RetryCount++
		next.LastError = &cause
	})
}

// MarkFailed records the final failed attempt of an entry
func (b *bufferUseCase) MarkFailed(ctx context.Context, entry *domain.Entry, cause string) error {
	if err := requireStatus(entry, domain.StatusSyncing, domain.StatusPending); err != nil {
		return err
	}
	return b.transition(ctx, entry, entry.Status, func(next *domain.Entry, _ time.Time) {
		next.Status = domain.StatusFailed
		next.RetryCount++
		next.LastError = &cause
	})
}

// RecoverInFlight resets entries syncing for longer than olderThan to pending.
// Younger syncing entries may still be owned by a live attempt, possibly in
// another process sharing the store.
func (b *bufferUseCase) RecoverInFlight(ctx context.Context, olderThan time.Duration) (int64, error) {
	now := b.now()
	recovered, err := b.repo.ResetStatus(ctx, domain.StatusSyncing, domain.StatusPending, now.Add(-olderThan), now)
	if err != nil {
		return 0, err
	}

	if recovered > 0 && b.logger != nil {
		b.logger.Warn("recovered interrupted buffer entries", slog.Int64("count", recovered))
	}
	return recovered, nil
}

// PurgeSynced deletes synced entries whose sync time is older than olderThan
func (b *bufferUseCase) PurgeSynced(ctx context.Context, olderThan time.Duration, dryRun bool) (int64, error) {
	if olderThan < 0 {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "retention must not be negative")
	}

	cutoff := b.now().Add(-olderThan)
	if dryRun {
		return b.repo.CountSyncedBefore(ctx, cutoff)
	}

	purged, err := b.repo.DeleteSyncedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if purged > 0 && b.logger != nil {
		b.logger.Info("purged synced buffer entries",
			slog.Int64("count", purged),
			slog.Time("cutoff", cutoff),
		)
	}
	return purged, nil
}

// Count counts entries with the given status
func (b *bufferUseCase) Count(ctx context.Context, status domain.Status) (int64, error) {
	if !status.IsValid() {
		return 0, domain.ErrInvalidStatus
	}
	return b.repo.CountByStatus(ctx, status)
}

// Export returns entries matching filter, oldest first
func (b *bufferUseCase) Export(ctx context.Context, filter domain.ExportFilter) ([]*domain.Entry, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, domain.ErrInvalidStatus
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "range start is after range end")
	}
	if filter.Limit < 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "limit must not be negative")
	}
	return b.repo.List(ctx, filter)
}

// Statistics summarizes the buffer content
func (b *bufferUseCase) Statistics(ctx context.Context) (*domain.Statistics, error) {
	grouped, err := b.repo.CountGroupedByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.Statistics{
		StatusCounts: make(map[domain.Status]int64, len(domain.Statuses)),
		SizeLimit:    b.config.Size,
	}
	for _, status := range domain.Statuses {
		stats.StatusCounts[status] = grouped[status]
	}
	for _, count := range grouped {
		stats.Total += count
	}

	if stats.OldestPendingAt, err = b.repo.OldestCreatedAt(ctx, domain.StatusPending); err != nil {
		return nil, err
	}

	return stats, nil
}
