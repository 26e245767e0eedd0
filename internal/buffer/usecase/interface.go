// Package usecase implements the durable buffer store and the synchronization
// loop that delivers buffered payloads to the remote system.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/scanrelay/internal/buffer/domain"
)

// EntryRepository defines buffer entry persistence operations.
type EntryRepository interface {
	Create(ctx context.Context, entry *domain.Entry) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Entry, error)
	ListByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.Entry, error)
	List(ctx context.Context, filter domain.ExportFilter) ([]*domain.Entry, error)
	CountByStatus(ctx context.Context, status domain.Status) (int64, error)
	CountGroupedByStatus(ctx context.Context) (map[domain.Status]int64, error)
	OldestCreatedAt(ctx context.Context, status domain.Status) (*time.Time, error)
	DeleteOldest(ctx context.Context, status domain.Status, limit int) (int64, error)
	UpdateStatus(ctx context.Context, entry *domain.Entry, from domain.Status) (bool, error)
	ResetStatus(ctx context.Context, from, to domain.Status, staleBefore, now time.Time) (int64, error)
	DeleteSyncedBefore(ctx context.Context, before time.Time) (int64, error)
	CountSyncedBefore(ctx context.Context, before time.Time) (int64, error)
}

// BufferUseCase defines the durable buffer store operations.
type BufferUseCase interface {
	// Append stores payload as a pending entry, evicting the oldest pending
	// entries first when the buffer is at capacity.
	Append(ctx context.Context, payload []byte) (*domain.Entry, error)
	// AppendKeyed is Append with an idempotency key shared by every delivery of
	// the same record, such as the id of the event the payload came from.
	AppendKeyed(ctx context.Context, key string, payload []byte) (*domain.Entry, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Entry, error)
	// ListPending returns up to limit pending entries, oldest first.
	ListPending(ctx context.Context, limit int) ([]*domain.Entry, error)
	MarkSyncing(ctx context.Context, entry *domain.Entry) error
	// MarkSynced is idempotent: an already synced entry keeps its original sync time.
	MarkSynced(ctx context.Context, entry *domain.Entry) error
	MarkRetry(ctx context.Context, entry *domain.Entry, cause string) error
	MarkFailed(ctx context.Context, entry *domain.Entry, cause string) error
	// RecoverInFlight returns entries that have been syncing for longer than
	// olderThan to pending. Such entries were left behind by an interrupted batch.
	RecoverInFlight(ctx context.Context, olderThan time.Duration) (int64, error)
	// PurgeSynced deletes synced entries older than olderThan, or only counts them when dryRun is set.
	PurgeSynced(ctx context.Context, olderThan time.Duration, dryRun bool) (int64, error)
	Count(ctx context.Context, status domain.Status) (int64, error)
	Export(ctx context.Context, filter domain.ExportFilter) ([]*domain.Entry, error)
	Statistics(ctx context.Context) (*domain.Statistics, error)
}

// SyncHandler delivers a buffered payload to a remote collaborator.
type SyncHandler interface {
	Name() string
	Sync(ctx context.Context, entry *domain.Entry) error
}

// SyncUseCase defines the synchronization loop operations.
type SyncUseCase interface {
	RegisterHandler(handler SyncHandler)
	HandlerNames() []string
	Start(ctx context.Context) error
	SyncPending(ctx context.Context) (domain.SyncResult, error)
	SyncAll(ctx context.Context) (domain.SyncResult, error)
}

type syncHandlerFunc struct {
	name string
	fn   func(ctx context.Context, entry *domain.Entry) error
}

// NewSyncHandlerFunc adapts a function into a named SyncHandler.
func NewSyncHandlerFunc(name string, fn func(ctx context.Context, entry *domain.Entry) error) SyncHandler {
	return &syncHandlerFunc{name: name, fn: fn}
}

func (h *syncHandlerFunc) Name() string { return h.name }

func (h *syncHandlerFunc) Sync(ctx context.Context, entry *domain.Entry) error {
	return h.fn(ctx, entry)
}
