package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/scanrelay/internal/buffer/domain"
	"github.com/allisson/scanrelay/internal/database"
	apperrors "github.com/allisson/scanrelay/internal/errors"
	"github.com/allisson/scanrelay/internal/testutil"
)

var baseTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func createEntries(t *testing.T, repo *SQLiteEntryRepository, n int) []*domain.Entry {
	t.Helper()

	entries := make([]*domain.Entry, 0, n)
	for i := 0; i < n; i++ {
		entry := domain.NewEntry([]byte(fmt.Sprintf(`{"n":%d}`, i)), baseTime.Add(time.Duration(i)*time.Second))
		require.NoError(t, repo.Create(context.Background(), entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestNewSQLiteEntryRepository(t *testing.T) {
	db := testutil.SetupSQLiteDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewSQLiteEntryRepository(db)
	assert.NotNil(t, repo)
	assert.IsType(t, &SQLiteEntryRepository{}, repo)
}

func TestSQLiteEntryRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupSQLiteDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewSQLiteEntryRepository(db)
	ctx := context.Background()

	entry := domain.NewEntry([]byte(`{"scan":"ABC123"}`), baseTime.Add(123*time.Nanosecond))
	require.NoError(t, repo.Create(ctx, entry))

	got, err := repo.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, entry.Payload, got.Payload)
	assert.Equal(t, entry.Checksum, got.Checksum)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, 0, got.RetryCount)
	assert.Nil(t, got.LastError)
	assert.Nil(t, got.SyncedAt)
	assert.Equal(t, entry.ID.String(), got.IdempotencyKey)
	assert.True(t, entry.CreatedAt.Equal(got.CreatedAt))
	require.NoError(t, got.VerifyChecksum())
}

func TestSQLiteEntryRepository_Get_NotFound(t *testing.T) {
	db := testutil.SetupSQLiteDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewSQLiteEntryRepository(db)

	_, err := repo.Get(context.Background(), uuid.Must(uuid.NewV7()))
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSQLiteEntryRepository_ListByStatus(t *testing.T) {
	db := testutil.SetupSQLiteDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewSQLiteEntryRepository(db)
	ctx := context.Background()
	entries := createEntries(t, repo, 5)

	got, err := repo.ListByStatus(ctx, domain.StatusPending, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range got {
		assert.Equal(t, entries[i].ID, got[i].ID)
	}

	synced, err := repo.ListByStatus(ctx, domain.StatusSynced, 10)
	require.NoError(t, err)
	assert.Empty(t, synced)
}

func TestSQLiteEntryRepository_UpdateStatus(t *testing.T) {
	db := testutil.SetupSQLiteDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewSQLiteEntryRepository(db)
	ctx := context.Background()
	entry := createEntries(t, repo, 1)[0]

	entry.Status = domain.StatusSyncing
	entry.UpdatedAt = baseTime.Add(time.Minute)
	updated, err := repo.UpdateStatus(ctx, entry, domain.StatusPending)
	require.NoError(t, err)
	assert.True(t, updated)

	// The stored status is no longer pending, so the guarded update misses.
	updated, err = repo.UpdateStatus(ctx, entry, domain.StatusPending)
	require.NoError(t, err)
	assert.False(t, updated)

	lastError := "remote down"
	syncedAt := baseTime.Add(2 * time.Minute)
	entry.Status = domain.StatusSynced
	entry.RetryCount = 2
	entry.LastError = &lastError
	entry.SyncedAt = &syncedAt
	updated, err = repo.UpdateStatus(ctx, entry, domain.StatusSyncing)
	require.NoError(t, err)
	assert.True(t, updated)

	got, err := repo.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSynced, got.Status)
	assert.Equal(t, 2, got.RetryCount)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "remote down", *got.LastError)
	require.NotNil(t, got.SyncedAt)
	assert.True(t, syncedAt.Equal(*got.SyncedAt))
}

func TestSQLiteEntryRepository_CountAndDeleteOldest(t *testing.T) {
	db := testutil.SetupSQLiteDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewSQLiteEntryRepository(db)
	ctx := context.Background()
	entries := createEntries(t, repo, 5)

	count, err := repo.CountByStatus(ctx, domain.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	deleted, err := repo.DeleteOldest(ctx, domain.StatusPending, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := repo.ListByStatus(ctx, domain.StatusPending, 10)
	require.NoError(t, err)
	require.Len(t, remaining, 3)
	assert.Equal(t, entries[2].ID, remaining[0].ID)

	oldest, err := repo.OldestCreatedAt(ctx, domain.StatusPending)
	require.NoError(t, err)
	require.NotNil(t, oldest)
	assert.True(t, entries[2].CreatedAt.Equal(*oldest))

	none, err := repo.OldestCreatedAt(ctx, domain.StatusFailed)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSQLiteEntryRepository_CountGroupedByStatus(t *testing.T) {
	db := testutil.SetupSQLiteDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewSQLiteEntryRepository(db)
	ctx := context.Background()
	entries := createEntries(t, repo, 3)

	entries[0].Status = domain.StatusFailed
	_, err := repo.UpdateStatus(ctx, entries[0], domain.StatusPending)
	require.NoError(t, err)

	counts, err := repo.CountGroupedByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[domain.Status]int64{domain.StatusPending: 2, domain.StatusFailed: 1}, counts)
}

func TestSQLiteEntryRepository_ResetStatus(t *testing.T) {
	db := testutil.SetupSQLiteDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewSQLiteEntryRepository(db)
	ctx := context.Background()
	entries := createEntries(t, repo, 3)

	markSyncing := func(entry *domain.Entry, at time.Time) {
		entry.Status = domain.StatusSyncing
		entry.UpdatedAt = at
		ok, err := repo.UpdateStatus(ctx, entry, domain.StatusPending)
		require.NoError(t, err)
		require.True(t, ok)
	}
	markSyncing(entries[1], baseTime)
	markSyncing(entries[2], baseTime.Add(10*time.Minute))

	reset, err := repo.ResetStatus(
		ctx, domain.StatusSyncing, domain.StatusPending, baseTime.Add(5*time.Minute), baseTime.Add(11*time.Minute),
	)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reset)

	stale, err := repo.Get(ctx, entries[1].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stale.Status)

	fresh, err := repo.Get(ctx, entries[2].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSyncing, fresh.Status)
}

func TestSQLiteEntryRepository_SyncedRetention(t *testing.T) {
	db := testutil.SetupSQLiteDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewSQLiteEntryRepository(db)
	ctx := context.Background()
	entries := createEntries(t, repo, 3)

	markSynced := func(entry *domain.Entry, at time.Time) {
		entry.Status = domain.StatusSynced
		entry.SyncedAt = &at
		ok, err := repo.UpdateStatus(ctx, entry, domain.StatusPending)
		require.NoError(t, err)
		require.True(t, ok)
	}
	markSynced(entries[0], baseTime.Add(-48*time.Hour))
	markSynced(entries[1], baseTime)

	count, err := repo.CountSyncedBefore(ctx, baseTime.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	deleted, err := repo.DeleteSyncedBefore(ctx, baseTime.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.Get(ctx, entries[0].ID)
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
	_, err = repo.Get(ctx, entries[1].ID)
	assert.NoError(t, err)
	_, err = repo.Get(ctx, entries[2].ID)
	assert.NoError(t, err)
}

func TestSQLiteEntryRepository_List(t *testing.T) {
	db := testutil.SetupSQLiteDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewSQLiteEntryRepository(db)
	ctx := context.Background()
	entries := createEntries(t, repo, 5)

	entries[3].Status = domain.StatusFailed
	_, err := repo.UpdateStatus(ctx, entries[3], domain.StatusPending)
	require.NoError(t, err)

	from := entries[1].CreatedAt
	to := entries[3].CreatedAt

	tests := []struct {
		name   string
		filter domain.ExportFilter
		want   []uuid.UUID
	}{
		{
			name:   "no filter",
			filter: domain.ExportFilter{},
			want:   []uuid.UUID{entries[0].ID, entries[1].ID, entries[2].ID, entries[3].ID, entries[4].ID},
		},
		{
			name:   "time range",
			filter: domain.ExportFilter{From: &from, To: &to},
			want:   []uuid.UUID{entries[1].ID, entries[2].ID, entries[3].ID},
		},
		{
			name:   "time range and status",
			filter: domain.ExportFilter{From: &from, To: &to, Status: domain.StatusPending},
			want:   []uuid.UUID{entries[1].ID, entries[2].ID},
		},
		{
			name:   "limit",
			filter: domain.ExportFilter{Limit: 2},
			want:   []uuid.UUID{entries[0].ID, entries[1].ID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)

			ids := make([]uuid.UUID, 0, len(got))
			for _, entry := range got {
				ids = append(ids, entry.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSQLiteEntryRepository_WithTx(t *testing.T) {
	db := testutil.SetupSQLiteDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewSQLiteEntryRepository(db)
	txManager := database.NewTxManager(db)
	ctx := context.Background()

	err := txManager.WithTx(ctx, func(ctx context.Context) error {
		require.NoError(t, repo.Create(ctx, domain.NewEntry([]byte("a"), baseTime)))
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	count, err := repo.CountByStatus(ctx, domain.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
