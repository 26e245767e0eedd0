package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/scanrelay/internal/buffer/domain"
	"github.com/allisson/scanrelay/internal/database"
	apperrors "github.com/allisson/scanrelay/internal/errors"
)

// SQLiteEntryRepository handles buffer entry persistence for SQLite.
// Timestamps are stored as unix nanoseconds.
type SQLiteEntryRepository struct {
	db *sql.DB
}

// NewSQLiteEntryRepository creates a new SQLiteEntryRepository
func NewSQLiteEntryRepository(db *sql.DB) *SQLiteEntryRepository {
	return &SQLiteEntryRepository{db: db}
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toNanos(*t), Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteEntry(row rowScanner) (*domain.Entry, error) {
	var entry domain.Entry
	var id string
	var createdAt, updatedAt int64
	var syncedAt sql.NullInt64

	err := row.Scan(&id, &entry.Payload, &entry.Checksum, &entry.Status, &entry.RetryCount,
		&entry.LastError, &createdAt, &syncedAt, &updatedAt, &entry.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	if entry.ID, err = uuid.Parse(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse buffer entry id")
	}
	entry.CreatedAt = fromNanos(createdAt)
	entry.UpdatedAt = fromNanos(updatedAt)
	if syncedAt.Valid {
		t := fromNanos(syncedAt.Int64)
		entry.SyncedAt = &t
	}

	return &entry, nil
}

func (r *SQLiteEntryRepository) queryEntries(ctx context.Context, query string, args ...any) ([]*domain.Entry, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query buffer entries")
	}
	defer rows.Close() //nolint:errcheck

	entries := make([]*domain.Entry, 0)
	for rows.Next() {
		entry, err := scanSQLiteEntry(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan buffer entry")
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate buffer entries")
	}

	return entries, nil
}

// Create inserts a new buffer entry
func (r *SQLiteEntryRepository) Create(ctx context.Context, entry *domain.Entry) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO buffer_entries (` + entryColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(ctx, query, entry.ID.String(), entry.Payload, entry.Checksum, entry.Status,
		entry.RetryCount, entry.LastError, toNanos(entry.CreatedAt), nullNanos(entry.SyncedAt),
		toNanos(entry.UpdatedAt), entry.IdempotencyKey)
	if err != nil {
		return apperrors.Wrap(err, "failed to create buffer entry")
	}
	return nil
}

// Get retrieves a buffer entry by id
func (r *SQLiteEntryRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Entry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + entryColumns + ` FROM buffer_entries WHERE id = ?`

	entry, err := scanSQLiteEntry(querier.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get buffer entry")
	}
	return entry, nil
}

// ListByStatus returns up to limit entries with the given status, oldest first
func (r *SQLiteEntryRepository) ListByStatus(
	ctx context.Context,
	status domain.Status,
	limit int,
) ([]*domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM buffer_entries
			  WHERE status = ?
			  ORDER BY created_at ASC, id ASC
			  LIMIT ?`
	return r.queryEntries(ctx, query, status, limit)
}

// List returns entries matching filter, oldest first
func (r *SQLiteEntryRepository) List(ctx context.Context, filter domain.ExportFilter) ([]*domain.Entry, error) {
	query, args := listQuery(filter, questionMark, func(t time.Time) any { return toNanos(t) })
	return r.queryEntries(ctx, query, args...)
}

// CountByStatus counts entries with the given status
func (r *SQLiteEntryRepository) CountByStatus(ctx context.Context, status domain.Status) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	var count int64
	err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM buffer_entries WHERE status = ?`, status).
		Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count buffer entries")
	}
	return count, nil
}

// CountGroupedByStatus counts entries per status
func (r *SQLiteEntryRepository) CountGroupedByStatus(ctx context.Context) (map[domain.Status]int64, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, `SELECT status, COUNT(*) FROM buffer_entries GROUP BY status`)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to count buffer entries by status")
	}
	defer rows.Close() //nolint:errcheck

	counts := make(map[domain.Status]int64)
	for rows.Next() {
		var status domain.Status
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan buffer entry count")
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate buffer entry counts")
	}
	return counts, nil
}

// OldestCreatedAt returns the creation time of the oldest entry with the given status
func (r *SQLiteEntryRepository) OldestCreatedAt(ctx context.Context, status domain.Status) (*time.Time, error) {
	querier := database.GetTx(ctx, r.db)

	var oldest sql.NullInt64
	err := querier.QueryRowContext(ctx, `SELECT MIN(created_at) FROM buffer_entries WHERE status = ?`, status).
		Scan(&oldest)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get oldest buffer entry")
	}
	if !oldest.Valid {
		return nil, nil
	}
	t := fromNanos(oldest.Int64)
	return &t, nil
}

// DeleteOldest deletes up to limit of the oldest entries with the given status
func (r *SQLiteEntryRepository) DeleteOldest(ctx context.Context, status domain.Status, limit int) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM buffer_entries WHERE id IN (
				SELECT id FROM buffer_entries
				WHERE status = ?
				ORDER BY created_at ASC, id ASC
				LIMIT ?
			  )`

	result, err := querier.ExecContext(ctx, query, status, limit)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to evict buffer entries")
	}
	return result.RowsAffected()
}

// UpdateStatus persists the mutable fields of entry only if the stored status
// still equals from. It reports whether the row was updated.
func (r *SQLiteEntryRepository) UpdateStatus(
	ctx context.Context,
	entry *domain.Entry,
	from domain.Status,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE buffer_entries
			  SET status = ?, retry_count = ?, last_error = ?, synced_at = ?, updated_at = ?
			  WHERE id = ? AND status = ?`

	result, err := querier.ExecContext(ctx, query, entry.Status, entry.RetryCount, entry.LastError,
		nullNanos(entry.SyncedAt), toNanos(entry.UpdatedAt), entry.ID.String(), from)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to update buffer entry")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to update buffer entry")
	}
	return affected == 1, nil
}

// ResetStatus moves entries in status from that were last updated before
// staleBefore to status to
func (r *SQLiteEntryRepository) ResetStatus(
	ctx context.Context,
	from, to domain.Status,
	staleBefore, now time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx,
		`UPDATE buffer_entries SET status = ?, updated_at = ? WHERE status = ? AND updated_at < ?`,
		to, toNanos(now), from, toNanos(staleBefore))
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to reset buffer entries")
	}
	return result.RowsAffected()
}

// DeleteSyncedBefore deletes synced entries whose sync time predates before
func (r *SQLiteEntryRepository) DeleteSyncedBefore(ctx context.Context, before time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx,
		`DELETE FROM buffer_entries WHERE status = ? AND synced_at < ?`, domain.StatusSynced, toNanos(before))
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to purge synced buffer entries")
	}
	return result.RowsAffected()
}

// CountSyncedBefore counts synced entries whose sync time predates before
func (r *SQLiteEntryRepository) CountSyncedBefore(ctx context.Context, before time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	var count int64
	err := querier.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM buffer_entries WHERE status = ? AND synced_at < ?`, domain.StatusSynced, toNanos(before)).
		Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count synced buffer entries")
	}
	return count, nil
}
