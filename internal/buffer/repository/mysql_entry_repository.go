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

// MySQLEntryRepository handles buffer entry persistence for MySQL.
// Identifiers are stored as BINARY(16); the DSN must enable parseTime.
type MySQLEntryRepository struct {
	db *sql.DB
}

// NewMySQLEntryRepository creates a new MySQLEntryRepository
func NewMySQLEntryRepository(db *sql.DB) *MySQLEntryRepository {
	return &MySQLEntryRepository{db: db}
}

func scanMySQLEntry(row rowScanner) (*domain.Entry, error) {
	var entry domain.Entry
	var id []byte

	err := row.Scan(&id, &entry.Payload, &entry.Checksum, &entry.Status, &entry.RetryCount,
		&entry.LastError, &entry.CreatedAt, &entry.SyncedAt, &entry.UpdatedAt, &entry.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	if err := entry.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal buffer entry id")
	}
	entry.CreatedAt = entry.CreatedAt.UTC()
	entry.UpdatedAt = entry.UpdatedAt.UTC()
	if entry.SyncedAt != nil {
		t := entry.SyncedAt.UTC()
		entry.SyncedAt = &t
	}
	return &entry, nil
}

func (r *MySQLEntryRepository) queryEntries(ctx context.Context, query string, args ...any) ([]*domain.Entry, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query buffer entries")
	}
	defer rows.Close() //nolint:errcheck

	entries := make([]*domain.Entry, 0)
	for rows.Next() {
		entry, err := scanMySQLEntry(rows)
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
func (r *MySQLEntryRepository) Create(ctx context.Context, entry *domain.Entry) error {
	querier := database.GetTx(ctx, r.db)

	id, err := entry.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal buffer entry id")
	}

	query := `INSERT INTO buffer_entries (` + entryColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query, id, entry.Payload, entry.Checksum, entry.Status,
		entry.RetryCount, entry.LastError, entry.CreatedAt.UTC(), entry.SyncedAt, entry.UpdatedAt.UTC(),
		entry.IdempotencyKey)
	if err != nil {
		return apperrors.Wrap(err, "failed to create buffer entry")
	}
	return nil
}

// Get retrieves a buffer entry by id
func (r *MySQLEntryRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Entry, error) {
	querier := database.GetTx(ctx, r.db)

	binaryID, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal buffer entry id")
	}

	query := `SELECT ` + entryColumns + ` FROM buffer_entries WHERE id = ?`

	entry, err := scanMySQLEntry(querier.QueryRowContext(ctx, query, binaryID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get buffer entry")
	}
	return entry, nil
}

// ListByStatus returns up to limit entries with the given status, oldest first
func (r *MySQLEntryRepository) ListByStatus(
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
func (r *MySQLEntryRepository) List(ctx context.Context, filter domain.ExportFilter) ([]*domain.Entry, error) {
	query, args := listQuery(filter, questionMark, func(t time.Time) any { return t.UTC() })
	return r.queryEntries(ctx, query, args...)
}

// CountByStatus counts entries with the given status
func (r *MySQLEntryRepository) CountByStatus(ctx context.Context, status domain.Status) (int64, error) {
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
func (r *MySQLEntryRepository) CountGroupedByStatus(ctx context.Context) (map[domain.Status]int64, error) {
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
func (r *MySQLEntryRepository) OldestCreatedAt(ctx context.Context, status domain.Status) (*time.Time, error) {
	querier := database.GetTx(ctx, r.db)

	var oldest sql.NullTime
	err := querier.QueryRowContext(ctx, `SELECT MIN(created_at) FROM buffer_entries WHERE status = ?`, status).
		Scan(&oldest)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get oldest buffer entry")
	}
	if !oldest.Valid {
		return nil, nil
	}
	t := oldest.Time.UTC()
	return &t, nil
}

// DeleteOldest deletes up to limit of the oldest entries with the given status
func (r *MySQLEntryRepository) DeleteOldest(ctx context.Context, status domain.Status, limit int) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM buffer_entries
			  WHERE status = ?
			  ORDER BY created_at ASC, id ASC
			  LIMIT ?`

	result, err := querier.ExecContext(ctx, query, status, limit)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to evict buffer entries")
	}
	return result.RowsAffected()
}

// UpdateStatus persists the mutable fields of entry only if the stored status
// still equals from. It reports whether the row was updated.
func (r *MySQLEntryRepository) UpdateStatus(
	ctx context.Context,
	entry *domain.Entry,
	from domain.Status,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	id, err := entry.ID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal buffer entry id")
	}

	query := `UPDATE buffer_entries
			  SET status = ?, retry_count = ?, last_error = ?, synced_at = ?, updated_at = ?
			  WHERE id = ? AND status = ?`

	result, err := querier.ExecContext(ctx, query, entry.Status, entry.RetryCount, entry.LastError,
		entry.SyncedAt, entry.UpdatedAt.UTC(), id, from)
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
func (r *MySQLEntryRepository) ResetStatus(
	ctx context.Context,
	from, to domain.Status,
	staleBefore, now time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx,
		`UPDATE buffer_entries SET status = ?, updated_at = ? WHERE status = ? AND updated_at < ?`,
		to, now.UTC(), from, staleBefore.UTC())
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to reset buffer entries")
	}
	return result.RowsAffected()
}

// DeleteSyncedBefore deletes synced entries whose sync time predates before
func (r *MySQLEntryRepository) DeleteSyncedBefore(ctx context.Context, before time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx,
		`DELETE FROM buffer_entries WHERE status = ? AND synced_at < ?`, domain.StatusSynced, before.UTC())
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to purge synced buffer entries")
	}
	return result.RowsAffected()
}

// CountSyncedBefore counts synced entries whose sync time predates before
func (r *MySQLEntryRepository) CountSyncedBefore(ctx context.Context, before time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	var count int64
	err := querier.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM buffer_entries WHERE status = ? AND synced_at < ?`, domain.StatusSynced, before.UTC()).
		Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count synced buffer entries")
	}
	return count, nil
}
