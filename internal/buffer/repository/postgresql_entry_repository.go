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

// PostgreSQLEntryRepository handles buffer entry persistence for PostgreSQL
type PostgreSQLEntryRepository struct {
	db *sql.DB
}

// NewPostgreSQLEntryRepository creates a new PostgreSQLEntryRepository
func NewPostgreSQLEntryRepository(db *sql.DB) *PostgreSQLEntryRepository {
	return &PostgreSQLEntryRepository{db: db}
}

func scanPostgreSQLEntry(row rowScanner) (*domain.Entry, error) {
	var entry domain.Entry
	err := row.Scan(&entry.ID, &entry.Payload, &entry.Checksum, &entry.Status, &entry.RetryCount,
		&entry.LastError, &entry.CreatedAt, &entry.SyncedAt, &entry.UpdatedAt, &entry.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	entry.CreatedAt = entry.CreatedAt.UTC()
	entry.UpdatedAt = entry.UpdatedAt.UTC()
	if entry.SyncedAt != nil {
		t := entry.SyncedAt.UTC()
		entry.SyncedAt = &t
	}
	return &entry, nil
}

func (r *PostgreSQLEntryRepository) queryEntries(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.Entry, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query buffer entries")
	}
	defer rows.Close() //nolint:errcheck

	entries := make([]*domain.Entry, 0)
	for rows.Next() {
		entry, err := scanPostgreSQLEntry(rows)
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
func (r *PostgreSQLEntryRepository) Create(ctx context.Context, entry *domain.Entry) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO buffer_entries (` + entryColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := querier.ExecContext(ctx, query, entry.ID, entry.Payload, entry.Checksum, entry.Status,
		entry.RetryCount, entry.LastError, entry.CreatedAt, entry.SyncedAt, entry.UpdatedAt, entry.IdempotencyKey)
	if err != nil {
		return apperrors.Wrap(err, "failed to create buffer entry")
	}
	return nil
}

// Get retrieves a buffer entry by id
func (r *PostgreSQLEntryRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Entry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + entryColumns + ` FROM buffer_entries WHERE id = $1`

	entry, err := scanPostgreSQLEntry(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get buffer entry")
	}
	return entry, nil
}

// ListByStatus returns up to limit entries with the given status, oldest first
func (r *PostgreSQLEntryRepository) ListByStatus(
	ctx context.Context,
	status domain.Status,
	limit int,
) ([]*domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM buffer_entries
			  WHERE status = $1
			  ORDER BY created_at ASC, id ASC
			  LIMIT $2`
	return r.queryEntries(ctx, query, status, limit)
}

// List returns entries matching filter, oldest first
func (r *PostgreSQLEntryRepository) List(ctx context.Context, filter domain.ExportFilter) ([]*domain.Entry, error) {
	query, args := listQuery(filter, dollar, func(t time.Time) any { return t.UTC() })
	return r.queryEntries(ctx, query, args...)
}

// CountByStatus counts entries with the given status
func (r *PostgreSQLEntryRepository) CountByStatus(ctx context.Context, status domain.Status) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	var count int64
	err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM buffer_entries WHERE status = $1`, status).
		Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count buffer entries")
	}
	return count, nil
}

// CountGroupedByStatus counts entries per status
func (r *PostgreSQLEntryRepository) CountGroupedByStatus(ctx context.Context) (map[domain.Status]int64, error) {
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
func (r *PostgreSQLEntryRepository) OldestCreatedAt(ctx context.Context, status domain.Status) (*time.Time, error) {
	querier := database.GetTx(ctx, r.db)

	var oldest sql.NullTime
	err := querier.QueryRowContext(ctx, `SELECT MIN(created_at) FROM buffer_entries WHERE status = $1`, status).
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
func (r *PostgreSQLEntryRepository) DeleteOldest(ctx context.Context, status domain.Status, limit int) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM buffer_entries WHERE id IN (
				SELECT id FROM buffer_entries
				WHERE status = $1
				ORDER BY created_at ASC, id ASC
				LIMIT $2
				FOR UPDATE SKIP LOCKED
			  )`

	result, err := querier.ExecContext(ctx, query, status, limit)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to evict buffer entries")
	}
	return result.RowsAffected()
}

// UpdateStatus persists the mutable fields of entry only if the stored status
// still equals from. It reports whether the row was updated.
func (r *PostgreSQLEntryRepository) UpdateStatus(
	ctx context.Context,
	entry *domain.Entry,
	from domain.Status,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE buffer_entries
			  SET status = $1, retry_count = $2, last_error = $3, synced_at = $4, updated_at = $5
			  WHERE id = $6 AND status = $7`

	result, err := querier.ExecContext(ctx, query, entry.Status, entry.RetryCount, entry.LastError,
		entry.SyncedAt, entry.UpdatedAt, entry.ID, from)
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
func (r *PostgreSQLEntryRepository) ResetStatus(
	ctx context.Context,
	from, to domain.Status,
	staleBefore, now time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx,
		`UPDATE buffer_entries SET status = $1, updated_at = $2 WHERE status = $3 AND updated_at < $4`,
		to, now, from, staleBefore)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to reset buffer entries")
	}
	return result.RowsAffected()
}

// DeleteSyncedBefore deletes synced entries whose sync time predates before
func (r *PostgreSQLEntryRepository) DeleteSyncedBefore(ctx context.Context, before time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx,
		`DELETE FROM buffer_entries WHERE status = $1 AND synced_at < $2`, domain.StatusSynced, before)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to purge synced buffer entries")
	}
	return result.RowsAffected()
}

// CountSyncedBefore counts synced entries whose sync time predates before
func (r *PostgreSQLEntryRepository) CountSyncedBefore(ctx context.Context, before time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	var count int64
	err := querier.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM buffer_entries WHERE status = $1 AND synced_at < $2`, domain.StatusSynced, before).
		Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count synced buffer entries")
	}
	return count, nil
}
