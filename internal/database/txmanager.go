package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const (
	// sqliteBusy is the primary SQLITE_BUSY result code. Extended codes keep it in the low byte.
	sqliteBusy = 5

	defaultBusyRetries = 3
	busyBackoff        = 50 * time.Millisecond
)

// txKey is a context key type for storing database transactions.
type txKey struct{}

// Querier represents a database query executor (either *sql.DB or *sql.Tx).
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxManager runs buffer mutations atomically.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type sqlTxManager struct {
	db          *sql.DB
	busyRetries int
}

// NewTxManager creates a new TxManager for the given database.
func NewTxManager(db *sql.DB) TxManager {
	return &sqlTxManager{db: db, busyRetries: defaultBusyRetries}
}

// WithTx executes fn within a database transaction. When ctx already carries a
// transaction, fn joins it and the outer caller owns commit and rollback.
//
// A top-level transaction that fails because another process holds the SQLite
// write lock (for example a CLI purge while the server is running) is rolled
// back and retried with a linear backoff, so fn must not have side effects
// outside the transaction.
func (m *sqlTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	var err error
	for attempt := 0; ; attempt++ {
		err = m.runTx(ctx, fn)
		if err == nil || !IsBusy(err) || attempt >= m.busyRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(time.Duration(attempt+1) * busyBackoff):
		}
	}
}

func (m *sqlTxManager) runTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// IsBusy reports whether err is a SQLite "database is locked" error.
func IsBusy(err error) bool {
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		return coded.Code()&0xff == sqliteBusy
	}
	return false
}

// GetTx retrieves a transaction from context, or returns the DB connection.
func GetTx(ctx context.Context, db *sql.DB) Querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}
