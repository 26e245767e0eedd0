package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTxDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Connect(Config{Driver: DriverSQLite, ConnectionString: filepath.Join(t.TempDir(), "tx.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec("CREATE TABLE items (name TEXT NOT NULL)")
	require.NoError(t, err)
	return db
}

func countItems(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count))
	return count
}

func TestNewTxManager(t *testing.T) {
	db := setupTxDB(t)

	txManager := NewTxManager(db)
	assert.NotNil(t, txManager)
	assert.IsType(t, &sqlTxManager{}, txManager)
}

func TestWithTx_Success(t *testing.T) {
	db := setupTxDB(t)
	txManager := NewTxManager(db)

	err := txManager.WithTx(context.Background(), func(ctx context.Context) error {
		tx := ctx.Value(txKey{})
		assert.IsType(t, &sql.Tx{}, tx)

		_, err := GetTx(ctx, db).ExecContext(ctx, "INSERT INTO items (name) VALUES ('a')")
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 1, countItems(t, db))
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db := setupTxDB(t)
	txManager := NewTxManager(db)

	err := txManager.WithTx(context.Background(), func(ctx context.Context) error {
		_, err := GetTx(ctx, db).ExecContext(ctx, "INSERT INTO items (name) VALUES ('a')")
		require.NoError(t, err)
		return assert.AnError
	})

	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, countItems(t, db))
}

// busyError mimics the coded errors returned by the SQLite driver.
type busyError struct{ code int }

func (e busyError) Error() string { return "database is locked" }
func (e busyError) Code() int     { return e.code }

func TestIsBusy(t *testing.T) {
	assert.True(t, IsBusy(busyError{code: 5}))
	assert.True(t, IsBusy(fmt.Errorf("insert: %w", busyError{code: 517})))
	assert.False(t, IsBusy(busyError{code: 19}))
	assert.False(t, IsBusy(assert.AnError))
	assert.False(t, IsBusy(nil))
}

func TestWithTx_RetriesBusy(t *testing.T) {
	db := setupTxDB(t)
	txManager := NewTxManager(db)

	attempts := 0
	err := txManager.WithTx(context.Background(), func(ctx context.Context) error {
		attempts++
		_, err := GetTx(ctx, db).ExecContext(ctx, "INSERT INTO items (name) VALUES ('a')")
		require.NoError(t, err)
		if attempts < 3 {
			return busyError{code: 5}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 1, countItems(t, db))
}

func TestWithTx_GivesUpWhenBusy(t *testing.T) {
	db := setupTxDB(t)
	txManager := NewTxManager(db)

	attempts := 0
	err := txManager.WithTx(context.Background(), func(ctx context.Context) error {
		attempts++
		return busyError{code: 5}
	})

	assert.True(t, IsBusy(err))
	assert.Equal(t, defaultBusyRetries+1, attempts)
	assert.Equal(t, 0, countItems(t, db))
}

func TestWithTx_NestedBusyNotRetried(t *testing.T) {
	db := setupTxDB(t)
	txManager := NewTxManager(db)

	inner := 0
	err := txManager.WithTx(context.Background(), func(outer context.Context) error {
		_ = txManager.WithTx(outer, func(ctx context.Context) error {
			inner++
			return busyError{code: 5}
		})
		assert.Equal(t, 1, inner)
		return assert.AnError
	})

	assert.ErrorIs(t, err, assert.AnError)
}

func TestWithTx_JoinsOuterTransaction(t *testing.T) {
	db := setupTxDB(t)
	txManager := NewTxManager(db)

	err := txManager.WithTx(context.Background(), func(outer context.Context) error {
		outerTx := outer.Value(txKey{})
		return txManager.WithTx(outer, func(inner context.Context) error {
			assert.Same(t, outerTx, inner.Value(txKey{}))
			return nil
		})
	})
	assert.NoError(t, err)
}

func TestGetTx(t *testing.T) {
	db := setupTxDB(t)

	t.Run("returns db without transaction", func(t *testing.T) {
		assert.Equal(t, db, GetTx(context.Background(), db))
	})

	t.Run("returns transaction from context", func(t *testing.T) {
		tx, err := db.Begin()
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()

		ctx := context.WithValue(context.Background(), txKey{}, tx)
		assert.Equal(t, tx, GetTx(ctx, db))
	})
}
