package commands

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/allisson/scanrelay/internal/database"
)

func TestRunMigrations(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "buffer.db")

		require.NoError(t, RunMigrations(logger, "sqlite", path))
		// Second run has nothing to apply.
		require.NoError(t, RunMigrations(logger, "sqlite", path))

		db, err := database.Connect(database.Config{Driver: "sqlite", ConnectionString: path})
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		var count int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM buffer_entries`).Scan(&count))
		require.Equal(t, 0, count)
	})

	t.Run("invalid-driver", func(t *testing.T) {
		err := RunMigrations(logger, "invalid", "postgres://localhost")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to create migrate instance")
	})

	t.Run("invalid-connection-string", func(t *testing.T) {
		err := RunMigrations(logger, "postgres", "invalid-connection-string")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to create migrate instance")
	})
}
