package commands

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	bufferDomain "github.com/allisson/scanrelay/internal/buffer/domain"
)

func TestRunSyncNow(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	result := bufferDomain.SyncResult{Processed: 5, Synced: 3, Retried: 1, Failed: 1}

	t.Run("text-output", func(t *testing.T) {
		m := &mockPipeline{}
		m.On("SyncNow", ctx).Return(result, nil)

		var out bytes.Buffer
		err := RunSyncNow(ctx, m, logger, &out, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Processed 5 entry(ies): 3 synced, 1 scheduled for retry, 1 failed")
		m.AssertExpectations(t)
	})

	t.Run("json-output", func(t *testing.T) {
		m := &mockPipeline{}
		m.On("SyncNow", ctx).Return(result, nil)

		var out bytes.Buffer
		err := RunSyncNow(ctx, m, logger, &out, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"processed": 5`)
		require.Contains(t, out.String(), `"synced": 3`)
		m.AssertExpectations(t)
	})

	t.Run("yaml-not-supported", func(t *testing.T) {
		m := &mockPipeline{}

		var out bytes.Buffer
		err := RunSyncNow(ctx, m, logger, &out, "yaml")

		require.Error(t, err)
		require.Contains(t, err.Error(), "valid options: text, json)")
		m.AssertNotCalled(t, "SyncNow")
	})

	t.Run("error", func(t *testing.T) {
		m := &mockPipeline{}
		m.On("SyncNow", ctx).Return(bufferDomain.SyncResult{}, errors.New("boom"))

		var out bytes.Buffer
		err := RunSyncNow(ctx, m, logger, &out, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to synchronize buffer: boom")
	})
}
