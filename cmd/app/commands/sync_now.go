package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	bufferDomain "github.com/allisson/scanrelay/internal/buffer/domain"
)

// BufferSyncer drains the buffer.
type BufferSyncer interface {
	SyncNow(ctx context.Context) (bufferDomain.SyncResult, error)
}

type syncOutput struct {
	Processed int `json:"processed" yaml:"processed"`
	Synced    int `json:"synced"    yaml:"synced"`
	Retried   int `json:"retried"   yaml:"retried"`
	Failed    int `json:"failed"    yaml:"failed"`
}

// RunSyncNow synchronizes every pending entry immediately and reports the outcome.
//
// Requirements: Database must be migrated and at least one sink configured.
func RunSyncNow(
	ctx context.Context,
	syncer BufferSyncer,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format, false); err != nil {
		return err
	}

	logger.Info("synchronizing buffer")

	result, err := syncer.SyncNow(ctx)
	if err != nil {
		return fmt.Errorf("failed to synchronize buffer: %w", err)
	}

	output := syncOutput{
		Processed: result.Processed,
		Synced:    result.Synced,
		Retried:   result.Retried,
		Failed:    result.Failed,
	}

	if format == FormatJSON {
		if err := writeJSON(writer, output); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(writer,
			"Processed %d entry(ies): %d synced, %d scheduled for retry, %d failed\n",
			output.Processed, output.Synced, output.Retried, output.Failed,
		)
	}

	logger.Info("synchronization completed",
		slog.Int("processed", result.Processed),
		slog.Int("synced", result.Synced),
		slog.Int("retried", result.Retried),
		slog.Int("failed", result.Failed),
	)
	return nil
}
