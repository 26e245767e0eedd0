package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// SyncedPurger deletes synced entries.
type SyncedPurger interface {
	PurgeSynced(ctx context.Context, olderThan time.Duration, dryRun bool) (int64, error)
}

// RunPurgeSynced deletes synced buffer entries older than the specified number of hours.
// Supports dry-run mode to preview deletion count and both text/JSON output formats.
func RunPurgeSynced(
	ctx context.Context,
	purger SyncedPurger,
	logger *slog.Logger,
	writer io.Writer,
	hours int,
	dryRun bool,
	format string,
) error {
	if hours < 0 {
		return fmt.Errorf("hours must be a positive number, got: %d", hours)
	}
	if err := validateFormat(format, false); err != nil {
		return err
	}

	logger.Info("purging synced entries",
		slog.Int("hours", hours),
		slog.Bool("dry_run", dryRun),
	)

	count, err := purger.PurgeSynced(ctx, time.Duration(hours)*time.Hour, dryRun)
	if err != nil {
		return fmt.Errorf("failed to purge synced entries: %w", err)
	}

	if format == FormatJSON {
		result := map[string]interface{}{
			"count":   count,
			"hours":   hours,
			"dry_run": dryRun,
		}
		if err := writeJSON(writer, result); err != nil {
			return err
		}
	} else if dryRun {
		_, _ = fmt.Fprintf(writer, "Dry-run mode: Would delete %d synced entry(ies) older than %d hour(s)\n", count, hours)
	} else {
		_, _ = fmt.Fprintf(writer, "Successfully deleted %d synced entry(ies) older than %d hour(s)\n", count, hours)
	}

	logger.Info("purge completed",
		slog.Int64("count", count),
		slog.Int("hours", hours),
		slog.Bool("dry_run", dryRun),
	)
	return nil
}
