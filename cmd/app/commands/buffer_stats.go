package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/allisson/scanrelay/internal/pipeline"
)

// BufferStatsReader reads buffer statistics.
type BufferStatsReader interface {
	BufferStatistics(ctx context.Context) (*pipeline.BufferStatistics, error)
}

type bufferStatsOutput struct {
	Total               int64            `json:"total"                       yaml:"total"`
	StatusCounts        map[string]int64 `json:"status_counts"               yaml:"status_counts"`
	OldestPendingAt     *time.Time       `json:"oldest_pending_at,omitempty" yaml:"oldest_pending_at,omitempty"`
	SizeLimit           int              `json:"size_limit"                  yaml:"size_limit"`
	SyncIntervalSeconds float64          `json:"sync_interval_seconds"       yaml:"sync_interval_seconds"`
	MaxRetries          int              `json:"max_retries"                 yaml:"max_retries"`
	Handlers            []string         `json:"handlers"                    yaml:"handlers"`
}

// RunBufferStats prints buffer statistics and synchronization settings.
func RunBufferStats(
	ctx context.Context,
	reader BufferStatsReader,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format, true); err != nil {
		return err
	}

	stats, err := reader.BufferStatistics(ctx)
	if err != nil {
		return fmt.Errorf("failed to read buffer statistics: %w", err)
	}

	output := bufferStatsOutput{
		Total:               stats.Total,
		StatusCounts:        make(map[string]int64, len(stats.StatusCounts)),
		OldestPendingAt:     stats.OldestPendingAt,
		SizeLimit:           stats.SizeLimit,
		SyncIntervalSeconds: stats.SyncInterval.Seconds(),
		MaxRetries:          stats.MaxRetries,
		Handlers:            stats.Handlers,
	}
	for status, count := range stats.StatusCounts {
		output.StatusCounts[string(status)] = count
	}
	if output.Handlers == nil {
		output.Handlers = []string{}
	}

	switch format {
	case FormatJSON:
		err = writeJSON(writer, output)
	case FormatYAML:
		err = writeYAML(writer, output)
	default:
		outputBufferStatsText(writer, output)
	}
	if err != nil {
		return err
	}

	logger.Info("buffer statistics reported", slog.Int64("total", stats.Total))
	return nil
}

func outputBufferStatsText(writer io.Writer, output bufferStatsOutput) {
	_, _ = fmt.Fprintf(writer, "Buffer entries: %d (limit %d pending)\n", output.Total, output.SizeLimit)

	statuses := make([]string, 0, len(output.StatusCounts))
	for status := range output.StatusCounts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		_, _ = fmt.Fprintf(writer, "  %-8s %d\n", status, output.StatusCounts[status])
	}

	if output.OldestPendingAt != nil {
		_, _ = fmt.Fprintf(writer, "Oldest pending: %s\n", output.OldestPendingAt.Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(writer, "Sync interval: %s, max retries: %d\n",
		time.Duration(output.SyncIntervalSeconds*float64(time.Second)), output.MaxRetries)

	handlers := strings.Join(output.Handlers, ", ")
	if handlers == "" {
		handlers = "(none)"
	}
	_, _ = fmt.Fprintf(writer, "Sync handlers: %s\n", handlers)
}
