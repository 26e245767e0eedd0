package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	bufferDomain "github.com/allisson/scanrelay/internal/buffer/domain"
)

// BufferExporter lists buffer entries for reporting.
type BufferExporter interface {
	ListBufferEntries(ctx context.Context, filter bufferDomain.ExportFilter) ([]*bufferDomain.Entry, error)
}

type exportRecord struct {
	ID         string     `json:"id"                   yaml:"id"`
	Status     string     `json:"status"               yaml:"status"`
	RetryCount int        `json:"retry_count"          yaml:"retry_count"`
	LastError  string     `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	Checksum   string     `json:"checksum"             yaml:"checksum"`
	CreatedAt  time.Time  `json:"created_at"           yaml:"created_at"`
	SyncedAt   *time.Time `json:"synced_at,omitempty"  yaml:"synced_at,omitempty"`
	Payload    string     `json:"payload"              yaml:"payload"`
}

// RunExportBuffer writes buffer entries matching the filters in creation order.
// from and to accept YYYY-MM-DD, YYYY-MM-DD HH:MM:SS or RFC 3339; a limit of 0
// exports every matching entry.
func RunExportBuffer(
	ctx context.Context,
	exporter BufferExporter,
	logger *slog.Logger,
	writer io.Writer,
	status, from, to string,
	limit int,
	format string,
) error {
	if err := validateFormat(format, true); err != nil {
		return err
	}
	if limit < 0 {
		return fmt.Errorf("limit must be a positive number, got: %d", limit)
	}

	fromTime, err := parseDate(from)
	if err != nil {
		return fmt.Errorf("invalid from date: %w", err)
	}
	toTime, err := parseDate(to)
	if err != nil {
		return fmt.Errorf("invalid to date: %w", err)
	}

	filter := bufferDomain.ExportFilter{
		From:   fromTime,
		To:     toTime,
		Status: bufferDomain.Status(strings.ToLower(status)),
		Limit:  limit,
	}

	entries, err := exporter.ListBufferEntries(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to export buffer entries: %w", err)
	}

	records := make([]exportRecord, 0, len(entries))
	for _, entry := range entries {
		record := exportRecord{
			ID:         entry.ID.String(),
			Status:     string(entry.Status),
			RetryCount: entry.RetryCount,
			Checksum:   entry.Checksum,
			CreatedAt:  entry.CreatedAt,
			SyncedAt:   entry.SyncedAt,
			Payload:    string(entry.Payload),
		}
		if entry.LastError != nil {
			record.LastError = *entry.LastError
		}
		records = append(records, record)
	}

	switch format {
	case FormatJSON:
		err = writeJSON(writer, records)
	case FormatYAML:
		err = writeYAML(writer, records)
	default:
		outputExportText(writer, records)
	}
	if err != nil {
		return err
	}

	logger.Info("buffer export completed", slog.Int("count", len(records)))
	return nil
}

func outputExportText(writer io.Writer, records []exportRecord) {
	for _, r := range records {
		line := fmt.Sprintf("%s  %-8s retries=%d  created=%s",
			r.ID, r.Status, r.RetryCount, r.CreatedAt.Format(time.RFC3339))
		if r.LastError != "" {
			line += "  error=" + r.LastError
		}
		_, _ = fmt.Fprintln(writer, line)
	}
	_, _ = fmt.Fprintf(writer, "%d entry(ies) exported\n", len(records))
}
