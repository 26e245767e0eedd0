// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"encoding/json"
	"time"

	"github.com/allisson/scanrelay/internal/buffer/domain"
)

// EntryResponse represents a buffer entry in API responses.
type EntryResponse struct {
	ID             string          `json:"id"`
	IdempotencyKey string          `json:"idempotency_key"`
	Status         string          `json:"status"`
	Checksum       string          `json:"checksum"`
	RetryCount     int             `json:"retry_count"`
	LastError      *string         `json:"last_error,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	SyncedAt       *time.Time      `json:"synced_at,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// MapEntryToResponse converts a buffer entry to an API response. Payloads that
// are not valid JSON are returned as a JSON string.
func MapEntryToResponse(entry *domain.Entry, includePayload bool) EntryResponse {
	response := EntryResponse{
		ID:             entry.ID.String(),
		IdempotencyKey: entry.DeliveryKey(),
		Status:         string(entry.Status),
		Checksum:       entry.Checksum,
		RetryCount:     entry.RetryCount,
		LastError:      entry.LastError,
		CreatedAt:      entry.CreatedAt,
		SyncedAt:       entry.SyncedAt,
		UpdatedAt:      entry.UpdatedAt,
	}

	if includePayload {
		if json.Valid(entry.Payload) {
			response.Payload = json.RawMessage(entry.Payload)
		} else {
			quoted, _ := json.Marshal(string(entry.Payload))
			response.Payload = quoted
		}
	}

	return response
}

// ListEntriesResponse represents a list of buffer entries in API responses.
type ListEntriesResponse struct {
	Data []EntryResponse `json:"data"`
}

// MapEntriesToListResponse converts entries to a list response without payloads.
func MapEntriesToListResponse(entries []*domain.Entry) ListEntriesResponse {
	data := make([]EntryResponse, 0, len(entries))
	for _, entry := range entries {
		data = append(data, MapEntryToResponse(entry, false))
	}
	return ListEntriesResponse{Data: data}
}

// StatsResponse represents buffer statistics and synchronization settings.
type StatsResponse struct {
	Total               int64            `json:"total"`
	StatusCounts        map[string]int64 `json:"status_counts"`
	OldestPendingAt     *time.Time       `json:"oldest_pending_at,omitempty"`
	SizeLimit           int              `json:"size_limit"`
	SyncIntervalSeconds float64          `json:"sync_interval_seconds"`
	MaxRetries          int              `json:"max_retries"`
	Handlers            []string         `json:"handlers"`
}

// MapStatsToResponse converts statistics and sync settings to an API response.
func MapStatsToResponse(
	stats *domain.Statistics,
	syncInterval time.Duration,
	maxRetries int,
	handlers []string,
) StatsResponse {
	counts := make(map[string]int64, len(stats.StatusCounts))
	for status, count := range stats.StatusCounts {
		counts[string(status)] = count
	}
	if handlers == nil {
		handlers = []string{}
	}
	return StatsResponse{
		Total:               stats.Total,
		StatusCounts:        counts,
		OldestPendingAt:     stats.OldestPendingAt,
		SizeLimit:           stats.SizeLimit,
		SyncIntervalSeconds: syncInterval.Seconds(),
		MaxRetries:          maxRetries,
		Handlers:            handlers,
	}
}

// SyncResultResponse reports the outcome of a synchronization run.
type SyncResultResponse struct {
	Processed int `json:"processed"`
	Synced    int `json:"synced"`
	Retried   int `json:"retried"`
	Failed    int `json:"failed"`
}

// MapSyncResultToResponse converts a sync result to an API response.
func MapSyncResultToResponse(result domain.SyncResult) SyncResultResponse {
	return SyncResultResponse{
		Processed: result.Processed,
		Synced:    result.Synced,
		Retried:   result.Retried,
		Failed:    result.Failed,
	}
}

// PurgeResponse reports how many synced entries were (or would be) deleted.
type PurgeResponse struct {
	Purged int64 `json:"purged"`
	DryRun bool  `json:"dry_run"`
}
