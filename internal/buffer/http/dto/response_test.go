package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/scanrelay/internal/buffer/domain"
)

func TestMapEntryToResponse(t *testing.T) {
	now := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)

	t.Run("json payload kept as object", func(t *testing.T) {
		entry := domain.NewEntry([]byte(`{"scan_data":"ABC-12345"}`), now)

		response := MapEntryToResponse(entry, true)
		raw, err := json.Marshal(response)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"payload":{"scan_data":"ABC-12345"}`)
		assert.Equal(t, "pending", response.Status)
		assert.Equal(t, entry.Checksum, response.Checksum)
	})

	t.Run("opaque payload quoted", func(t *testing.T) {
		entry := domain.NewEntry([]byte("not json"), now)

		response := MapEntryToResponse(entry, true)
		assert.Equal(t, `"not json"`, string(response.Payload))
	})

	t.Run("idempotency key", func(t *testing.T) {
		entry := domain.NewKeyedEntry([]byte(`{}`), "event-1", now)
		assert.Equal(t, "event-1", MapEntryToResponse(entry, false).IdempotencyKey)
	})

	t.Run("payload omitted", func(t *testing.T) {
		entry := domain.NewEntry([]byte(`{}`), now)
		assert.Nil(t, MapEntryToResponse(entry, false).Payload)
	})
}

func TestMapStatsToResponse(t *testing.T) {
	stats := &domain.Statistics{
		Total:        3,
		StatusCounts: map[domain.Status]int64{domain.StatusPending: 2, domain.StatusSynced: 1},
		SizeLimit:    1000,
	}

	response := MapStatsToResponse(stats, time.Minute, 3, nil)
	assert.Equal(t, int64(2), response.StatusCounts["pending"])
	assert.Equal(t, 60.0, response.SyncIntervalSeconds)
	assert.Equal(t, 3, response.MaxRetries)
	assert.Equal(t, []string{}, response.Handlers)
}
