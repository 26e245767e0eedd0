package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertBizMetricLine checks that the Prometheus output contains a business metric
// matching the given name, partial label pattern, and value. Uses regex to handle
// extra OTel scope labels injected by the Prometheus exporter.
func assertBizMetricLine(t *testing.T, output, name, labels, value string) {
	t.Helper()
	pattern := name + `\{[^}]*` + labels + `[^}]*\} ` + value
	assert.Regexp(t, pattern, output)
}

func TestNewBusinessMetrics(t *testing.T) {
	t.Run("Success_CreateBusinessMetrics", func(t *testing.T) {
		provider, err := NewProvider("test_app")
		require.NoError(t, err)

		businessMetrics, err := NewBusinessMetrics(provider.MeterProvider(), "test_app")

		require.NoError(t, err)
		assert.NotNil(t, businessMetrics)
	})
}

func TestBusinessMetrics_RecordOperation(t *testing.T) {
	provider, err := NewProvider("test_app")
	require.NoError(t, err)

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "test_app")
	require.NoError(t, err)

	t.Run("Success_RecordSuccessfulOperation", func(t *testing.T) {
		// Should not panic
		bm.RecordOperation(context.Background(), "events", "event_submit", "success")
	})

	t.Run("Success_RecordFailedOperation", func(t *testing.T) {
		// Should not panic
		bm.RecordOperation(context.Background(), "events", "event_submit", "error")
	})

	t.Run("Success_RecordMultipleDomains", func(t *testing.T) {
		bm.RecordOperation(context.Background(), "events", "event_submit", "success")
		bm.RecordOperation(context.Background(), "buffer", "entry_append", "success")
		bm.RecordOperation(context.Background(), "sync", "sync_batch", "error")
	})
}

func TestBusinessMetrics_RecordDuration(t *testing.T) {
	provider, err := NewProvider("test_app")
	require.NoError(t, err)

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "test_app")
	require.NoError(t, err)

	t.Run("Success_RecordSuccessfulDuration", func(t *testing.T) {
		// Should not panic
		bm.RecordDuration(context.Background(), "events", "event_submit", 123*time.Millisecond, "success")
	})

	t.Run("Success_RecordFailedDuration", func(t *testing.T) {
		// Should not panic
		bm.RecordDuration(context.Background(), "events", "event_submit", 456*time.Millisecond, "error")
	})

	t.Run("Success_RecordMultipleDomains", func(t *testing.T) {
		bm.RecordDuration(context.Background(), "events", "event_submit", 100*time.Millisecond, "success")
		bm.RecordDuration(context.Background(), "buffer", "entry_append", 200*time.Millisecond, "success")
		bm.RecordDuration(context.Background(), "sync", "sync_batch", 300*time.Millisecond, "error")
	})
}

func TestNewNoOpBusinessMetrics(t *testing.T) {
	noOpMetrics := NewNoOpBusinessMetrics()

	assert.NotNil(t, noOpMetrics)
	assert.IsType(t, &NoOpBusinessMetrics{}, noOpMetrics)

	t.Run("NoOp_RecordOperationDoesNotPanic", func(t *testing.T) {
		// Should not panic or do anything
		noOpMetrics.RecordOperation(context.Background(), "events", "event_submit", "success")
		noOpMetrics.RecordOperation(context.Background(), "buffer", "entry_append", "error")
	})

	t.Run("NoOp_RecordDurationDoesNotPanic", func(t *testing.T) {
		// Should not panic or do anything
		noOpMetrics.RecordDuration(
			context.Background(),
			"events",
			"event_submit",
			100*time.Millisecond,
			"success",
		)
		noOpMetrics.RecordDuration(context.Background(), "buffer", "entry_append", 200*time.Millisecond, "error")
	})

	t.Run("NoOp_RecordEntriesDoesNotPanic", func(t *testing.T) {
		noOpMetrics.RecordEntries(context.Background(), "buffer", "synced", 3)
	})
}

func TestBusinessMetrics_Integration(t *testing.T) {
	provider, err := NewProvider("integration_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "integration_test")
	require.NoError(t, err)

	// Record various operations
	ctx := context.Background()

	// Record operation counts
	bm.RecordOperation(ctx, "events", "event_submit", "success")
	bm.RecordOperation(ctx, "events", "event_submit", "success")
	bm.RecordOperation(ctx, "events", "event_submit", "error")
	bm.RecordOperation(ctx, "buffer", "entry_append", "success")
	bm.RecordOperation(ctx, "buffer", "entry_mark_synced", "success")
	bm.RecordOperation(ctx, "sync", "sync_batch", "success")

	// Record operation durations
	bm.RecordDuration(ctx, "events", "event_submit", 50*time.Millisecond, "success")
	bm.RecordDuration(ctx, "events", "event_submit", 60*time.Millisecond, "success")
	bm.RecordDuration(ctx, "events", "event_submit", 100*time.Millisecond, "error")
	bm.RecordDuration(ctx, "buffer", "entry_append", 10*time.Millisecond, "success")
	bm.RecordDuration(ctx, "buffer", "entry_mark_synced", 20*time.Millisecond, "success")
	bm.RecordDuration(ctx, "sync", "sync_batch", 150*time.Millisecond, "success")

	// Record entry outcomes; non-positive counts are dropped
	bm.RecordEntries(ctx, "buffer", "synced", 4)
	bm.RecordEntries(ctx, "buffer", "synced", 1)
	bm.RecordEntries(ctx, "buffer", "purged", 0)
	bm.RecordEntries(ctx, "events", "requeued", 2)

	// Metrics should be recorded without errors
	// Verify metrics in Prometheus registry
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	provider.Handler().ServeHTTP(w, req)

	output := w.Body.String()

	// Check operation counts
	assertBizMetricLine(
		t,
		output,
		`integration_test_operations_total`,
		`domain="events".*operation="event_submit".*status="success"`,
		`2`,
	)
	assertBizMetricLine(
		t,
		output,
		`integration_test_operations_total`,
		`domain="events".*operation="event_submit".*status="error"`,
		`1`,
	)
	assertBizMetricLine(
		t,
		output,
		`integration_test_operations_total`,
		`domain="buffer".*operation="entry_append".*status="success"`,
		`1`,
	)

	// Check durations (existence)
	assertBizMetricLine(
		t,
		output,
		`integration_test_operation_duration_seconds_count`,
		`domain="events".*operation="event_submit".*status="success"`,
		`2`,
	)
	assertBizMetricLine(
		t,
		output,
		`integration_test_operation_duration_seconds_sum`,
		`domain="events".*operation="event_submit".*status="success"`,
		``,
	)

	// Check entry outcomes
	assertBizMetricLine(
		t,
		output,
		`integration_test_entries_total`,
		`domain="buffer".*outcome="synced"`,
		`5`,
	)
	assertBizMetricLine(
		t,
		output,
		`integration_test_entries_total`,
		`domain="events".*outcome="requeued"`,
		`2`,
	)
	assert.NotContains(t, output, `outcome="purged"`)
}
