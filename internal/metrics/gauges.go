package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// PipelineState exposes point-in-time pipeline measurements.
type PipelineState interface {
	// QueueDepth returns the number of events waiting for a dispatcher worker.
	QueueDepth() int
	// PendingEntries returns the number of buffer entries awaiting synchronization.
	PendingEntries(ctx context.Context) (int64, error)
}

// RegisterPipelineGauges registers observable gauges for the event queue depth
// and the pending buffer backlog. Values are read from state on every collection.
func RegisterPipelineGauges(meterProvider metric.MeterProvider, namespace string, state PipelineState) error {
	meter := meterProvider.Meter(namespace)

	queueDepth, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_event_queue_depth", namespace),
		metric.WithDescription("Number of events waiting for a dispatcher worker"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create queue depth gauge: %w", err)
	}

	pending, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_buffer_pending_entries", namespace),
		metric.WithDescription("Number of buffer entries awaiting synchronization"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create pending entries gauge: %w", err)
	}

	_, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		o.ObserveInt64(queueDepth, int64(state.QueueDepth()))

		count, err := state.PendingEntries(ctx)
		if err != nil {
			// No pending observation while the store is unavailable.
			return nil
		}
		o.ObserveInt64(pending, count)
		return nil
	}, queueDepth, pending)
	if err != nil {
		return fmt.Errorf("failed to register pipeline gauges: %w", err)
	}

	return nil
}
