package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	bufferDomain "github.com/allisson/scanrelay/internal/buffer/domain"
	bufferUsecase "github.com/allisson/scanrelay/internal/buffer/usecase"
	apperrors "github.com/allisson/scanrelay/internal/errors"
	eventDomain "github.com/allisson/scanrelay/internal/event/domain"
	eventUsecase "github.com/allisson/scanrelay/internal/event/usecase"
)

// forwardHandler delivers events through the same sinks the synchronizer uses.
type forwardHandler struct {
	sinks []bufferUsecase.SyncHandler
}

// NewForwardHandler returns an EventHandler that sends the event document to
// the first sink that accepts it. When every sink fails the error wraps
// ErrDelivery so the dispatcher buffers the event.
func NewForwardHandler(sinks ...bufferUsecase.SyncHandler) eventUsecase.EventHandler {
	return &forwardHandler{sinks: sinks}
}

// encodeDocument marshals the delivery record of event. Direct and buffered
// deliveries send the same bytes.
func encodeDocument(event *eventDomain.Event) ([]byte, error) {
	payload, err := json.Marshal(event.Document())
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	return payload, nil
}

func (h *forwardHandler) Handle(ctx context.Context, event *eventDomain.Event) error {
	payload, err := encodeDocument(event)
	if err != nil {
		return err
	}

	if len(h.sinks) == 0 {
		return fmt.Errorf("%w: no sinks configured", eventDomain.ErrDelivery)
	}

	entry := bufferDomain.NewKeyedEntry(payload, event.ID.String(), event.CreatedAt)
	failures := make([]string, 0, len(h.sinks))
	for _, sink := range h.sinks {
		err := sink.Sync(ctx, entry)
		if err == nil {
			return nil
		}
		failures = append(failures, fmt.Sprintf("%s: %v", sink.Name(), err))
	}

	return fmt.Errorf("%w: %s", eventDomain.ErrDelivery, strings.Join(failures, "; "))
}

// NewLogHandler returns an EventHandler that records error and alert events
// in the application log.
func NewLogHandler(logger *slog.Logger) eventUsecase.EventHandler {
	return eventUsecase.HandlerFunc(func(ctx context.Context, event *eventDomain.Event) error {
		if logger == nil {
			return nil
		}

		level := slog.LevelWarn
		if event.Kind == eventDomain.KindError {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "device reported "+string(event.Kind),
			slog.String("event_id", event.ID.String()),
			slog.String("device_id", event.DeviceID),
			slog.String("scan_data", event.Payload.ScanData),
			slog.String("work_order_id", event.Payload.WorkOrderID),
			slog.Any("metadata", event.Metadata),
		)
		return nil
	})
}

// bufferSpiller stores undeliverable events in the durable buffer.
type bufferSpiller struct {
	buffer bufferUsecase.BufferUseCase
}

// NewBufferSpiller returns a Spiller that appends the event document to buffer,
// keyed by the event id so the synchronizer reuses the key of the direct attempt.
func NewBufferSpiller(buffer bufferUsecase.BufferUseCase) eventUsecase.Spiller {
	return &bufferSpiller{buffer: buffer}
}

func (s *bufferSpiller) Spill(ctx context.Context, event *eventDomain.Event) (uuid.UUID, error) {
	payload, err := encodeDocument(event)
	if err != nil {
		return uuid.Nil, err
	}

	entry, err := s.buffer.AppendKeyed(ctx, event.ID.String(), payload)
	if err != nil {
		return uuid.Nil, apperrors.Wrapf(err, "failed to buffer event %s", event.ID)
	}
	return entry.ID, nil
}

// RegisterDefaultHandlers wires the forward handler for every kind and the log
// handler in front of it for error and alert events.
func RegisterDefaultHandlers(
	dispatcher interface {
		RegisterHandler(kind eventDomain.Kind, handler eventUsecase.EventHandler)
	},
	forward eventUsecase.EventHandler,
	logger *slog.Logger,
) {
	logHandler := NewLogHandler(logger)
	for _, kind := range eventDomain.Kinds {
		if kind == eventDomain.KindError || kind == eventDomain.KindAlert {
			dispatcher.RegisterHandler(kind, logHandler)
		}
		dispatcher.RegisterHandler(kind, forward)
	}
}
