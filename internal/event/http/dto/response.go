package dto

import (
	"time"

	"github.com/allisson/scanrelay/internal/event/domain"
)

// EventResponse represents an event in API responses.
type EventResponse struct {
	ID            string            `json:"id"`
	Kind          string            `json:"kind"`
	Status        string            `json:"status"`
	DeviceID      string            `json:"device_id"`
	Payload       PayloadRequest    `json:"payload"`
	Error         string            `json:"error,omitempty"`
	RetryCount    int               `json:"retry_count"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	BufferEntryID *string           `json:"buffer_entry_id,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// MapEventToResponse converts a domain event to an API response.
func MapEventToResponse(event *domain.Event) EventResponse {
	response := EventResponse{
		ID:       event.ID.String(),
		Kind:     string(event.Kind),
		Status:   string(event.Status),
		DeviceID: event.DeviceID,
		Payload: PayloadRequest{
			ScanData:    event.Payload.ScanData,
			ScanType:    event.Payload.ScanType,
			WorkOrderID: event.Payload.WorkOrderID,
			ComponentID: event.Payload.ComponentID,
			OperatorID:  event.Payload.OperatorID,
		},
		Error:      event.Error,
		RetryCount: event.RetryCount,
		Metadata:   event.Metadata,
		CreatedAt:  event.CreatedAt,
		UpdatedAt:  event.UpdatedAt,
	}
	if event.BufferEntryID != nil {
		id := event.BufferEntryID.String()
		response.BufferEntryID = &id
	}
	return response
}

// ListEventsResponse represents a list of events in API responses.
type ListEventsResponse struct {
	Data []EventResponse `json:"data"`
}

// MapEventsToListResponse converts a slice of events to a list response.
func MapEventsToListResponse(events []*domain.Event) ListEventsResponse {
	data := make([]EventResponse, 0, len(events))
	for _, event := range events {
		data = append(data, MapEventToResponse(event))
	}
	return ListEventsResponse{Data: data}
}

// RetryFailedResponse reports how many events were re-enqueued.
type RetryFailedResponse struct {
	Requeued int `json:"requeued"`
}
