// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/allisson/scanrelay/internal/event/domain"
	customValidation "github.com/allisson/scanrelay/internal/validation"
)

// PayloadRequest carries the scan payload. Field rules are applied by the
// dispatcher so that rejected payloads are still tracked as failed events.
type PayloadRequest struct {
	ScanData    string `json:"scan_data"`
	ScanType    string `json:"scan_type"`
	WorkOrderID string `json:"work_order_id,omitempty"`
	ComponentID string `json:"component_id,omitempty"`
	OperatorID  string `json:"operator_id,omitempty"`
}

// SubmitEventRequest contains the parameters for submitting an event.
type SubmitEventRequest struct {
	Kind     string            `json:"kind"`
	DeviceID string            `json:"device_id"`
	Payload  PayloadRequest    `json:"payload"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Validate checks the envelope of the submit request.
func (r *SubmitEventRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Kind,
			validation.Required,
			validation.By(func(value interface{}) error {
				if !domain.Kind(value.(string)).IsValid() {
					return validation.NewError("validation_kind", "must be one of "+kindList())
				}
				return nil
			}),
		),
		validation.Field(&r.DeviceID,
			validation.Required,
			customValidation.NoWhitespace,
			customValidation.DeviceID,
		),
	)
}

func kindList() string {
	kinds := make([]string, 0, len(domain.Kinds))
	for _, k := range domain.Kinds {
		kinds = append(kinds, string(k))
	}
	return strings.Join(kinds, ", ")
}

// ToSubmitInput maps the request to the dispatcher input.
func (r *SubmitEventRequest) ToSubmitInput() *domain.SubmitInput {
	return &domain.SubmitInput{
		Kind:     domain.Kind(r.Kind),
		DeviceID: r.DeviceID,
		Payload: domain.Payload{
			ScanData:    r.Payload.ScanData,
			ScanType:    r.Payload.ScanType,
			WorkOrderID: r.Payload.WorkOrderID,
			ComponentID: r.Payload.ComponentID,
			OperatorID:  r.Payload.OperatorID,
		},
		Metadata: r.Metadata,
	}
}

// RetryFailedRequest contains the optional retry bound for resubmission.
type RetryFailedRequest struct {
	MaxRetries *int `json:"max_retries,omitempty"`
}

// Validate checks if the retry request is valid.
func (r *RetryFailedRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.MaxRetries, validation.Min(0)),
	)
}
