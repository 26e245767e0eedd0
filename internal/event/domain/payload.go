package domain

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/scanrelay/internal/validation"
)

// Validate checks the payload. Scan data is required and checked against its
// scan type, and an empty or unknown scan type gets the generic length check.
// Work order, component and operator ids are checked when present.
func (p Payload) Validate() error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.ScanData,
			validation.Required,
			customValidation.ScanData{ScanType: p.ScanType},
		),
		validation.Field(&p.WorkOrderID, customValidation.WorkOrderID),
		validation.Field(&p.ComponentID, customValidation.ComponentID),
		validation.Field(&p.OperatorID, customValidation.OperatorID),
	)
	if err != nil {
		return ValidationError(err)
	}
	return nil
}

// IsValid reports whether payload passes Validate.
func IsValid(payload Payload) bool {
	return payload.Validate() == nil
}
