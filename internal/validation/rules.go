// Package validation provides the validation rules applied to scan payloads.
// All rules are pure and safe for concurrent use.
package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/scanrelay/internal/errors"
)

// Scan types with dedicated rules. Any other scan type gets the generic length check.
const (
	ScanTypeBarcode = "barcode"
	ScanTypeRFID    = "rfid"
)

var (
	barcodeStripRegex = regexp.MustCompile(`[^A-Za-z0-9.\-]`)
	hexRegex          = regexp.MustCompile(`^[0-9A-Fa-f]+$`)
	workOrderRegex    = regexp.MustCompile(`^[A-Z]{2,4}\d{4,8}$`)
	operatorRegex     = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)
	componentRegex    = regexp.MustCompile(`^[A-Za-z0-9._\-]+$`)
	deviceRegex       = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// ScanData validates raw scan data according to its scan type.
type ScanData struct {
	ScanType string
}

// Validate checks the scan data. Blank data is always rejected.
func (r ScanData) Validate(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_scan_data_type", "scan data must be a string")
	}

	data := strings.TrimSpace(s)
	if data == "" {
		return validation.NewError("validation_scan_data_blank", "scan data must not be blank")
	}

	switch strings.ToLower(strings.TrimSpace(r.ScanType)) {
	case ScanTypeBarcode:
		cleaned := barcodeStripRegex.ReplaceAllString(data, "")
		if n := utf8.RuneCountInString(cleaned); n < 3 || n > 50 {
			return validation.NewError("validation_barcode_length", "barcode must be between 3 and 50 characters")
		}
		if !hasNumber(cleaned) {
			return validation.NewError("validation_barcode_digit", "barcode must contain at least one digit")
		}
	case ScanTypeRFID:
		if n := utf8.RuneCountInString(data); n < 8 || n > 32 {
			return validation.NewError("validation_rfid_length", "rfid tag must be between 8 and 32 characters")
		}
		if !hexRegex.MatchString(data) {
			return validation.NewError("validation_rfid_hex", "rfid tag must be hexadecimal")
		}
	default:
		if n := utf8.RuneCountInString(data); n < 3 || n > 50 {
			return validation.NewError("validation_scan_data_length", "scan data must be between 3 and 50 characters")
		}
	}

	return nil
}

// lengthBetween counts characters, not bytes.
func lengthBetween(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}

func hasNumber(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// WorkOrderID validates a work order identifier such as "WO123456" (case-insensitive).
var WorkOrderID = validation.NewStringRuleWithError(
	func(s string) bool {
		return workOrderRegex.MatchString(strings.ToUpper(strings.TrimSpace(s)))
	},
	validation.NewError(
		"validation_work_order_format",
		"must be 2-4 letters followed by 4-8 digits",
	),
)

// OperatorID validates an operator identifier.
var OperatorID = validation.NewStringRuleWithError(
	func(s string) bool {
		return lengthBetween(s, 2, 20) && operatorRegex.MatchString(s)
	},
	validation.NewError(
		"validation_operator_format",
		"must be 2-20 letters, digits, hyphens or underscores",
	),
)

// ComponentID validates a component identifier.
var ComponentID = validation.NewStringRuleWithError(
	func(s string) bool {
		return lengthBetween(s, 3, 50) && componentRegex.MatchString(s)
	},
	validation.NewError(
		"validation_component_format",
		"must be 3-50 letters, digits, dots, hyphens or underscores",
	),
)

// DeviceID validates a device identifier.
var DeviceID = validation.NewStringRuleWithError(
	func(s string) bool {
		return lengthBetween(s, 3, 30) && deviceRegex.MatchString(s)
	},
	validation.NewError(
		"validation_device_format",
		"must be 3-30 letters, digits or underscores",
	),
)

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// ValidateScanData reports whether data is acceptable for scanType.
func ValidateScanData(data, scanType string) error {
	return ScanData{ScanType: scanType}.Validate(data)
}

// ValidateWorkOrderID reports whether id is a well-formed work order identifier.
func ValidateWorkOrderID(id string) error {
	return validation.Validate(id, validation.Required, WorkOrderID)
}

// ValidateOperatorID reports whether id is a well-formed operator identifier.
func ValidateOperatorID(id string) error {
	return validation.Validate(id, validation.Required, OperatorID)
}

// ValidateComponentID reports whether id is a well-formed component identifier.
func ValidateComponentID(id string) error {
	return validation.Validate(id, validation.Required, ComponentID)
}

// ValidateDeviceID reports whether id is a well-formed device identifier.
func ValidateDeviceID(id string) error {
	return validation.Validate(id, validation.Required, DeviceID)
}
