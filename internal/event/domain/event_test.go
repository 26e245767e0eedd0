package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/scanrelay/internal/errors"
)

func TestKind_IsValid(t *testing.T) {
	for _, k := range Kinds {
		assert.True(t, k.IsValid(), k)
	}
	assert.False(t, Kind("heartbeat").IsValid())
	assert.False(t, Kind("").IsValid())
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusProcessing, StatusPending, false},
		{StatusFailed, StatusPending, true},
		{StatusFailed, StatusProcessing, false},
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusFailed, false},
		{StatusCancelled, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
}

func TestNewEvent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	metadata := map[string]string{"line": "A"}

	event := NewEvent(&SubmitInput{
		Kind:     KindScan,
		DeviceID: "scanner_01",
		Payload:  Payload{ScanData: "ABC123", ScanType: "barcode"},
		Metadata: metadata,
	}, now)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, StatusPending, event.Status)
	assert.Equal(t, time.UTC, event.CreatedAt.Location())
	assert.True(t, now.Equal(event.CreatedAt))
	assert.Zero(t, event.RetryCount)

	metadata["line"] = "B"
	assert.Equal(t, "A", event.Metadata["line"])
}

func TestEvent_Clone(t *testing.T) {
	entryID := uuid.Must(uuid.NewV7())
	event := NewEvent(&SubmitInput{Kind: KindScan, Metadata: map[string]string{"k": "v"}}, time.Now())
	event.BufferEntryID = &entryID

	c := event.Clone()
	c.Metadata["k"] = "changed"
	*c.BufferEntryID = uuid.Nil

	assert.Equal(t, "v", event.Metadata["k"])
	assert.Equal(t, entryID, *event.BufferEntryID)
}

func TestListFilter_Matches(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := NewEvent(&SubmitInput{
		Kind:     KindScan,
		DeviceID: "scanner_01",
		Payload:  Payload{ScanData: "ABC123", ScanType: "barcode", WorkOrderID: "WO1234"},
	}, base)

	before := base.Add(-time.Minute)
	after := base.Add(time.Minute)

	tests := []struct {
		name   string
		filter ListFilter
		want   bool
	}{
		{"empty filter", ListFilter{}, true},
		{"status match", ListFilter{Status: StatusPending}, true},
		{"status mismatch", ListFilter{Status: StatusFailed}, false},
		{"kind mismatch", ListFilter{Kind: KindAlert}, false},
		{"device match", ListFilter{DeviceID: "scanner_01"}, true},
		{"device mismatch", ListFilter{DeviceID: "scanner_02"}, false},
		{"work order match", ListFilter{WorkOrderID: "WO1234"}, true},
		{"work order mismatch", ListFilter{WorkOrderID: "WO9999"}, false},
		{"inside range", ListFilter{From: &before, To: &after}, true},
		{"before range", ListFilter{From: &after}, false},
		{"after range", ListFilter{To: &before}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(event))
		})
	}
}

func TestPayload_Validate(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		wantErr bool
	}{
		{"valid barcode", Payload{ScanData: "ABC-123.4", ScanType: "barcode"}, false},
		{"valid rfid", Payload{ScanData: "0A1B2C3D", ScanType: "rfid"}, false},
		{"valid with optional ids", Payload{
			ScanData:    "COMP0001",
			ScanType:    "barcode",
			WorkOrderID: "wo12345",
			ComponentID: "COMP-0001",
			OperatorID:  "op_7",
		}, false},
		{"empty scan data", Payload{ScanData: "", ScanType: "barcode"}, true},
		{"blank scan data", Payload{ScanData: "   ", ScanType: "barcode"}, true},
		{"missing scan type uses generic rule", Payload{ScanData: "ABC"}, false},
		{"missing scan type too short", Payload{ScanData: "AB"}, true},
		{"barcode without digit", Payload{ScanData: "ABCDEF", ScanType: "barcode"}, true},
		{"barcode too short", Payload{ScanData: "A1", ScanType: "barcode"}, true},
		{"rfid not hex", Payload{ScanData: "ZZZZZZZZ", ScanType: "rfid"}, true},
		{"rfid too short", Payload{ScanData: "0A1B", ScanType: "rfid"}, true},
		{"bad work order", Payload{ScanData: "ABC123", ScanType: "barcode", WorkOrderID: "123"}, true},
		{"bad operator", Payload{ScanData: "ABC123", ScanType: "barcode", OperatorID: "x"}, true},
		{"bad component", Payload{ScanData: "ABC123", ScanType: "barcode", ComponentID: "a b"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValidation)
				assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
				assert.False(t, IsValid(tt.payload))
				return
			}
			assert.NoError(t, err)
			assert.True(t, IsValid(tt.payload))
		})
	}
}
