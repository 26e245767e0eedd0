// Package mocks provides mock implementations of the buffer use cases for testing.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/scanrelay/internal/buffer/domain"
	"github.com/allisson/scanrelay/internal/buffer/usecase"
)

// MockBufferUseCase is a mock implementation of BufferUseCase for testing.
type MockBufferUseCase struct {
	mock.Mock
}

// Append mocks the Append method of BufferUseCase.
func (m *MockBufferUseCase) Append(ctx context.Context, payload []byte) (*domain.Entry, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Entry), args.Error(1)
}

// AppendKeyed mocks the AppendKeyed method of BufferUseCase.
func (m *MockBufferUseCase) AppendKeyed(ctx context.Context, key string, payload []byte) (*domain.Entry, error) {
	args := m.Called(ctx, key, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Entry), args.Error(1)
}

// Get mocks the Get method of BufferUseCase.
func (m *MockBufferUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Entry), args.Error(1)
}

// ListPending mocks the ListPending method of BufferUseCase.
func (m *MockBufferUseCase) ListPending(ctx context.Context, limit int) ([]*domain.Entry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Entry), args.Error(1)
}

// MarkSyncing mocks the MarkSyncing method of BufferUseCase.
func (m *MockBufferUseCase) MarkSyncing(ctx context.Context, entry *domain.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MarkSynced mocks the MarkSynced method of BufferUseCase.
func (m *MockBufferUseCase) MarkSynced(ctx context.Context, entry *domain.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MarkRetry mocks the MarkRetry method of BufferUseCase.
func (m *MockBufferUseCase) MarkRetry(ctx context.Context, entry *domain.Entry, cause string) error {
	args := m.Called(ctx, entry, cause)
	return args.Error(0)
}

// MarkFailed mocks the MarkFailed method of BufferUseCase.
func (m *MockBufferUseCase) MarkFailed(ctx context.Context, entry *domain.Entry, cause string) error {
	args := m.Called(ctx, entry, cause)
	return args.Error(0)
}

// RecoverInFlight mocks the RecoverInFlight method of BufferUseCase.
func (m *MockBufferUseCase) RecoverInFlight(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

// PurgeSynced mocks the PurgeSynced method of BufferUseCase.
func (m *MockBufferUseCase) PurgeSynced(ctx context.Context, olderThan time.Duration, dryRun bool) (int64, error) {
	args := m.Called(ctx, olderThan, dryRun)
	return args.Get(0).(int64), args.Error(1)
}

// Count mocks the Count method of BufferUseCase.
func (m *MockBufferUseCase) Count(ctx context.Context, status domain.Status) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

// Export mocks the Export method of BufferUseCase.
func (m *MockBufferUseCase) Export(ctx context.Context, filter domain.ExportFilter) ([]*domain.Entry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Entry), args.Error(1)
}

// Statistics mocks the Statistics method of BufferUseCase.
func (m *MockBufferUseCase) Statistics(ctx context.Context) (*domain.Statistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Statistics), args.Error(1)
}

// MockSyncUseCase is a mock implementation of SyncUseCase for testing.
type MockSyncUseCase struct {
	mock.Mock
}

// RegisterHandler mocks the RegisterHandler method of SyncUseCase.
func (m *MockSyncUseCase) RegisterHandler(handler usecase.SyncHandler) {
	m.Called(handler)
}

// HandlerNames mocks the HandlerNames method of SyncUseCase.
func (m *MockSyncUseCase) HandlerNames() []string {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

// Start mocks the Start method of SyncUseCase.
func (m *MockSyncUseCase) Start(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// SyncPending mocks the SyncPending method of SyncUseCase.
func (m *MockSyncUseCase) SyncPending(ctx context.Context) (domain.SyncResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.SyncResult), args.Error(1)
}

// SyncAll mocks the SyncAll method of SyncUseCase.
func (m *MockSyncUseCase) SyncAll(ctx context.Context) (domain.SyncResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.SyncResult), args.Error(1)
}
