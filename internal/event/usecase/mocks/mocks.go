// Package mocks provides mock implementations of the event use cases for testing.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/scanrelay/internal/event/domain"
)

// MockEventUseCase is a mock implementation of EventUseCase for testing.
type MockEventUseCase struct {
	mock.Mock
}

// Submit mocks the Submit method of EventUseCase.
func (m *MockEventUseCase) Submit(ctx context.Context, input *domain.SubmitInput) *domain.Event {
	args := m.Called(ctx, input)
	return args.Get(0).(*domain.Event)
}

// Get mocks the Get method of EventUseCase.
func (m *MockEventUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

// List mocks the List method of EventUseCase.
func (m *MockEventUseCase) List(ctx context.Context, filter domain.ListFilter) []*domain.Event {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*domain.Event)
}

// RetryFailed mocks the RetryFailed method of EventUseCase.
func (m *MockEventUseCase) RetryFailed(ctx context.Context, maxRetries int) int {
	args := m.Called(ctx, maxRetries)
	return args.Int(0)
}

// Statistics mocks the Statistics method of EventUseCase.
func (m *MockEventUseCase) Statistics(ctx context.Context) *domain.Statistics {
	args := m.Called(ctx)
	return args.Get(0).(*domain.Statistics)
}

// ClearOld mocks the ClearOld method of EventUseCase.
func (m *MockEventUseCase) ClearOld(ctx context.Context, maxAge time.Duration) int {
	args := m.Called(ctx, maxAge)
	return args.Int(0)
}

// MockSpiller is a mock implementation of Spiller for testing.
type MockSpiller struct {
	mock.Mock
}

// Spill mocks the Spill method of Spiller.
func (m *MockSpiller) Spill(ctx context.Context, event *domain.Event) (uuid.UUID, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(uuid.UUID), args.Error(1)
}
