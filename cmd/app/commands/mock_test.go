package commands

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	bufferDomain "github.com/allisson/scanrelay/internal/buffer/domain"
	"github.com/allisson/scanrelay/internal/pipeline"
)

// mockPipeline satisfies every reporting interface the commands consume.
type mockPipeline struct {
	mock.Mock
}

func (m *mockPipeline) BufferStatistics(ctx context.Context) (*pipeline.BufferStatistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pipeline.BufferStatistics), args.Error(1)
}

func (m *mockPipeline) SyncNow(ctx context.Context) (bufferDomain.SyncResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(bufferDomain.SyncResult), args.Error(1)
}

func (m *mockPipeline) PurgeSynced(ctx context.Context, olderThan time.Duration, dryRun bool) (int64, error) {
	args := m.Called(ctx, olderThan, dryRun)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPipeline) ListBufferEntries(
	ctx context.Context,
	filter bufferDomain.ExportFilter,
) ([]*bufferDomain.Entry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bufferDomain.Entry), args.Error(1)
}

var (
	_ BufferStatsReader = (*pipeline.Pipeline)(nil)
	_ BufferSyncer      = (*pipeline.Pipeline)(nil)
	_ SyncedPurger      = (*pipeline.Pipeline)(nil)
	_ BufferExporter    = (*pipeline.Pipeline)(nil)
)
