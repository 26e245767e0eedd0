package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/allisson/scanrelay/internal/buffer/domain"
	apperrors "github.com/allisson/scanrelay/internal/errors"
)

// SyncConfig holds synchronization loop configuration
type SyncConfig struct {
	Interval         time.Duration
	BatchSize        int
	MaxRetries       int
	RecoveryInterval time.Duration
	DrainPause       time.Duration
	// StaleAfter is how long an entry may stay syncing before a batch treats
	// its attempt as abandoned. It must exceed the longest delivery attempt.
	StaleAfter time.Duration
}

const defaultStaleAfter = 5 * time.Minute

// Synchronizer delivers pending buffer entries through the registered sync
// handlers. Handlers are tried in registration order and the first success wins.
type Synchronizer struct {
	config SyncConfig
	buffer BufferUseCase
	logger *slog.Logger

	mu       sync.RWMutex
	handlers []SyncHandler

	// batchMu serializes batches so at most one attempt per entry is in flight.
	batchMu sync.Mutex
}

// NewSynchronizer creates a new Synchronizer
func NewSynchronizer(config SyncConfig, buffer BufferUseCase, logger *slog.Logger) *Synchronizer {
	if config.BatchSize <= 0 {
		config.BatchSize = defaultListLimit
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 1
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = defaultStaleAfter
	}
	return &Synchronizer{
		config: config,
		buffer: buffer,
		logger: logger,
	}
}

// RegisterHandler appends a sync handler
func (s *Synchronizer) RegisterHandler(handler SyncHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// HandlerNames returns the registered handler names in order
func (s *Synchronizer) HandlerNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.handlers))
	for _, h := range s.handlers {
		names = append(names, h.Name())
	}
	return names
}

func (s *Synchronizer) snapshotHandlers() []SyncHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]SyncHandler(nil), s.handlers...)
}

// Start runs a batch immediately and then every Interval until ctx is done.
// A failed batch is retried after RecoveryInterval instead.
func (s *Synchronizer) Start(ctx context.Context) error {
	if s.logger != nil {
		s.logger.Info("starting buffer synchronizer",
			slog.Duration("interval", s.config.Interval),
			slog.Int("batch_size", s.config.BatchSize),
			slog.Int("max_retries", s.config.MaxRetries),
			slog.Any("handlers", s.HandlerNames()),
		)
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.Info("stopping buffer synchronizer")
			}
			return ctx.Err()
		case <-timer.C:
			wait := s.config.Interval
			if _, err := s.SyncPending(ctx); err != nil && ctx.Err() == nil {
				if s.logger != nil {
					s.logger.Error("buffer synchronization failed",
						slog.Any("error", err),
						slog.Duration("retry_in", s.config.RecoveryInterval),
					)
				}
				wait = s.config.RecoveryInterval
			}
			timer.Reset(wait)
		}
	}
}

// SyncPending processes one batch of pending entries, oldest first.
func (s *Synchronizer) SyncPending(ctx context.Context) (domain.SyncResult, error) {
	var result domain.SyncResult

	handlers := s.snapshotHandlers()
	if len(handlers) == 0 {
		if s.logger != nil {
			s.logger.Warn("no sync handlers registered, skipping synchronization")
		}
		return result, nil
	}

	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	// batchMu only covers this process, so recent syncing rows may belong to a
	// live attempt elsewhere. Only rows past StaleAfter are reclaimed.
	if _, err := s.buffer.RecoverInFlight(ctx, s.config.StaleAfter); err != nil {
		return result, apperrors.Wrap(err, "failed to recover in-flight entries")
	}

	entries, err := s.buffer.ListPending(ctx, s.config.BatchSize)
	if err != nil {
		return result, apperrors.Wrap(err, "failed to list pending entries")
	}
	if len(entries) == 0 {
		return result, nil
	}

	if s.logger != nil {
		s.logger.Debug("synchronizing buffer entries", slog.Int("count", len(entries)))
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.syncEntry(ctx, entry, handlers, &result); err != nil {
			return result, apperrors.Wrapf(err, "failed to synchronize entry %s", entry.ID)
		}
	}

	if s.logger != nil {
		s.logger.Info("buffer synchronization batch completed",
			slog.Int("processed", result.Processed),
			slog.Int("synced", result.Synced),
			slog.Int("retried", result.Retried),
			slog.Int("failed", result.Failed),
		)
	}

	return result, nil
}

func (s *Synchronizer) syncEntry(
	ctx context.Context,
	entry *domain.Entry,
	handlers []SyncHandler,
	result *domain.SyncResult,
) error {
	if err := s.buffer.MarkSyncing(ctx, entry); err != nil {
		if apperrors.Is(err, domain.ErrInvalidTransition) {
			return nil
		}
		return err
	}
	result.Processed++

	var failures []string
	if err := entry.VerifyChecksum(); err != nil {
		failures = []string{err.Error()}
	} else {
		failures = s.deliver(ctx, entry, handlers)
	}

	if len(failures) == 0 {
		result.Synced++
		return s.buffer.MarkSynced(ctx, entry)
	}

	cause := strings.Join(failures, "; ")
	if entry.RetryCount+1 >= s.config.MaxRetries {
		if s.logger != nil {
			s.logger.Error("buffer entry exhausted retries",
				slog.String("entry_id", entry.ID.String()),
				slog.Int("retry_count", entry.RetryCount+1),
				slog.String("error", cause),
			)
		}
		result.Failed++
		return s.buffer.MarkFailed(ctx, entry, cause)
	}

	if s.logger != nil {
		s.logger.Warn("buffer entry delivery failed, will retry",
			slog.String("entry_id", entry.ID.String()),
			slog.Int("retry_count", entry.RetryCount+1),
			slog.String("error", cause),
		)
	}
	result.Retried++
	return s.buffer.MarkRetry(ctx, entry, cause)
}

// deliver tries each handler in order and returns the failure messages, or nil
// once a handler succeeds.
func (s *Synchronizer) deliver(ctx context.Context, entry *domain.Entry, handlers []SyncHandler) []string {
	failures := make([]string, 0, len(handlers))
	for _, h := range handlers {
		err := safeSync(ctx, h, entry.Clone())
		if err == nil {
			if s.logger != nil {
				s.logger.Debug("buffer entry delivered",
					slog.String("entry_id", entry.ID.String()),
					slog.String("handler", h.Name()),
				)
			}
			return nil
		}
		failures = append(failures, fmt.Sprintf("%s: %v", h.Name(), err))
	}
	return failures
}

func safeSync(ctx context.Context, h SyncHandler, entry *domain.Entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Sync(ctx, entry)
}

// SyncAll runs batches until no pending entries remain. It returns immediately
// when no handlers are registered and stops once a batch delivers nothing,
// leaving the remaining entries pending.
func (s *Synchronizer) SyncAll(ctx context.Context) (domain.SyncResult, error) {
	var total domain.SyncResult

	if len(s.snapshotHandlers()) == 0 {
		return total, nil
	}

	for {
		pending, err := s.buffer.Count(ctx, domain.StatusPending)
		if err != nil {
			return total, err
		}
		if pending == 0 {
			return total, nil
		}

		result, err := s.SyncPending(ctx)
		total.Add(result)
		if err != nil {
			return total, err
		}

		if result.Processed == 0 || result.Synced == 0 {
			if s.logger != nil {
				s.logger.Warn("buffer drain made no progress, leaving entries pending",
					slog.Int64("pending", pending),
					slog.Int("retried", result.Retried),
					slog.Int("failed", result.Failed),
				)
			}
			return total, nil
		}

		if s.config.DrainPause > 0 {
			select {
			case <-ctx.Done():
				return total, ctx.Err()
			case <-time.After(s.config.DrainPause):
			}
		}
	}
}
