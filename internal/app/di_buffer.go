package app

import (
	"context"
	"fmt"

	bufferHTTP "github.com/allisson/scanrelay/internal/buffer/http"
	bufferRepository "github.com/allisson/scanrelay/internal/buffer/repository"
	bufferUseCase "github.com/allisson/scanrelay/internal/buffer/usecase"
	"github.com/allisson/scanrelay/internal/database"
	"github.com/allisson/scanrelay/internal/sink"
)

// EntryRepository returns the buffer entry repository based on database driver.
func (c *Container) EntryRepository() (bufferUseCase.EntryRepository, error) {
	var err error
	c.entryRepositoryInit.Do(func() {
		c.entryRepository, err = c.initEntryRepository()
		if err != nil {
			c.initErrors["entryRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["entryRepository"]; exists {
		return nil, storedErr
	}
	return c.entryRepository, nil
}

// BufferUseCase returns the buffer use case.
func (c *Container) BufferUseCase() (bufferUseCase.BufferUseCase, error) {
	var err error
	c.bufferUseCaseInit.Do(func() {
		c.bufferUseCase, err = c.initBufferUseCase()
		if err != nil {
			c.initErrors["bufferUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["bufferUseCase"]; exists {
		return nil, storedErr
	}
	return c.bufferUseCase, nil
}

// SyncHandlers returns the configured sinks in delivery order.
func (c *Container) SyncHandlers(ctx context.Context) ([]bufferUseCase.SyncHandler, error) {
	var err error
	c.syncHandlersInit.Do(func() {
		c.syncHandlers, err = c.initSyncHandlers(ctx)
		if err != nil {
			c.initErrors["syncHandlers"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["syncHandlers"]; exists {
		return nil, storedErr
	}
	return c.syncHandlers, nil
}

// Synchronizer returns the buffer synchronization loop.
func (c *Container) Synchronizer(ctx context.Context) (*bufferUseCase.Synchronizer, error) {
	var err error
	c.synchronizerInit.Do(func() {
		c.synchronizer, err = c.initSynchronizer(ctx)
		if err != nil {
			c.initErrors["synchronizer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["synchronizer"]; exists {
		return nil, storedErr
	}
	return c.synchronizer, nil
}

// BufferHandler returns the HTTP handler for buffer operations.
func (c *Container) BufferHandler() (*bufferHTTP.BufferHandler, error) {
	var err error
	c.bufferHandlerInit.Do(func() {
		c.bufferHandler, err = c.initBufferHandler()
		if err != nil {
			c.initErrors["bufferHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["bufferHandler"]; exists {
		return nil, storedErr
	}
	return c.bufferHandler, nil
}

// initEntryRepository creates the entry repository for the configured driver.
func (c *Container) initEntryRepository() (bufferUseCase.EntryRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for entry repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverSQLite:
		return bufferRepository.NewSQLiteEntryRepository(db), nil
	case database.DriverPostgres:
		return bufferRepository.NewPostgreSQLEntryRepository(db), nil
	case database.DriverMySQL:
		return bufferRepository.NewMySQLEntryRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initBufferUseCase creates the buffer use case with all its dependencies.
func (c *Container) initBufferUseCase() (bufferUseCase.BufferUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for buffer use case: %w", err)
	}

	entryRepository, err := c.EntryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get entry repository for buffer use case: %w", err)
	}

	baseUseCase := bufferUseCase.NewBufferUseCase(
		bufferUseCase.Config{
			Size:          c.config.BufferSize,
			EvictionBatch: c.config.BufferEvictionBatch,
		},
		txManager,
		entryRepository,
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for buffer use case: %w", err)
		}
		return bufferUseCase.NewBufferUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initSyncHandlers opens every sink named in SYNC_SINKS.
func (c *Container) initSyncHandlers(ctx context.Context) ([]bufferUseCase.SyncHandler, error) {
	names := c.config.SyncSinkNames()
	handlers := make([]bufferUseCase.SyncHandler, 0, len(names))

	for _, name := range names {
		switch name {
		case sink.NameHTTP:
			httpSink, err := sink.NewHTTPSink(sink.HTTPConfig{
				URL:       c.config.RemoteURL,
				Timeout:   c.config.RemoteTimeout,
				RateLimit: c.config.RemoteRateLimitPerSec,
				Burst:     c.config.RemoteRateLimitBurst,
			}, c.Logger())
			if err != nil {
				return nil, fmt.Errorf("failed to create http sink: %w", err)
			}
			handlers = append(handlers, httpSink)

		case sink.NameBlob:
			blobSink, err := sink.OpenBlobSink(ctx, c.config.ArchiveBucketURL, c.config.ArchivePrefix)
			if err != nil {
				return nil, fmt.Errorf("failed to create blob sink: %w", err)
			}
			c.sinkClosers = append(c.sinkClosers, blobSink)
			handlers = append(handlers, blobSink)

		case sink.NameRedis:
			redisConfig := sink.RedisConfig{
				Address:  c.config.RedisAddr,
				Password: c.config.RedisPassword,
				Database: c.config.RedisDB,
				Stream:   c.config.RedisStream,
				MaxLen:   c.config.RedisStreamMaxLen,
			}
			client, err := sink.NewRedisClient(ctx, redisConfig)
			if err != nil {
				return nil, fmt.Errorf("failed to create redis sink: %w", err)
			}
			c.sinkClosers = append(c.sinkClosers, client)
			handlers = append(handlers, sink.NewRedisSink(client, redisConfig))

		default:
			return nil, fmt.Errorf("unsupported sync sink: %s", name)
		}
	}

	return handlers, nil
}

// initSynchronizer creates the synchronization loop and registers the sinks.
func (c *Container) initSynchronizer(ctx context.Context) (*bufferUseCase.Synchronizer, error) {
	buffer, err := c.BufferUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get buffer use case for synchronizer: %w", err)
	}

	handlers, err := c.SyncHandlers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync handlers for synchronizer: %w", err)
	}

	synchronizer := bufferUseCase.NewSynchronizer(bufferUseCase.SyncConfig{
		Interval:         c.config.SyncInterval,
		BatchSize:        c.config.SyncBatchSize,
		MaxRetries:       c.config.SyncMaxRetries,
		RecoveryInterval: c.config.SyncRecoveryInterval,
		DrainPause:       c.config.SyncDrainPause,
		StaleAfter:       c.config.SyncStaleAfter,
	}, buffer, c.Logger())

	for _, handler := range handlers {
		synchronizer.RegisterHandler(handler)
	}

	return synchronizer, nil
}

// initBufferHandler creates the buffer HTTP handler with all its dependencies.
func (c *Container) initBufferHandler() (*bufferHTTP.BufferHandler, error) {
	buffer, err := c.BufferUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get buffer use case for buffer handler: %w", err)
	}

	synchronizer, err := c.Synchronizer(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get synchronizer for buffer handler: %w", err)
	}

	return bufferHTTP.NewBufferHandler(buffer, synchronizer, bufferHTTP.SyncSettings{
		Interval:        c.config.SyncInterval,
		MaxRetries:      c.config.SyncMaxRetries,
		SyncedRetention: c.config.SyncedRetention,
	}, c.Logger()), nil
}
