package app

import (
	"context"
	"fmt"

	eventHTTP "github.com/allisson/scanrelay/internal/event/http"
	eventUseCase "github.com/allisson/scanrelay/internal/event/usecase"
	"github.com/allisson/scanrelay/internal/metrics"
	"github.com/allisson/scanrelay/internal/pipeline"
)

// Dispatcher returns the event dispatcher with its handlers registered.
func (c *Container) Dispatcher(ctx context.Context) (*eventUseCase.Dispatcher, error) {
	var err error
	c.dispatcherInit.Do(func() {
		c.dispatcher, err = c.initDispatcher(ctx)
		if err != nil {
			c.initErrors["dispatcher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["dispatcher"]; exists {
		return nil, storedErr
	}
	return c.dispatcher, nil
}

// EventUseCase returns the event use case backed by the dispatcher.
func (c *Container) EventUseCase() (eventUseCase.EventUseCase, error) {
	var err error
	c.eventUseCaseInit.Do(func() {
		c.eventUseCase, err = c.initEventUseCase()
		if err != nil {
			c.initErrors["eventUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventUseCase"]; exists {
		return nil, storedErr
	}
	return c.eventUseCase, nil
}

// EventHandler returns the HTTP handler for event operations.
func (c *Container) EventHandler() (*eventHTTP.EventHandler, error) {
	var err error
	c.eventHandlerInit.Do(func() {
		c.eventHandler, err = c.initEventHandler()
		if err != nil {
			c.initErrors["eventHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventHandler"]; exists {
		return nil, storedErr
	}
	return c.eventHandler, nil
}

// Pipeline returns the pipeline facade.
func (c *Container) Pipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	var err error
	c.pipelineInit.Do(func() {
		c.pipeline, err = c.initPipeline(ctx)
		if err != nil {
			c.initErrors["pipeline"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["pipeline"]; exists {
		return nil, storedErr
	}
	return c.pipeline, nil
}

// initDispatcher creates the dispatcher. Undeliverable events spill to the
// buffer and are forwarded through the same sinks as the synchronizer.
func (c *Container) initDispatcher(ctx context.Context) (*eventUseCase.Dispatcher, error) {
	buffer, err := c.BufferUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get buffer use case for dispatcher: %w", err)
	}

	handlers, err := c.SyncHandlers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync handlers for dispatcher: %w", err)
	}

	logger := c.Logger()
	dispatcher := eventUseCase.NewDispatcher(eventUseCase.Config{
		QueueSize: c.config.EventQueueSize,
		Workers:   c.config.EventWorkers,
	}, pipeline.NewBufferSpiller(buffer), logger)

	pipeline.RegisterDefaultHandlers(dispatcher, pipeline.NewForwardHandler(handlers...), logger)

	return dispatcher, nil
}

// initEventUseCase wraps the dispatcher with metrics when enabled.
func (c *Container) initEventUseCase() (eventUseCase.EventUseCase, error) {
	dispatcher, err := c.Dispatcher(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get dispatcher for event use case: %w", err)
	}

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for event use case: %w", err)
		}
		return eventUseCase.NewEventUseCaseWithMetrics(dispatcher, businessMetrics), nil
	}

	return dispatcher, nil
}

// initEventHandler creates the event HTTP handler.
func (c *Container) initEventHandler() (*eventHTTP.EventHandler, error) {
	events, err := c.EventUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get event use case for event handler: %w", err)
	}

	return eventHTTP.NewEventHandler(events, c.config.EventMaxRetries, c.Logger()), nil
}

// initPipeline assembles the pipeline and registers its gauges.
func (c *Container) initPipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	dispatcher, err := c.Dispatcher(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get dispatcher for pipeline: %w", err)
	}

	events, err := c.EventUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get event use case for pipeline: %w", err)
	}

	buffer, err := c.BufferUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get buffer use case for pipeline: %w", err)
	}

	synchronizer, err := c.Synchronizer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get synchronizer for pipeline: %w", err)
	}

	p := pipeline.New(pipeline.Config{
		SyncInterval:    c.config.SyncInterval,
		SyncMaxRetries:  c.config.SyncMaxRetries,
		EventMaxRetries: c.config.EventMaxRetries,
		JanitorInterval: c.config.JanitorInterval,
		SyncedRetention: c.config.SyncedRetention,
		EventRetention:  c.config.EventRetention,
	}, dispatcher, events, buffer, synchronizer, c.Logger())

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for pipeline: %w", err)
	}
	if provider != nil {
		if err := metrics.RegisterPipelineGauges(provider.MeterProvider(), c.config.MetricsNamespace, p); err != nil {
			return nil, fmt.Errorf("failed to register pipeline gauges: %w", err)
		}
	}

	return p, nil
}
