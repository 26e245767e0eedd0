// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	bufferHTTP "github.com/allisson/scanrelay/internal/buffer/http"
	"github.com/allisson/scanrelay/internal/config"
	eventHTTP "github.com/allisson/scanrelay/internal/event/http"
	"github.com/allisson/scanrelay/internal/metrics"
)

// Server represents the HTTP server
type Server struct {
	db     *sql.DB
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter configures the Gin router with all routes and middleware.
// Ingest endpoints (event submission and direct buffering) are throttled per
// client IP when enabled in configuration.
func (s *Server) SetupRouter(
	cfg *config.Config,
	eventHandler *eventHTTP.EventHandler,
	bufferHandler *bufferHTTP.BufferHandler,
	metricsProvider *metrics.Provider,
	metricsNamespace string,
) {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), metricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	ingest := []gin.HandlerFunc{}
	if cfg.RateLimitIngestEnabled {
		ingest = append(ingest, IngestRateLimitMiddleware(
			cfg.RateLimitIngestRequestsPerSec,
			cfg.RateLimitIngestBurst,
			s.logger,
		))
	}

	v1 := router.Group("/v1")
	{
		events := v1.Group("/events")
		{
			events.POST("", append(ingest, eventHandler.SubmitHandler)...)
			events.GET("", eventHandler.ListHandler)
			events.GET("/stats", eventHandler.StatsHandler)
			events.POST("/retry", eventHandler.RetryFailedHandler)
			events.GET("/:id", eventHandler.GetHandler)
		}

		buffer := v1.Group("/buffer")
		{
			buffer.POST("/entries", append(ingest, bufferHandler.CreateEntryHandler)...)
			buffer.GET("/entries", bufferHandler.ListEntriesHandler)
			buffer.DELETE("/entries/synced", bufferHandler.PurgeSyncedHandler)
			buffer.GET("/entries/:id", bufferHandler.GetEntryHandler)
			buffer.GET("/stats", bufferHandler.StatsHandler)
			buffer.POST("/sync", bufferHandler.SyncHandler)
		}
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports readiness based on buffer store connectivity.
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.db.PingContext(ctx) != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": "ok"},
	})
}
