// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	bufferDomain "github.com/allisson/scanrelay/internal/buffer/domain"
	bufferHTTP "github.com/allisson/scanrelay/internal/buffer/http"
	bufferMocks "github.com/allisson/scanrelay/internal/buffer/usecase/mocks"
	"github.com/allisson/scanrelay/internal/config"
	eventDomain "github.com/allisson/scanrelay/internal/event/domain"
	eventHTTP "github.com/allisson/scanrelay/internal/event/http"
	eventMocks "github.com/allisson/scanrelay/internal/event/usecase/mocks"
	"github.com/allisson/scanrelay/internal/metrics"
	"github.com/allisson/scanrelay/internal/testutil"
)

// TestMain sets Gin to test mode for all tests in this package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// createTestServer creates a test server with a discarding logger.
func createTestServer() *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(nil, "localhost", 8080, logger)
}

// TestHealthHandler tests the health check endpoint handler.
func TestHealthHandler(t *testing.T) {
	server := createTestServer()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	server.healthHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "healthy", response["status"])
}

// TestReadinessHandler_NotReady_NilDB tests the readiness endpoint when DB is nil.
func TestReadinessHandler_NotReady_NilDB(t *testing.T) {
	server := createTestServer()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

	server.readinessHandler(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "not_ready", response["status"])

	components, ok := response["components"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "error", components["database"])
}

// TestCustomLoggerMiddleware tests the custom logging middleware.
func TestCustomLoggerMiddleware(t *testing.T) {
	// Create a test logger that discards output
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(logger))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "test", response["message"])
}

// TestRecoveryMiddleware tests Gin's built-in recovery middleware.
func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CustomLoggerMiddleware(logger))
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)

	// Should not panic - Recovery middleware catches it
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// createMinimalRouter creates a minimal router with only health and ready endpoints for testing.
func createMinimalRouter(server *Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(server.logger))

	// Register only health endpoints for basic router tests
	router.GET("/health", server.healthHandler)
	router.GET("/ready", server.readinessHandler)

	return router
}

// TestRouter_HealthEndpoint tests the health endpoint through the full router.
func TestRouter_HealthEndpoint(t *testing.T) {
	server := createTestServer()
	router := createMinimalRouter(server)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "healthy", response["status"])
}

// TestRouter_ReadyEndpoint tests the ready endpoint through the full router when not ready.
func TestRouter_ReadyEndpoint(t *testing.T) {
	server := createTestServer()
	router := createMinimalRouter(server)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "not_ready", response["status"])

	components, ok := response["components"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "error", components["database"])
}

// TestRouter_NotFoundEndpoint tests 404 handling.
func TestRouter_NotFoundEndpoint(t *testing.T) {
	server := createTestServer()
	router := createMinimalRouter(server)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestServer_ShutdownGracefully tests graceful server shutdown.
func TestServer_ShutdownGracefully(t *testing.T) {
	server := createTestServer()

	// Initialize router with minimal setup
	router := createMinimalRouter(server)
	server.router = router

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	// Shutdown server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	err := server.Shutdown(shutdownCtx)
	assert.NoError(t, err)

	// Verify no startup errors
	select {
	case err := <-errChan:
		t.Fatalf("server startup failed: %v", err)
	default:
		// No error, good
	}
}

// TestRequestIDMiddleware_HeaderPresent verifies X-Request-Id header is present in response.
func TestRequestIDMiddleware_HeaderPresent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	// Verify X-Request-Id header is present
	requestID := w.Header().Get("X-Request-Id")
	assert.NotEmpty(t, requestID, "X-Request-Id header should be present")

	// Verify it's a valid UUID
	parsedUUID, err := uuid.Parse(requestID)
	require.NoError(t, err, "X-Request-Id should be a valid UUID")
	assert.NotEqual(t, uuid.Nil, parsedUUID, "X-Request-Id should not be nil UUID")
}

// TestMetricsServer_Endpoints tests the metrics server endpoints.
func TestMetricsServer_Endpoints(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Create metrics provider
	provider, err := metrics.NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	// Create metrics server
	metricsServer := NewMetricsServer("localhost", 8081, logger, provider)
	require.NotNil(t, metricsServer)

	// Test the handler from metricsServer exactly as it's configured
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsServer.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")

	w = httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestMetricsServer_ServeAndShutdown serves on an ephemeral port and stops cleanly.
func TestMetricsServer_ServeAndShutdown(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	provider, err := metrics.NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	metricsServer := NewMetricsServer("127.0.0.1", 0, logger, provider)
	done := make(chan error, 1)
	go func() {
		done <- metricsServer.Serve(listener)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String() + "/metrics")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, metricsServer.Shutdown(context.Background()))
	require.NoError(t, <-done)
}

// setupFullRouter wires the v1 routes against mocked use cases.
func setupFullRouter(
	t *testing.T,
	cfg *config.Config,
) (*Server, *eventMocks.MockEventUseCase, *bufferMocks.MockBufferUseCase, *bufferMocks.MockSyncUseCase) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := &eventMocks.MockEventUseCase{}
	buffer := &bufferMocks.MockBufferUseCase{}
	syncer := &bufferMocks.MockSyncUseCase{}

	db := testutil.SetupSQLiteDB(t)
	t.Cleanup(func() { _ = db.Close() })

	server := NewServer(db, "localhost", 8080, logger)
	server.SetupRouter(
		cfg,
		eventHTTP.NewEventHandler(events, 3, logger),
		bufferHTTP.NewBufferHandler(buffer, syncer, bufferHTTP.SyncSettings{Interval: time.Minute}, logger),
		nil,
		"test",
	)

	return server, events, buffer, syncer
}

// TestServer_NoMetricsEndpoint tests that the main server does NOT expose /metrics.
func TestServer_NoMetricsEndpoint(t *testing.T) {
	server, _, _, _ := setupFullRouter(t, &config.Config{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	server.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestServer_ReadyWithDatabase tests the ready endpoint with a reachable buffer store.
func TestServer_ReadyWithDatabase(t *testing.T) {
	server, _, _, _ := setupFullRouter(t, &config.Config{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	server.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","components":{"database":"ok"}}`, w.Body.String())
}

// TestServer_Routes tests that the v1 routes reach their handlers.
func TestServer_Routes(t *testing.T) {
	server, events, buffer, syncer := setupFullRouter(t, &config.Config{})

	events.On("Statistics", mock.Anything).Return(&eventDomain.Statistics{}).Once()
	events.On("List", mock.Anything, mock.Anything).Return([]*eventDomain.Event{}).Once()
	buffer.On("Statistics", mock.Anything).Return(&bufferDomain.Statistics{}, nil).Once()
	buffer.On("PurgeSynced", mock.Anything, time.Duration(0), true).Return(int64(0), nil).Once()
	syncer.On("HandlerNames").Return([]string{"http"}).Once()
	syncer.On("SyncAll", mock.Anything).Return(bufferDomain.SyncResult{}, nil).Once()

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/events/stats"},
		{http.MethodGet, "/v1/events"},
		{http.MethodGet, "/v1/buffer/stats"},
		{http.MethodPost, "/v1/buffer/sync"},
		{http.MethodDelete, "/v1/buffer/entries/synced?hours=0&dry_run=true"},
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(route.method, route.path, nil)
		server.GetHandler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, route.path)
	}

	events.AssertExpectations(t)
	buffer.AssertExpectations(t)
	syncer.AssertExpectations(t)
}

// TestServer_IngestRateLimit tests that ingest endpoints are throttled while
// monitoring endpoints are not.
func TestServer_IngestRateLimit(t *testing.T) {
	server, events, _, _ := setupFullRouter(t, &config.Config{
		RateLimitIngestEnabled:        true,
		RateLimitIngestRequestsPerSec: 0.001,
		RateLimitIngestBurst:          1,
	})

	events.On("Submit", mock.Anything, mock.Anything).Return(&eventDomain.Event{
		ID:     uuid.Must(uuid.NewV7()),
		Status: eventDomain.StatusPending,
	}).Once()
	events.On("Statistics", mock.Anything).Return(&eventDomain.Statistics{}).Twice()

	body := `{"kind":"scan","device_id":"scanner_01","payload":{"scan_data":"ABC-123","scan_type":"barcode"}}`
	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		server.GetHandler().ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusAccepted, http.StatusTooManyRequests}, codes)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		server.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/events/stats", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	events.AssertExpectations(t)
}
