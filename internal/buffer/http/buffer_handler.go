// Package http provides HTTP handlers for the durable buffer and its synchronizer.
package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/scanrelay/internal/buffer/domain"
	"github.com/allisson/scanrelay/internal/buffer/http/dto"
	bufferUseCase "github.com/allisson/scanrelay/internal/buffer/usecase"
	"github.com/allisson/scanrelay/internal/httputil"
)

// maxPayloadBytes bounds the size of a buffered payload accepted over HTTP.
const maxPayloadBytes = 1 << 20

// SyncSettings are the synchronization parameters reported by the stats endpoint.
type SyncSettings struct {
	Interval        time.Duration
	MaxRetries      int
	SyncedRetention time.Duration
}

// BufferHandler handles HTTP requests for buffer inspection and synchronization.
type BufferHandler struct {
	bufferUseCase bufferUseCase.BufferUseCase
	syncUseCase   bufferUseCase.SyncUseCase
	settings      SyncSettings
	logger        *slog.Logger
}

// NewBufferHandler creates a new buffer handler.
func NewBufferHandler(
	bufferUseCase bufferUseCase.BufferUseCase,
	syncUseCase bufferUseCase.SyncUseCase,
	settings SyncSettings,
	logger *slog.Logger,
) *BufferHandler {
	return &BufferHandler{
		bufferUseCase: bufferUseCase,
		syncUseCase:   syncUseCase,
		settings:      settings,
		logger:        logger,
	}
}

// CreateEntryHandler stores the request body as a pending buffer entry.
// POST /v1/buffer/entries
// Returns 201 Created with the entry metadata.
func (h *BufferHandler) CreateEntryHandler(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes+1))
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("failed to read body: %w", err), h.logger)
		return
	}
	if len(payload) > maxPayloadBytes {
		httputil.HandleBadRequestGin(c, fmt.Errorf("payload exceeds %d bytes", maxPayloadBytes), h.logger)
		return
	}
	if len(payload) > 0 && !json.Valid(payload) {
		httputil.HandleBadRequestGin(c, fmt.Errorf("payload must be valid JSON"), h.logger)
		return
	}

	entry, err := h.bufferUseCase.Append(c.Request.Context(), payload)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapEntryToResponse(entry, false))
}

// GetEntryHandler returns a buffer entry with its payload.
// GET /v1/buffer/entries/:id
func (h *BufferHandler) GetEntryHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid entry id: %w", err), h.logger)
		return
	}

	entry, err := h.bufferUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapEntryToResponse(entry, true))
}

// ListEntriesHandler returns entries in creation order.
// GET /v1/buffer/entries?status=&from=&to=&limit=
func (h *BufferHandler) ListEntriesHandler(c *gin.Context) {
	limit, err := httputil.ParseLimit(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	from, to, err := httputil.ParseTimeRange(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	filter := domain.ExportFilter{
		From:   from,
		To:     to,
		Status: domain.Status(strings.ToLower(c.Query("status"))),
		Limit:  limit,
	}

	entries, err := h.bufferUseCase.Export(c.Request.Context(), filter)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapEntriesToListResponse(entries))
}

// StatsHandler returns buffer statistics and synchronization settings.
// GET /v1/buffer/stats
func (h *BufferHandler) StatsHandler(c *gin.Context) {
	stats, err := h.bufferUseCase.Statistics(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapStatsToResponse(
		stats,
		h.settings.Interval,
		h.settings.MaxRetries,
		h.syncUseCase.HandlerNames(),
	))
}

// SyncHandler drains the buffer immediately. The drain stops after a batch
// that delivers nothing and reports what it did so far.
// POST /v1/buffer/sync
func (h *BufferHandler) SyncHandler(c *gin.Context) {
	result, err := h.syncUseCase.SyncAll(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSyncResultToResponse(result))
}

// PurgeSyncedHandler deletes synced entries older than the retention window.
// DELETE /v1/buffer/entries/synced?hours=&dry_run=
func (h *BufferHandler) PurgeSyncedHandler(c *gin.Context) {
	retention := h.settings.SyncedRetention
	if hoursStr := c.Query("hours"); hoursStr != "" {
		hours, err := strconv.Atoi(hoursStr)
		if err != nil || hours < 0 {
			httputil.HandleBadRequestGin(
				c,
				fmt.Errorf("invalid hours parameter: must be a non-negative integer"),
				h.logger,
			)
			return
		}
		retention = time.Duration(hours) * time.Hour
	}

	dryRun := false
	if dryRunStr := c.Query("dry_run"); dryRunStr != "" {
		parsed, err := strconv.ParseBool(dryRunStr)
		if err != nil {
			httputil.HandleBadRequestGin(c, fmt.Errorf("invalid dry_run parameter: must be a boolean"), h.logger)
			return
		}
		dryRun = parsed
	}

	purged, err := h.bufferUseCase.PurgeSynced(c.Request.Context(), retention, dryRun)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.PurgeResponse{Purged: purged, DryRun: dryRun})
}
