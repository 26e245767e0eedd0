// Package http provides HTTP handlers for event submission and monitoring.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/scanrelay/internal/event/domain"
	"github.com/allisson/scanrelay/internal/event/http/dto"
	eventUseCase "github.com/allisson/scanrelay/internal/event/usecase"
	"github.com/allisson/scanrelay/internal/httputil"
	customValidation "github.com/allisson/scanrelay/internal/validation"
)

// EventHandler handles HTTP requests for the event dispatcher.
type EventHandler struct {
	eventUseCase eventUseCase.EventUseCase
	maxRetries   int
	logger       *slog.Logger
}

// NewEventHandler creates a new event handler. maxRetries is the retry bound
// used when a retry request does not carry one.
func NewEventHandler(
	eventUseCase eventUseCase.EventUseCase,
	maxRetries int,
	logger *slog.Logger,
) *EventHandler {
	return &EventHandler{
		eventUseCase: eventUseCase,
		maxRetries:   maxRetries,
		logger:       logger,
	}
}

// SubmitHandler enqueues an event.
// POST /v1/events
// Returns 202 Accepted with the pending event, or 503 with the failed event when
// the dispatcher could not accept it.
func (h *EventHandler) SubmitHandler(c *gin.Context) {
	var req dto.SubmitEventRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	event := h.eventUseCase.Submit(c.Request.Context(), req.ToSubmitInput())

	status := http.StatusAccepted
	if event.Status == domain.StatusFailed {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, dto.MapEventToResponse(event))
}

// GetHandler returns an event by ID.
// GET /v1/events/:id
func (h *EventHandler) GetHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid event id: %w", err), h.logger)
		return
	}

	event, err := h.eventUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapEventToResponse(event))
}

// ListHandler returns events matching the query filters.
// GET /v1/events?status=&kind=&device_id=&work_order_id=&from=&to=&limit=
func (h *EventHandler) ListHandler(c *gin.Context) {
	filter, err := parseListFilter(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	events := h.eventUseCase.List(c.Request.Context(), filter)
	c.JSON(http.StatusOK, dto.MapEventsToListResponse(events))
}

func parseListFilter(c *gin.Context) (domain.ListFilter, error) {
	var filter domain.ListFilter

	limit, err := httputil.ParseLimit(c)
	if err != nil {
		return filter, err
	}
	from, to, err := httputil.ParseTimeRange(c)
	if err != nil {
		return filter, err
	}

	filter = domain.ListFilter{
		DeviceID:    c.Query("device_id"),
		WorkOrderID: c.Query("work_order_id"),
		From:        from,
		To:          to,
		Limit:       limit,
	}

	if status := c.Query("status"); status != "" {
		filter.Status = domain.Status(strings.ToLower(status))
		if !filter.Status.IsValid() {
			return filter, fmt.Errorf("invalid status parameter: %s", status)
		}
	}
	if kind := c.Query("kind"); kind != "" {
		filter.Kind = domain.Kind(strings.ToLower(kind))
		if !filter.Kind.IsValid() {
			return filter, fmt.Errorf("invalid kind parameter: %s", kind)
		}
	}

	return filter, nil
}

// RetryFailedHandler re-enqueues failed events.
// POST /v1/events/retry
func (h *EventHandler) RetryFailedHandler(c *gin.Context) {
	var req dto.RetryFailedRequest

	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	maxRetries := h.maxRetries
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}

	requeued := h.eventUseCase.RetryFailed(c.Request.Context(), maxRetries)
	c.JSON(http.StatusOK, dto.RetryFailedResponse{Requeued: requeued})
}

// StatsHandler returns dispatcher statistics.
// GET /v1/events/stats
func (h *EventHandler) StatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.eventUseCase.Statistics(c.Request.Context()))
}
