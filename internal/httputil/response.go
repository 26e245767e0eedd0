// Package httputil provides HTTP utility functions for request and response handling.
package httputil

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/scanrelay/internal/errors"
)

// RetryAfterSeconds is advertised to clients on 503 responses. Devices keep the
// scan locally and resubmit after this delay.
const RetryAfterSeconds = "5"

// ErrorResponse represents a structured error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// errorMapping binds a sentinel to its HTTP status. exposeMessage controls
// whether the wrapped error text is returned to the client.
type errorMapping struct {
	target        error
	status        int
	code          string
	message       string
	exposeMessage bool
}

// errorMappings is evaluated in order; the first matching sentinel wins.
var errorMappings = []errorMapping{
	{target: apperrors.ErrNotFound, status: http.StatusNotFound, code: "not_found",
		message: "The requested resource was not found"},
	{target: apperrors.ErrConflict, status: http.StatusConflict, code: "conflict",
		message: "The resource is not in a state that allows this operation", exposeMessage: true},
	{target: apperrors.ErrInvalidInput, status: http.StatusUnprocessableEntity, code: "invalid_input",
		exposeMessage: true},
	{target: apperrors.ErrUnavailable, status: http.StatusServiceUnavailable, code: "unavailable",
		exposeMessage: true},
	{target: context.DeadlineExceeded, status: http.StatusGatewayTimeout, code: "timeout",
		message: "The operation did not complete in time"},
}

// HandleErrorGin maps domain errors to HTTP status codes and writes a JSON response.
// Unknown errors become 500 without exposing their text.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	statusCode := http.StatusInternalServerError
	errorResponse := ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	}

	for _, mapping := range errorMappings {
		if !apperrors.Is(err, mapping.target) {
			continue
		}
		statusCode = mapping.status
		errorResponse = ErrorResponse{Error: mapping.code, Message: mapping.message}
		if mapping.exposeMessage {
			errorResponse.Message = err.Error()
		}
		break
	}

	if statusCode == http.StatusServiceUnavailable {
		c.Header("Retry-After", RetryAfterSeconds)
	}

	if logger != nil {
		level := slog.LevelWarn
		if statusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		ctx := context.Background()
		if c.Request != nil {
			ctx = c.Request.Context()
		}
		logger.Log(ctx, level, "request failed",
			slog.Int("status_code", statusCode),
			slog.String("error_code", errorResponse.Error),
			slog.Any("error", err),
		)
	}

	c.JSON(statusCode, errorResponse)
}

// HandleBadRequestGin writes a 400 Bad Request response for malformed JSON or parameters.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "bad_request",
		Message: err.Error(),
	})
}

// HandleValidationErrorGin writes a 422 Unprocessable Entity response for validation errors.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("validation failed", slog.Any("error", err))
	}

	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	})
}
