package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/allisson/scanrelay/internal/buffer/domain"
	apperrors "github.com/allisson/scanrelay/internal/errors"
)

// HTTPConfig configures the remote API sink.
type HTTPConfig struct {
	// URL receives one POST per payload.
	URL     string
	Timeout time.Duration
	// RateLimit is the sustained number of requests per second. Zero disables throttling.
	RateLimit float64
	Burst     int
}

// HTTPSink posts payloads to the remote system-of-record API.
type HTTPSink struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewHTTPSink creates a new HTTPSink
func NewHTTPSink(cfg HTTPConfig, logger *slog.Logger) (*HTTPSink, error) {
	if cfg.URL == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "remote url is required for the http sink")
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1))
	}

	return &HTTPSink{
		url:     cfg.URL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		logger:  logger,
	}, nil
}

// Name returns the sink name
func (s *HTTPSink) Name() string {
	return NameHTTP
}

// Sync posts the entry payload. The entry delivery key is sent as Idempotency-Key so the
// receiver can discard redeliveries. 2xx and 409 responses count as delivered.
func (s *HTTPSink) Sync(ctx context.Context, entry *domain.Entry) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return deliveryError(NameHTTP, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(entry.Payload))
	if err != nil {
		return fmt.Errorf("failed to build remote request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", entry.DeliveryKey())
	req.Header.Set("X-Payload-Checksum", entry.Checksum)

	resp, err := s.client.Do(req)
	if err != nil {
		return deliveryError(NameHTTP, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict:
		if s.logger != nil {
			s.logger.Debug("remote already has entry", slog.String("entry_id", entry.ID.String()))
		}
		return nil
	default:
		return deliveryError(NameHTTP, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}
