package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// httpInstruments holds the request instruments shared by every route.
type httpInstruments struct {
	requests    metric.Int64Counter
	duration    metric.Float64Histogram
	requestSize metric.Int64Histogram
}

func newHTTPInstruments(meter metric.Meter, namespace string) (*httpInstruments, error) {
	requests, err := meter.Int64Counter(
		fmt.Sprintf("%s_http_requests_total", namespace),
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		fmt.Sprintf("%s_http_request_duration_seconds", namespace),
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	// Scanner payloads are small; the buckets top out at the 1 MiB ingest limit.
	requestSize, err := meter.Int64Histogram(
		fmt.Sprintf("%s_http_request_size_bytes", namespace),
		metric.WithDescription("Size of HTTP request bodies that carry a payload"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(128, 512, 2048, 8192, 32768, 131072, 1048576),
	)
	if err != nil {
		return nil, err
	}

	return &httpInstruments{requests: requests, duration: duration, requestSize: requestSize}, nil
}

// HTTPMetricsMiddleware returns a Gin middleware that records request counts,
// durations and body sizes labelled by method, route pattern and status code.
// Routes are reported as patterns (e.g., /v1/events/:id) to bound cardinality.
func HTTPMetricsMiddleware(meterProvider metric.MeterProvider, namespace string) gin.HandlerFunc {
	instruments, err := newHTTPInstruments(meterProvider.Meter(namespace), namespace)
	if err != nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		ctx := c.Request.Context()
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("path", sanitizePath(c.FullPath())),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
		)

		instruments.requests.Add(ctx, 1, attrs)
		instruments.duration.Record(ctx, time.Since(start).Seconds(), attrs)
		if c.Request.ContentLength > 0 {
			instruments.requestSize.Record(ctx, c.Request.ContentLength, attrs)
		}
	}
}

// sanitizePath maps unmatched requests to "unknown".
func sanitizePath(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}
