// Package sink provides the remote collaborators buffered payloads are
// delivered to. Every sink implements the buffer SyncHandler contract and
// reports transport failures as wrapped ErrDelivery errors.
package sink

import (
	"fmt"

	"github.com/allisson/scanrelay/internal/buffer/domain"
	"github.com/allisson/scanrelay/internal/buffer/usecase"
)

// Sink names accepted by SYNC_SINKS.
const (
	NameHTTP  = "http"
	NameBlob  = "blob"
	NameRedis = "redis"
)

var (
	_ usecase.SyncHandler = (*HTTPSink)(nil)
	_ usecase.SyncHandler = (*BlobSink)(nil)
	_ usecase.SyncHandler = (*RedisSink)(nil)
)

func deliveryError(sink string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrDelivery, sink, err)
}
