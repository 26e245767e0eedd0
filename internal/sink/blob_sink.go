package sink

import (
	"context"
	"fmt"
	"path"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/allisson/scanrelay/internal/buffer/domain"
)

// BlobSink archives payloads as JSON objects in a gocloud.dev bucket
// (file://, s3:// or mem:// URLs).
type BlobSink struct {
	bucket *blob.Bucket
	prefix string
}

// OpenBlobSink opens the bucket at bucketURL
func OpenBlobSink(ctx context.Context, bucketURL, prefix string) (*BlobSink, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive bucket: %w", err)
	}
	return NewBlobSink(bucket, prefix), nil
}

// NewBlobSink creates a BlobSink over an already opened bucket
func NewBlobSink(bucket *blob.Bucket, prefix string) *BlobSink {
	return &BlobSink{bucket: bucket, prefix: prefix}
}

// Name returns the sink name
func (s *BlobSink) Name() string {
	return NameBlob
}

// Key returns the object key of entry: <prefix>/<yyyy>/<mm>/<dd>/<idempotency key>.json.
// Redeliveries of the same record overwrite the same object.
func (s *BlobSink) Key(entry *domain.Entry) string {
	return path.Join(s.prefix, entry.CreatedAt.UTC().Format("2006/01/02"), entry.DeliveryKey()+".json")
}

// Sync writes the payload. Redelivery overwrites the same object.
func (s *BlobSink) Sync(ctx context.Context, entry *domain.Entry) error {
	opts := &blob.WriterOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"checksum": entry.Checksum,
		},
	}
	if err := s.bucket.WriteAll(ctx, s.Key(entry), entry.Payload, opts); err != nil {
		return deliveryError(NameBlob, err)
	}
	return nil
}

// Close releases the bucket
func (s *BlobSink) Close() error {
	return s.bucket.Close()
}
