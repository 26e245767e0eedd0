package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/allisson/scanrelay/internal/buffer/domain"
)

// StreamAdder is the subset of the Redis client used by RedisSink.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisConfig configures the Redis stream sink.
type RedisConfig struct {
	Address  string
	Password string
	Database int
	Stream   string
	// MaxLen caps the stream length (approximate trimming). Zero disables trimming.
	MaxLen int64
}

// RedisSink appends payloads to a Redis stream.
type RedisSink struct {
	client StreamAdder
	stream string
	maxLen int64
}

// NewRedisClient creates the Redis client used by RedisSink and checks connectivity.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.Database,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewRedisSink creates a new RedisSink
func NewRedisSink(client StreamAdder, cfg RedisConfig) *RedisSink {
	return &RedisSink{
		client: client,
		stream: cfg.Stream,
		maxLen: cfg.MaxLen,
	}
}

// Name returns the sink name
func (s *RedisSink) Name() string {
	return NameRedis
}

// Sync appends the entry to the stream
func (s *RedisSink) Sync(ctx context.Context, entry *domain.Entry) error {
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"entry_id":        entry.ID.String(),
			"idempotency_key": entry.DeliveryKey(),
			"checksum":        entry.Checksum,
			"created_at":      entry.CreatedAt.UTC().Format(time.RFC3339Nano),
			"payload":         string(entry.Payload),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return deliveryError(NameRedis, err)
	}
	return nil
}
