// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// ServerHost is the host address the API server will bind to.
	ServerHost string
	// ServerPort is the port number the API server will listen on.
	ServerPort int
	// ShutdownTimeout bounds graceful shutdown, including the final buffer drain.
	ShutdownTimeout time.Duration

	// DBDriver is the buffer store driver ("sqlite", "postgres" or "mysql").
	DBDriver string
	// DBConnectionString is the connection string (or file path for sqlite) of the buffer store.
	DBConnectionString string
	// DBMaxOpenConnections is the maximum number of open connections to the database.
	DBMaxOpenConnections int
	// DBMaxIdleConnections is the maximum number of idle connections in the database pool.
	DBMaxIdleConnections int
	// DBConnMaxLifetime is the maximum amount of time a connection may be reused.
	DBConnMaxLifetime time.Duration

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// EventQueueSize is the capacity of the dispatch queue.
	EventQueueSize int
	// EventWorkers is the number of dispatch workers.
	EventWorkers int
	// EventRetention is how long terminal events stay in the in-memory table.
	EventRetention time.Duration
	// EventMaxRetries caps how many times a failed event may be resubmitted.
	EventMaxRetries int

	// BufferSize is the maximum number of pending buffer entries.
	BufferSize int
	// BufferEvictionBatch is how many oldest pending entries are evicted when the buffer is full.
	BufferEvictionBatch int

	// SyncInterval is the wait between synchronization batches.
	SyncInterval time.Duration
	// SyncBatchSize is the number of pending entries processed per batch.
	SyncBatchSize int
	// SyncMaxRetries is the number of attempts before an entry is marked failed.
	SyncMaxRetries int
	// SyncRecoveryInterval is the wait after a synchronization loop error.
	SyncRecoveryInterval time.Duration
	// SyncDrainPause is the pause between batches while draining the buffer.
	SyncDrainPause time.Duration
	// SyncStaleAfter is how long an entry may stay syncing before another batch
	// reclaims it. Keep it above the longest delivery attempt.
	SyncStaleAfter time.Duration
	// SyncedRetention is how long synced entries are kept before purge.
	SyncedRetention time.Duration
	// JanitorInterval is the period of the purge/reclaim task.
	JanitorInterval time.Duration
	// SyncSinks is a comma-separated, ordered list of sync handlers ("http", "blob", "redis").
	SyncSinks string

	// RemoteURL is the endpoint of the remote system-of-record.
	RemoteURL string
	// RemoteTimeout is the per-request timeout for the remote system.
	RemoteTimeout time.Duration
	// RemoteRateLimitPerSec is the outbound request rate towards the remote system.
	RemoteRateLimitPerSec float64
	// RemoteRateLimitBurst is the outbound burst size towards the remote system.
	RemoteRateLimitBurst int

	// ArchiveBucketURL is the gocloud.dev/blob URL used by the blob sink.
	ArchiveBucketURL string
	// ArchivePrefix is the key prefix for archived payloads.
	ArchivePrefix string

	// RedisAddr is the address of the Redis server used by the redis sink.
	RedisAddr string
	// RedisPassword is the Redis password.
	RedisPassword string
	// RedisDB is the Redis database number.
	RedisDB int
	// RedisStream is the stream payloads are appended to.
	RedisStream string
	// RedisStreamMaxLen approximately caps the stream length.
	RedisStreamMaxLen int64

	// RateLimitIngestEnabled indicates whether per-IP rate limiting of ingest endpoints is enabled.
	RateLimitIngestEnabled bool
	// RateLimitIngestRequestsPerSec is the number of ingest requests allowed per second per IP.
	RateLimitIngestRequestsPerSec float64
	// RateLimitIngestBurst is the burst size for ingest rate limiting.
	RateLimitIngestBurst int

	// CORSEnabled indicates whether CORS is enabled.
	CORSEnabled bool
	// CORSAllowOrigins is a comma-separated list of allowed origins for CORS.
	CORSAllowOrigins string

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Server configuration
		ServerHost:      env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort:      env.GetInt("SERVER_PORT", 8080),
		ShutdownTimeout: env.GetDuration("SHUTDOWN_TIMEOUT_SECONDS", 30, time.Second),

		// Database configuration
		DBDriver:             env.GetString("DB_DRIVER", "sqlite"),
		DBConnectionString:   env.GetString("DB_CONNECTION_STRING", "data/buffer.db"),
		DBMaxOpenConnections: env.GetInt("DB_MAX_OPEN_CONNECTIONS", 25),
		DBMaxIdleConnections: env.GetInt("DB_MAX_IDLE_CONNECTIONS", 5),
		DBConnMaxLifetime:    env.GetDuration("DB_CONN_MAX_LIFETIME", 5, time.Minute),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Event dispatch
		EventQueueSize:  env.GetInt("EVENT_QUEUE_SIZE", 1000),
		EventWorkers:    env.GetInt("EVENT_WORKERS", 4),
		EventRetention:  env.GetDuration("EVENT_RETENTION_HOURS", 24, time.Hour),
		EventMaxRetries: env.GetInt("EVENT_MAX_RETRIES", 3),

		// Durable buffer
		BufferSize:          env.GetInt("BUFFER_SIZE", 1000),
		BufferEvictionBatch: env.GetInt("BUFFER_EVICTION_BATCH", 100),

		// Synchronization
		SyncInterval:         env.GetDuration("SYNC_INTERVAL_SECONDS", 60, time.Second),
		SyncBatchSize:        env.GetInt("SYNC_BATCH_SIZE", 100),
		SyncMaxRetries:       env.GetInt("SYNC_MAX_RETRIES", 3),
		SyncRecoveryInterval: env.GetDuration("SYNC_RECOVERY_INTERVAL_SECONDS", 30, time.Second),
		SyncDrainPause:       env.GetDuration("SYNC_DRAIN_PAUSE_MILLISECONDS", 1000, time.Millisecond),
		SyncStaleAfter:       env.GetDuration("SYNC_STALE_AFTER_SECONDS", 300, time.Second),
		SyncedRetention:      env.GetDuration("SYNCED_RETENTION_HOURS", 24, time.Hour),
		JanitorInterval:      env.GetDuration("JANITOR_INTERVAL_MINUTES", 60, time.Minute),
		SyncSinks:            env.GetString("SYNC_SINKS", "http"),

		// Remote system-of-record
		RemoteURL:             env.GetString("REMOTE_URL", ""),
		RemoteTimeout:         env.GetDuration("REMOTE_TIMEOUT_SECONDS", 10, time.Second),
		RemoteRateLimitPerSec: env.GetFloat64("REMOTE_RATE_LIMIT_PER_SEC", 20.0),
		RemoteRateLimitBurst:  env.GetInt("REMOTE_RATE_LIMIT_BURST", 40),

		// Archive
		ArchiveBucketURL: env.GetString("ARCHIVE_BUCKET_URL", "file:///var/lib/scanrelay/archive"),
		ArchivePrefix:    env.GetString("ARCHIVE_PREFIX", "events"),

		// Redis stream
		RedisAddr:         env.GetString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     env.GetString("REDIS_PASSWORD", ""),
		RedisDB:           env.GetInt("REDIS_DB", 0),
		RedisStream:       env.GetString("REDIS_STREAM", "scanrelay:events"),
		RedisStreamMaxLen: int64(env.GetInt("REDIS_STREAM_MAX_LEN", 100000)),

		// Rate Limiting for ingest endpoints (IP-based)
		RateLimitIngestEnabled:        env.GetBool("RATE_LIMIT_INGEST_ENABLED", true),
		RateLimitIngestRequestsPerSec: env.GetFloat64("RATE_LIMIT_INGEST_REQUESTS_PER_SEC", 50.0),
		RateLimitIngestBurst:          env.GetInt("RATE_LIMIT_INGEST_BURST", 100),

		// CORS
		CORSEnabled:      env.GetBool("CORS_ENABLED", false),
		CORSAllowOrigins: env.GetString("CORS_ALLOW_ORIGINS", ""),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "scanrelay"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),
	}
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	switch c.LogLevel {
	case "debug":
		return "debug"
	default:
		return "release"
	}
}

// SyncSinkNames returns the configured sync handler names in order, lowercased,
// with blanks and duplicates removed.
func (c *Config) SyncSinkNames() []string {
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, part := range strings.Split(c.SyncSinks, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}
