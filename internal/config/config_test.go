package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "load default configuration",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0", cfg.ServerHost)
				assert.Equal(t, 8080, cfg.ServerPort)
				assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
				assert.Equal(t, "sqlite", cfg.DBDriver)
				assert.Equal(t, "data/buffer.db", cfg.DBConnectionString)
				assert.Equal(t, 25, cfg.DBMaxOpenConnections)
				assert.Equal(t, 5, cfg.DBMaxIdleConnections)
				assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Equal(t, 1000, cfg.EventQueueSize)
				assert.Equal(t, 4, cfg.EventWorkers)
				assert.Equal(t, 24*time.Hour, cfg.EventRetention)
				assert.Equal(t, 3, cfg.EventMaxRetries)
				assert.Equal(t, 1000, cfg.BufferSize)
				assert.Equal(t, 100, cfg.BufferEvictionBatch)
				assert.Equal(t, 60*time.Second, cfg.SyncInterval)
				assert.Equal(t, 100, cfg.SyncBatchSize)
				assert.Equal(t, 3, cfg.SyncMaxRetries)
				assert.Equal(t, 30*time.Second, cfg.SyncRecoveryInterval)
				assert.Equal(t, time.Second, cfg.SyncDrainPause)
				assert.Equal(t, 5*time.Minute, cfg.SyncStaleAfter)
				assert.Equal(t, 24*time.Hour, cfg.SyncedRetention)
				assert.Equal(t, time.Hour, cfg.JanitorInterval)
				assert.Equal(t, "http", cfg.SyncSinks)
				assert.Equal(t, "scanrelay", cfg.MetricsNamespace)
				assert.True(t, cfg.RateLimitIngestEnabled)
			},
		},
		{
			name: "load custom server configuration",
			envVars: map[string]string{
				"SERVER_HOST": "localhost",
				"SERVER_PORT": "9090",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "localhost", cfg.ServerHost)
				assert.Equal(t, 9090, cfg.ServerPort)
			},
		},
		{
			name: "load custom database configuration",
			envVars: map[string]string{
				"DB_DRIVER":               "mysql",
				"DB_CONNECTION_STRING":    "user:password@tcp(localhost:3306)/testdb",
				"DB_MAX_OPEN_CONNECTIONS": "50",
				"DB_MAX_IDLE_CONNECTIONS": "10",
				"DB_CONN_MAX_LIFETIME":    "10",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "mysql", cfg.DBDriver)
				assert.Equal(t, "user:password@tcp(localhost:3306)/testdb", cfg.DBConnectionString)
				assert.Equal(t, 50, cfg.DBMaxOpenConnections)
				assert.Equal(t, 10, cfg.DBMaxIdleConnections)
				assert.Equal(t, 10*time.Minute, cfg.DBConnMaxLifetime)
			},
		},
		{
			name: "load custom pipeline configuration",
			envVars: map[string]string{
				"EVENT_QUEUE_SIZE":              "10",
				"EVENT_WORKERS":                 "2",
				"BUFFER_SIZE":                   "50",
				"BUFFER_EVICTION_BATCH":         "5",
				"SYNC_INTERVAL_SECONDS":         "5",
				"SYNC_MAX_RETRIES":              "7",
				"SYNC_DRAIN_PAUSE_MILLISECONDS": "10",
				"SYNC_STALE_AFTER_SECONDS":      "120",
				"SYNC_SINKS":                    "blob,redis",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 10, cfg.EventQueueSize)
				assert.Equal(t, 2, cfg.EventWorkers)
				assert.Equal(t, 50, cfg.BufferSize)
				assert.Equal(t, 5, cfg.BufferEvictionBatch)
				assert.Equal(t, 5*time.Second, cfg.SyncInterval)
				assert.Equal(t, 7, cfg.SyncMaxRetries)
				assert.Equal(t, 10*time.Millisecond, cfg.SyncDrainPause)
				assert.Equal(t, 2*time.Minute, cfg.SyncStaleAfter)
				assert.Equal(t, []string{"blob", "redis"}, cfg.SyncSinkNames())
			},
		},
		{
			name: "load custom log level",
			envVars: map[string]string{
				"LOG_LEVEL": "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.LogLevel)
				assert.Equal(t, "debug", cfg.GetGinMode())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()

			for key, value := range tt.envVars {
				err := os.Setenv(key, value)
				require.NoError(t, err)
			}

			cfg := Load()

			tt.validate(t, cfg)
		})
	}
}

func TestSyncSinkNames(t *testing.T) {
	cfg := &Config{SyncSinks: " HTTP , blob,,http, redis "}
	assert.Equal(t, []string{"http", "blob", "redis"}, cfg.SyncSinkNames())

	empty := &Config{}
	assert.Empty(t, empty.SyncSinkNames())
}

func TestGetGinMode(t *testing.T) {
	for level, want := range map[string]string{
		"debug": "debug",
		"info":  "release",
		"error": "release",
		"":      "release",
	} {
		cfg := &Config{LogLevel: level}
		assert.Equal(t, want, cfg.GetGinMode(), level)
	}
}
