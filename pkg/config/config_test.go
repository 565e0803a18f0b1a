package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FillsDefaults(t *testing.T) {
	path := writeConfig(t, "environment: test\nserver:\n  port: 9090\n  cors: false\n")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, c.Server.Port)
	assert.False(t, c.Server.CORS)
	assert.Equal(t, 15*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, StorageMemory, c.Storage.Type)
	assert.Equal(t, BackendStore, c.Backend.Type)
	assert.Equal(t, 300*time.Second, c.Source.PollInterval)
	assert.Equal(t, 4, c.Source.Concurrency)
	assert.Equal(t, "https://api-v2.pendle.finance/core", c.Source.APIBase)
	assert.Equal(t, 1000, c.Pipeline.BufferSize)
	assert.Equal(t, -1, c.Kafka.RequiredAcks)
	assert.Equal(t, 30*time.Second, c.Cache.TTL)
	assert.Equal(t, 64, c.WS.SendBuffer)
	assert.Equal(t, 0.002, c.Analytics.SwapFee)
	assert.Equal(t, 5*time.Minute, c.Cache.Cleanup)
	assert.Equal(t, 10, c.Cache.Redis.PoolSize)
	assert.False(t, c.Kafka.Producer.AutoCreate)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadWithEnv_Overrides(t *testing.T) {
	path := writeConfig(t, "environment: test\n")
	t.Setenv("PENDLE_API_BASE", "http://upstream.local")
	t.Setenv("POLL_INTERVAL_SECONDS", "60")
	t.Setenv("STORAGE_TYPE", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://u:p@db:5432/x")
	t.Setenv("BACKEND", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_TOPIC", "snaps")
	t.Setenv("REDIS_ADDR", "cache.local:6380")
	t.Setenv("LOG_LEVEL", "debug")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "http://upstream.local", c.Source.APIBase)
	assert.Equal(t, time.Minute, c.Source.PollInterval)
	assert.Equal(t, StoragePostgres, c.Storage.Type)
	assert.Equal(t, "postgres://u:p@db:5432/x", c.Storage.Postgres.DSN)
	assert.Equal(t, BackendKafka, c.Backend.Type)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "snaps", c.Kafka.Topic)
	assert.Equal(t, "cache.local", c.Cache.Redis.Host)
	assert.Equal(t, 6380, c.Cache.Redis.Port)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLoadWithEnv_BadPollInterval(t *testing.T) {
	path := writeConfig(t, "environment: test\n")
	t.Setenv("POLL_INTERVAL_SECONDS", "soon")

	_, err := LoadWithEnv(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POLL_INTERVAL_SECONDS")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"missing environment", "server:\n  port: 1\n", "environment is required"},
		{"unknown storage", "environment: t\nstorage:\n  type: sqlite\n", "storage.type"},
		{"postgres without dsn", "environment: t\nstorage:\n  type: postgres\n", "storage.postgres.dsn"},
		{"unknown backend", "environment: t\nbackend:\n  type: queue\n", "backend.type"},
		{"kafka without brokers", "environment: t\nbackend:\n  type: kafka\n", "kafka.brokers"},
		{"unknown cache", "environment: t\ncache:\n  type: disk\n", "cache.type"},
		{"zero poll interval", "environment: t\nsource:\n  poll_interval: 0s\n", "poll_interval"},
		{"swap fee out of range", "environment: t\nanalytics:\n  swap_fee: 1.5\n", "analytics.swap_fee"},
		{"valid clickhouse", "environment: t\nstorage:\n  type: clickhouse\n", ""},
		{"valid kafka", "environment: t\nbackend:\n  type: kafka\nkafka:\n  brokers: [\"k:9092\"]\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
