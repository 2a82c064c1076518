package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultAPIBaseURL, cfg.APIBaseURL)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.True(t, cfg.ConfirmDelete)
	assert.Equal(t, "INFO", cfg.LogLevel)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SYNC_BATCH_SIZE", "25")
	t.Setenv("API_BASE_URL", "https://sync.example.com/api")
	t.Setenv("MAX_RETRIES", "5")

	cfg := DefaultConfig()

	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, "https://sync.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, 5, cfg.MaxRetries)
}

func TestEnvOverridesRejectGarbage(t *testing.T) {
	t.Setenv("SYNC_BATCH_SIZE", "not-a-number")
	t.Setenv("MAX_RETRIES", "-2")

	cfg := DefaultConfig()

	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
}
