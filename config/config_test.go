package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaHost)
	assert.Equal(t, "gemma3:latest", cfg.OllamaModelPrimary)
	assert.Equal(t, "phi4-mini:latest", cfg.OllamaModelFallback)
	assert.Equal(t, 45*time.Second, cfg.OllamaTimeout)
	assert.InDelta(t, 0.3, cfg.DefaultTemperature, 1e-9)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.Equal(t, 60*time.Second, cfg.EvictionGrace)
	assert.Equal(t, 30, cfg.RetentionDays)
	assert.Equal(t, 24*time.Hour, cfg.RetentionInterval)
	assert.Equal(t, 100, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.False(t, cfg.UseRedis())
	assert.Equal(t, ":3000", cfg.Addr())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("OLLAMA_TIMEOUT", "30s")
	t.Setenv("DEFAULT_TEMPERATURE", "1.2")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Addr())
	assert.Equal(t, 30*time.Second, cfg.OllamaTimeout)
	assert.InDelta(t, 1.2, cfg.DefaultTemperature, 1e-9)
	assert.True(t, cfg.UseRedis())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "temperature above range", key: "DEFAULT_TEMPERATURE", value: "2.5"},
		{name: "timeout too long", key: "OLLAMA_TIMEOUT", value: "5m"},
		{name: "timeout too short", key: "OLLAMA_TIMEOUT", value: "10ms"},
		{name: "non numeric port", key: "PORT", value: "http"},
		{name: "unknown log level", key: "LOG_LEVEL", value: "verbose"},
		{name: "bad ollama host", key: "OLLAMA_HOST", value: "not a url"},
		{name: "sweep longer than grace", key: "EVICTION_SWEEP", value: "2m"},
		{name: "primary model without tag", key: "OLLAMA_MODEL_PRIMARY", value: "gemma3"},
		{name: "fallback model with spaces", key: "OLLAMA_MODEL_FALLBACK", value: "phi 4:latest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_NATSDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4222, cfg.NATSPort)
	assert.Equal(t, "/tmp/collab-template-demo", cfg.JetStreamDir)
	assert.Equal(t, "info", cfg.LogLevel)
}
