package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 50, cfg.MessageCap)
	assert.Equal(t, ResponderRules, cfg.Responder)
	assert.Equal(t, StoreFile, cfg.StoreBackend)
	assert.Equal(t, "data/healthscribe_nfts.json", cfg.StorePath)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.LLMBaseURL)
	assert.Equal(t, "llama3-8b-8192", cfg.LLMModel)
	assert.InDelta(t, 0.5, cfg.LLMTemperature, 1e-6)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RESPONDER", "llm")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("MESSAGE_CAP", "5")
	t.Setenv("RESPONSE_DELAY", "1500ms")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, ResponderLLM, cfg.Responder)
	assert.Equal(t, StoreRedis, cfg.StoreBackend)
	assert.Equal(t, 5, cfg.MessageCap)
	assert.Equal(t, 1500*time.Millisecond, cfg.ResponseDelay)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown responder", "RESPONDER", "magic"},
		{"unknown store", "STORE_BACKEND", "s3"},
		{"zero cap", "MESSAGE_CAP", "0"},
		{"malformed cap", "MESSAGE_CAP", "lots"},
		{"malformed timeout", "LLM_TIMEOUT", "soon"},
		{"negative temperature", "LLM_TEMPERATURE", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
