package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":5250", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 3, cfg.Backend.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Backend.BackoffUnit)
	assert.Equal(t, 30*time.Second, cfg.Backend.MaxRetryAfter)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Empty(t, cfg.Cache.RedisAddr)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel())
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "https://api.example.ge/v1")
	t.Setenv("BACKEND_BACKOFF_UNIT", "250ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.ge,https://b.ge")
	t.Setenv("CACHE_REDIS_ADDR", "redis:6379")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.ge/v1", cfg.Backend.BaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.Backend.BackoffUnit)
	assert.Equal(t, []string{"https://a.ge", "https://b.ge"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "redis:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero attempts", "BACKEND_MAX_ATTEMPTS", "0"},
		{"zero ttl", "CACHE_TTL", "0s"},
		{"bad level", "LOG_LEVEL", "loud"},
		{"bad duration", "BACKEND_TIMEOUT", "soon"},
		{"no sessions", "SESSION_MAX_SESSIONS", "0"},
		{"retry cap below backoff", "BACKEND_MAX_RETRY_AFTER", "100ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
