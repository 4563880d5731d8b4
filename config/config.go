package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Server struct {
		// Address the HTTP server listens on
		Addr string `env:"SERVER_ADDR" envDefault:":5250"`

		// Origins allowed by CORS
		AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

		ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	}

	Backend struct {
		// Base URL of the listings API
		BaseURL string `env:"BACKEND_BASE_URL" envDefault:"http://localhost:8080/api"`

		Timeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`

		// Attempts per request when rate limited, the first one included
		MaxAttempts int `env:"BACKEND_MAX_ATTEMPTS" envDefault:"3"`

		// Delay before the first retry; doubles per attempt
		BackoffUnit time.Duration `env:"BACKEND_BACKOFF_UNIT" envDefault:"1s"`

		// Longest wait between attempts, whatever Retry-After asks for
		MaxRetryAfter time.Duration `env:"BACKEND_MAX_RETRY_AFTER" envDefault:"30s"`

		UserAgent string `env:"BACKEND_USER_AGENT" envDefault:"marketplace-search/1.0"`
	}

	Cache struct {
		// Freshness window of the city and area lists
		TTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`

		// Redis address; the in-process store is used when empty
		RedisAddr     string `env:"CACHE_REDIS_ADDR"`
		RedisPassword string `env:"CACHE_REDIS_PASSWORD"`
		RedisDB       int    `env:"CACHE_REDIS_DB" envDefault:"0"`
		KeyPrefix     string `env:"CACHE_KEY_PREFIX" envDefault:"marketplace"`
	}

	Session struct {
		IdleTimeout   time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
		SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
		InboxSize     int           `env:"SESSION_INBOX_SIZE" envDefault:"10"`
		CookieSecure  bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
		MaxSessions   int           `env:"SESSION_MAX_SESSIONS" envDefault:"10000"`

		// Buffer of the notice queue feeding logs and metrics
		NoticeBuffer int `env:"SESSION_NOTICE_BUFFER" envDefault:"256"`
	}

	Log struct {
		Level string `env:"LOG_LEVEL" envDefault:"info"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL must not be empty")
	}
	if c.Backend.MaxAttempts < 1 {
		return fmt.Errorf("BACKEND_MAX_ATTEMPTS must be at least 1, got %d", c.Backend.MaxAttempts)
	}
	if c.Backend.MaxRetryAfter < c.Backend.BackoffUnit {
		return fmt.Errorf("BACKEND_MAX_RETRY_AFTER must be at least BACKEND_BACKOFF_UNIT, got %s", c.Backend.MaxRetryAfter)
	}
	if c.Session.MaxSessions < 1 {
		return fmt.Errorf("SESSION_MAX_SESSIONS must be at least 1, got %d", c.Session.MaxSessions)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", c.Cache.TTL)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return nil
}

// LogLevel returns the configured logrus level.
func (c *Config) LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
