package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v10"
)

// Store backends
const (
	StoreBackendMemory = "memory"
	StoreBackendRedis  = "redis"
)

// Config holds all configuration for notifeed
type Config struct {
	// Server configuration
	HTTPPort int    `env:"NOTIFEED_HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Upstream notification connection
	Upstream UpstreamConfig

	// History configuration
	History HistoryConfig

	// Page rendering
	Render RenderConfig

	// Store backend: memory or redis
	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`

	// Redis configuration
	Redis RedisConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// UpstreamConfig holds the notification source configuration
type UpstreamConfig struct {
	Endpoint string `env:"NOTIFEED_ENDPOINT" envDefault:"ws://localhost:8000/ws"`

	// Origin header sent with the handshake; empty sends none
	Origin string `env:"NOTIFEED_ORIGIN"`
}

// HistoryConfig holds history configuration
type HistoryConfig struct {
	Key   string `env:"HISTORY_KEY" envDefault:"notifications"`
	Max   int    `env:"HISTORY_MAX" envDefault:"5"`
	Label string `env:"HISTORY_LABEL" envDefault:"Новое уведомление: "`
}

// RenderConfig holds page configuration
type RenderConfig struct {
	Title     string `env:"RENDER_TITLE" envDefault:"Notifications"`
	TargetID  string `env:"RENDER_TARGET_ID" envDefault:"notifications"`
	ClassName string `env:"RENDER_CLASS" envDefault:"notification"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Key namespace and expiry for stored history
	KeyPrefix string        `env:"REDIS_KEY_PREFIX" envDefault:"notifeed"`
	KeyTTL    time.Duration `env:"REDIS_KEY_TTL" envDefault:"0s"`

	// Pub/Sub channel for live page updates
	EventChannel string `env:"REDIS_EVENT_CHANNEL" envDefault:"notifeed:events"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	Dial                time.Duration `env:"TIMEOUT_DIAL" envDefault:"10s"`
	Shutdown            time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
	HealthCheckInterval time.Duration `env:"HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	// Validate upstream
	u, err := url.Parse(c.Upstream.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid upstream endpoint: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("upstream endpoint must use ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("upstream endpoint has no host: %s", c.Upstream.Endpoint)
	}

	// Validate history
	if c.History.Key == "" {
		return fmt.Errorf("history key is required")
	}
	if c.History.Max < 1 {
		return fmt.Errorf("history max must be at least 1")
	}

	if c.Render.TargetID == "" {
		return fmt.Errorf("render target id is required")
	}

	// Validate store
	switch c.StoreBackend {
	case StoreBackendMemory:
	case StoreBackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required")
		}
		if c.Redis.KeyTTL < 0 {
			return fmt.Errorf("redis key TTL must not be negative")
		}
	default:
		return fmt.Errorf("unsupported store backend: %s (must be memory or redis)", c.StoreBackend)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
