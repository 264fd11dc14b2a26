// Package config loads and validates the service configuration from
// YAML with environment variable substitution.
package config

import (
	"fmt"
	"time"
)

// Config is the root service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Provider  ProviderConfig  `yaml:"provider"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port               int      `yaml:"port"`
	Address            string   `yaml:"address"`
	ReadTimeout        Duration `yaml:"readTimeout"`
	WriteTimeout       Duration `yaml:"writeTimeout"`
	IdleTimeout        Duration `yaml:"idleTimeout"`
	MaxRequestBodySize int64    `yaml:"maxRequestBodySize"`
	ShutdownTimeout    Duration `yaml:"shutdownTimeout"`
	Development        bool     `yaml:"development"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DatabaseConfig configures the task store connection pool.
type DatabaseConfig struct {
	// URL is a pgx connection string.
	URL string `yaml:"url"`

	// MaxConns bounds the pool size; zero means pgx's default.
	MaxConns int32 `yaml:"maxConns"`

	// ConnectTimeout bounds the initial connection attempt.
	ConnectTimeout Duration `yaml:"connectTimeout"`
}

// RedisConfig configures the optional distributed rate limit store.
// When Address is empty, counters are kept in process memory.
type RedisConfig struct {
	Address   string   `yaml:"address"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	KeyPrefix string   `yaml:"keyPrefix"`
	Timeout   Duration `yaml:"timeout"`
}

// ProviderConfig configures the identity provider client.
type ProviderConfig struct {
	BaseURL          string   `yaml:"baseUrl"`
	APIKey           string   `yaml:"apiKey"`
	Timeout          Duration `yaml:"timeout"`
	BreakerThreshold int      `yaml:"breakerThreshold"`
	BreakerTimeout   Duration `yaml:"breakerTimeout"`
}

// TierConfig overrides one rate limit tier's budget.
type TierConfig struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// RateLimitConfig overrides tier budgets by tier name. Absent tiers
// keep their defaults.
type RateLimitConfig struct {
	Tiers map[string]TierConfig `yaml:"tiers"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               8080,
			ReadTimeout:        Duration(30 * time.Second),
			WriteTimeout:       Duration(30 * time.Second),
			IdleTimeout:        Duration(120 * time.Second),
			MaxRequestBodySize: 1 << 20,
			ShutdownTimeout:    Duration(30 * time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Database: DatabaseConfig{
			ConnectTimeout: Duration(10 * time.Second),
		},
		Redis: RedisConfig{
			KeyPrefix: "taskgate:ratelimit:",
			Timeout:   Duration(3 * time.Second),
		},
		Provider: ProviderConfig{
			Timeout:          Duration(10 * time.Second),
			BreakerThreshold: 5,
			BreakerTimeout:   Duration(30 * time.Second),
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in (0, 65535], got %d", c.Server.Port)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.baseUrl is required")
	}
	if c.Provider.BreakerThreshold < 0 {
		return fmt.Errorf("provider.breakerThreshold must not be negative")
	}
	for name, tier := range c.RateLimit.Tiers {
		if tier.Requests <= 0 {
			return fmt.Errorf("rateLimit.tiers.%s.requests must be positive", name)
		}
		if tier.Window <= 0 {
			return fmt.Errorf("rateLimit.tiers.%s.window must be positive", name)
		}
	}
	return nil
}
