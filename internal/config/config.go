// Package config loads yayctl settings from defaults, a YAML file,
// YAY_-prefixed environment variables and command-line overrides.
package config

import (
	"fmt"
	"time"

	"github.com/Sternrassler/yay-client/pkg/client"
	"github.com/Sternrassler/yay-client/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Config is the full yayctl configuration.
type Config struct {
	Client  ClientConfig  `koanf:"client"`
	Auth    AuthConfig    `koanf:"auth"`
	Redis   RedisConfig   `koanf:"redis"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// ClientConfig mirrors client.Config. Durations are Go duration strings.
type ClientConfig struct {
	BaseURL        string  `koanf:"base_url"`
	CASBaseURL     string  `koanf:"cas_base_url"`
	APIKey         string  `koanf:"api_key"`
	AccessToken    string  `koanf:"access_token"`
	UserAgent      string  `koanf:"user_agent"`
	DeviceUUID     string  `koanf:"device_uuid"`
	Timeout        string  `koanf:"timeout"`
	ProxyURL       string  `koanf:"proxy_url"`
	RateLimit      float64 `koanf:"rate_limit"`
	MaxRetries     int     `koanf:"max_retries"`
	InitialBackoff string  `koanf:"initial_backoff"`
}

// AuthConfig holds login credentials. They are usually given through
// YAY_AUTH__EMAIL and YAY_AUTH__PASSWORD rather than a file.
type AuthConfig struct {
	Email    string `koanf:"email"`
	Password string `koanf:"password"`
}

// RedisConfig enables session persistence and the shared cooldown when
// Addr is set.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// LogConfig configures pkg/logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

// MetricsConfig exposes Prometheus metrics while a command runs when Addr
// is set.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	def := client.DefaultConfig()
	return Config{
		Client: ClientConfig{
			BaseURL:        def.BaseURL,
			CASBaseURL:     def.CASBaseURL,
			UserAgent:      def.UserAgent,
			Timeout:        def.Timeout.String(),
			RateLimit:      def.RateLimit,
			MaxRetries:     def.MaxRetries,
			InitialBackoff: def.InitialBackoff.String(),
		},
		Log: LogConfig{Level: string(logging.LevelInfo)},
	}
}

func (c Config) toMap() map[string]any {
	return map[string]any{
		"client.base_url":        c.Client.BaseURL,
		"client.cas_base_url":    c.Client.CASBaseURL,
		"client.user_agent":      c.Client.UserAgent,
		"client.timeout":         c.Client.Timeout,
		"client.rate_limit":      c.Client.RateLimit,
		"client.max_retries":     c.Client.MaxRetries,
		"client.initial_backoff": c.Client.InitialBackoff,
		"log.level":              c.Log.Level,
		"log.pretty":             c.Log.Pretty,
	}
}

// Validate checks values that the client does not validate itself.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if _, err := parseDuration(c.Client.Timeout); err != nil {
		return fmt.Errorf("client.timeout: %w", err)
	}
	if _, err := parseDuration(c.Client.InitialBackoff); err != nil {
		return fmt.Errorf("client.initial_backoff: %w", err)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must be >= 0 (got %d)", c.Redis.DB)
	}
	return nil
}

// Logging returns the pkg/logging configuration.
func (c Config) Logging() logging.Config {
	level, _ := logging.ParseLevel(c.Log.Level)
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Pretty = c.Log.Pretty
	cfg.Service = "yayctl"
	return cfg
}

// ClientConfig builds the client configuration. redisClient may be nil.
func (c Config) ClientConfig(logger *zerolog.Logger, redisClient *redis.Client) client.Config {
	timeout, _ := parseDuration(c.Client.Timeout)
	backoff, _ := parseDuration(c.Client.InitialBackoff)

	return client.Config{
		BaseURL:        c.Client.BaseURL,
		CASBaseURL:     c.Client.CASBaseURL,
		APIKey:         c.Client.APIKey,
		AccessToken:    c.Client.AccessToken,
		UserAgent:      c.Client.UserAgent,
		DeviceUUID:     c.Client.DeviceUUID,
		Timeout:        timeout,
		ProxyURL:       c.Client.ProxyURL,
		RateLimit:      c.Client.RateLimit,
		MaxRetries:     c.Client.MaxRetries,
		InitialBackoff: backoff,
		Redis:          redisClient,
		Logger:         logger,
	}
}

// NewRedis returns a Redis client, or nil when no address is configured.
func (r RedisConfig) NewRedis() *redis.Client {
	if r.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
	})
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
