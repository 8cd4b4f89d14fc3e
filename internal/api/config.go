// Package api provides the HTTP control surface of the effect-chain
// controller: JSON endpoints for every setter, preset, mode and profile
// operation, plus health and Prometheus metrics.
package api

import (
	"net"
	"time"

	"github.com/tphakala/gainguard/internal/conf"
	"github.com/tphakala/gainguard/internal/errors"
	"github.com/tphakala/gainguard/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
	DefaultMetricsPath     = "/metrics"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host           string // empty binds all interfaces
	Port           string
	AllowedOrigins []string
	BodyLimit      string // e.g. "64K"
	MetricsPath    string // empty disables /metrics

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Debug bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            "8080",
		AllowedOrigins:  []string{"*"},
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       "64K",
		MetricsPath:     DefaultMetricsPath,
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()

	cfg.Host = settings.API.Host
	if settings.API.Port != "" {
		cfg.Port = settings.API.Port
	}
	if len(settings.API.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = settings.API.AllowedOrigins
	}
	if settings.API.BodyLimit != "" {
		cfg.BodyLimit = settings.API.BodyLimit
	}

	cfg.MetricsPath = ""
	if settings.Metrics.Enabled {
		cfg.MetricsPath = settings.Metrics.Path
		if cfg.MetricsPath == "" {
			cfg.MetricsPath = DefaultMetricsPath
		}
	}

	cfg.Debug = settings.Debug
	return cfg
}

// Validate rejects a config the server cannot start with.
func (c *Config) Validate() error {
	var problem string
	switch {
	case c.Port == "":
		problem = "port is required"
	case c.ReadTimeout <= 0 || c.WriteTimeout <= 0:
		problem = "read and write timeouts must be positive"
	default:
		return nil
	}
	return errors.Newf("api config: %s", problem).
		Component("api").
		Category(errors.CategoryConfiguration).
		Build()
}

// Address returns the listen address, e.g. ":8080" or "[::1]:8080".
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}
