// Package config provides configuration types for Checkout Gate.
//
// Configuration is file-based (checkout-gate.yaml) with environment variable
// overrides under the CHECKOUT_GATE_ prefix. The schema is intentionally
// small: a listener, a store DSN, the PayPal client ID handed to the page,
// and the knobs for the security middleware chain.
package config

import "time"

// Config is the top-level configuration for Checkout Gate.
type Config struct {
	// Server configures the HTTP server listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Store configures the transaction store connection.
	Store StoreConfig `yaml:"store" mapstructure:"store"`

	// PayPal configures the payment gateway surface exposed to the page.
	PayPal PayPalConfig `yaml:"paypal" mapstructure:"paypal"`

	// RateLimit configures the global per-client rate limiter.
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`

	// CORS configures cross-origin policy for the read-only API surface.
	CORS CORSConfig `yaml:"cors" mapstructure:"cors"`

	// Telemetry configures optional OpenTelemetry stdout exporters.
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`

	// DevMode enables development features (verbose logging, etc).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// HTTPAddr is the listen address, e.g. "127.0.0.1:3000" or ":3000".
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"required,hostname_port"`

	// LogLevel sets the slog level: debug, info, warn, or error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// StoreConfig configures the relational transaction store.
type StoreConfig struct {
	// DSN is the store connection string (sqlite file path or URI).
	DSN string `yaml:"dsn" mapstructure:"dsn" validate:"required"`

	// MaxConns bounds the store connection pool.
	MaxConns int `yaml:"max_conns" mapstructure:"max_conns" validate:"omitempty,min=1"`

	// WriteTimeout bounds how long a single insert may wait for a pooled
	// connection plus execution before the request fails.
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// PayPalConfig holds the payment gateway public identifier.
// The client ID is public by design (it is embedded in the page), so it is
// safe to disclose in the /config/paypal response.
type PayPalConfig struct {
	// ClientID is the PayPal public client identifier.
	// Optional: when empty, /config/paypal responds 500 instead of the
	// process failing to start.
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
}

// RateLimitConfig configures the global windowed rate limiter.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is applied. Default: true.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// MaxRequests is the number of requests allowed per window per client.
	MaxRequests int `yaml:"max_requests" mapstructure:"max_requests" validate:"omitempty,min=1"`

	// Window is the rate limit window duration.
	Window time.Duration `yaml:"window" mapstructure:"window"`

	// CleanupInterval is how often expired client entries are removed.
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// CORSConfig configures cross-origin policy for the read-only API.
type CORSConfig struct {
	// AllowedOrigins lists origins granted cross-origin read access.
	// A single "*" entry means any origin (no credentialed requests).
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// TelemetryConfig configures development telemetry.
type TelemetryConfig struct {
	// Enabled turns on OpenTelemetry trace/metric export to stdout.
	// Default: false (Prometheus /metrics is always available).
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// Default values applied by SetDefaults.
const (
	DefaultHTTPAddr        = "127.0.0.1:3000"
	DefaultLogLevel        = "info"
	DefaultStoreMaxConns   = 5
	DefaultWriteTimeout    = 5 * time.Second
	DefaultMaxRequests     = 100
	DefaultWindow          = 15 * time.Minute
	DefaultCleanupInterval = 5 * time.Minute
)

// SetDefaults fills in default values for optional fields.
func (c *Config) SetDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = DefaultLogLevel
	}
	if c.Store.MaxConns == 0 {
		c.Store.MaxConns = DefaultStoreMaxConns
	}
	if c.Store.WriteTimeout == 0 {
		c.Store.WriteTimeout = DefaultWriteTimeout
	}
	if c.RateLimit.MaxRequests == 0 {
		c.RateLimit.MaxRequests = DefaultMaxRequests
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = DefaultWindow
	}
	if c.RateLimit.CleanupInterval == 0 {
		c.RateLimit.CleanupInterval = DefaultCleanupInterval
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
}

// SetDevDefaults applies permissive development defaults.
// In dev mode an unset store DSN falls back to a local file so the server
// can start without any configuration.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	if c.Store.DSN == "" {
		c.Store.DSN = "./checkout-gate.db"
	}
}
