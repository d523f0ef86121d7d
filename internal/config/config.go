// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Supported values for DB_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
	Calendar CalendarConfig
	Security SecurityConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 2m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 90s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"90s"`

	// CORSAllowOrigins lists origins allowed to call the API, comma-separated.
	// Empty disables CORS headers.
	CORSAllowOrigins []string `env:"CORS_ALLOW_ORIGIN"`

	// TrustedProxies lists proxy CIDRs whose X-Real-IP/X-Forwarded-For headers
	// are believed. Empty means RemoteAddr is always used.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// DatabaseConfig holds storage settings.
type DatabaseConfig struct {
	// Driver selects the store: postgres, sqlite or memory (default: postgres)
	Driver string `env:"DB_DRIVER" default:"postgres"`

	// URL is the PostgreSQL connection string, required for the postgres driver.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// SQLitePath is the database file for the sqlite driver (default: data/sermons.db)
	SQLitePath string `env:"DB_SQLITE_PATH" default:"data/sermons.db"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate applies the schema on startup (default: true)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" default:"true"`
}

// ImportConfig holds sermon check/import settings.
type ImportConfig struct {
	// Locale selects the message catalog: nl or en (default: nl)
	Locale string `env:"IMPORT_LOCALE" default:"nl"`

	// Timezone is used for date-times without an offset (default: UTC)
	Timezone string `env:"IMPORT_TIMEZONE" default:"UTC"`

	// MaxRows is the maximum number of rows per batch (default: 5000)
	MaxRows int `env:"IMPORT_MAX_ROWS" default:"5000"`

	// MaxBodySize is the maximum request body in bytes (default: 10MB)
	MaxBodySize int64 `env:"IMPORT_MAX_BODY_SIZE" default:"10485760"`

	// Timeout bounds a single check or import call (default: 5m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"5m"`

	// MaxConcurrent is the number of imports allowed to run at once (default: 1)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"1"`

	// MaxWaitTime is how long an import waits for a free slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for the import endpoint (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	// Enabled exposes the metrics endpoint (default: true)
	Enabled bool `env:"METRICS_ENABLED" default:"true"`

	// Path is the route metrics are served on (default: /metrics)
	Path string `env:"METRICS_PATH" default:"/metrics"`
}

// CalendarConfig holds settings for the iCalendar feed.
type CalendarConfig struct {
	// Name is the calendar display name (default: Preken)
	Name string `env:"CALENDAR_NAME" default:"Preken"`

	// DaysBack is the default window before today (default: 30)
	DaysBack int `env:"CALENDAR_DEFAULT_DAYS_BACK" default:"30"`

	// DaysAhead is the default window after today (default: 365)
	DaysAhead int `env:"CALENDAR_DEFAULT_DAYS_AHEAD" default:"365"`
}

// SecurityConfig holds API authentication settings.
type SecurityConfig struct {
	// RequireAPIKey enables X-API-Key checks on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys lists accepted keys, comma-separated
	APIKeys []string `env:"API_KEYS"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Location loads the configured import timezone.
func (c *ImportConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}
