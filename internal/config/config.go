// Package config provides centralized configuration management for libingest.
// It loads configuration from environment variables with sensible defaults and
// validates all settings before a run starts to fail fast on misconfiguration.
package config

import (
	"time"
	"unicode/utf8"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Source   SourceConfig
	API      APIConfig
	Ingest   IngestConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL selects the backend by scheme: postgres://, sqlite://, file:,
	// mysql:// or memory:// (required).
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate creates missing tables before each run (default: true)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" default:"true"`
}

// SourceConfig holds bulk file settings.
type SourceConfig struct {
	// Dir holds libraries, authors, books and members files (default: sample_data)
	Dir string `env:"SOURCE_DIR" default:"sample_data"`

	// Ext is the bulk file extension (default: .csv)
	Ext string `env:"SOURCE_EXT" default:".csv"`

	// Delimiter is the single-character field separator (default: ,)
	Delimiter string `env:"SOURCE_DELIMITER" default:","`
}

// APIConfig holds Open Library client settings.
type APIConfig struct {
	BaseURL string `env:"OPENLIBRARY_BASE_URL" envAlt:"BASE_URL" default:"https://openlibrary.org"`

	// RateLimitDelay is the minimum spacing between requests (default: 1s)
	RateLimitDelay time.Duration `env:"API_RATE_LIMIT_DELAY" default:"1s"`

	// Timeout bounds a single request (default: 30s)
	Timeout time.Duration `env:"API_TIMEOUT" default:"30s"`

	// RetryMax is the number of transport retries (default: 0)
	RetryMax int `env:"API_RETRY_MAX" default:"0"`

	UserAgent string `env:"API_USER_AGENT" default:"libingest/1.0"`

	// PageSize is the works page size (default: 50)
	PageSize int `env:"API_PAGE_SIZE" default:"50"`
}

// IngestConfig holds run settings.
type IngestConfig struct {
	// FetchLimit is the number of books an API run assembles (default: 10)
	FetchLimit int `env:"FETCH_LIMIT" default:"10"`

	// DefaultLibraryID owns books imported from the API (default: 1)
	DefaultLibraryID int64 `env:"INGEST_DEFAULT_LIBRARY_ID" default:"1"`

	// DefaultCopies is total and available copies of API books (default: 1)
	DefaultCopies int `env:"INGEST_DEFAULT_COPIES" default:"1"`

	// MaxSubjects caps categories linked per API book (default: 3)
	MaxSubjects int `env:"INGEST_MAX_SUBJECTS" default:"3"`

	// PhoneRegion is the region for numbers without a country code (default: IN)
	PhoneRegion string `env:"PHONE_DEFAULT_REGION" default:"IN"`

	// PhoneDomesticPrefix is prepended to bare ten-digit numbers (default: +1)
	PhoneDomesticPrefix string `env:"PHONE_DOMESTIC_PREFIX" default:"+1"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// File additionally receives every record when set
	File string `env:"LOG_FILE"`
}

// DelimiterRune returns the configured delimiter as a rune.
func (c *SourceConfig) DelimiterRune() rune {
	if c.Delimiter == `\t` {
		return '\t'
	}
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}
