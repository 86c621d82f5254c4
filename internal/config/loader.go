package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Read loads configuration from environment variables without validating
// it, so command-line flags can be applied before Validate.
func Read() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		// Try primary env var, then alternate, then the default
		value := os.Getenv(envName)
		if envAlt := field.Tag.Get("envAlt"); value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}
		if value == "" {
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// missingRequired returns the env names of required fields left empty.
func missingRequired(v reflect.Value) []string {
	var missing []string
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			missing = append(missing, missingRequired(fieldVal)...)
			continue
		}
		if field.Tag.Get("required") == "true" && fieldVal.IsZero() {
			missing = append(missing, field.Tag.Get("env"))
		}
	}

	return missing
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	for _, name := range missingRequired(reflect.ValueOf(c).Elem()) {
		errs = append(errs, name+" is required")
	}

	// Database validation
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}

	// Source validation
	if c.Source.Dir == "" {
		errs = append(errs, "SOURCE_DIR must not be empty")
	}
	if c.Source.Delimiter != `\t` && utf8.RuneCountInString(c.Source.Delimiter) != 1 {
		errs = append(errs, fmt.Sprintf("SOURCE_DELIMITER (%q) must be a single character", c.Source.Delimiter))
	}
	if d := c.Source.DelimiterRune(); d == '"' || d == '\r' || d == '\n' || d == utf8.RuneError {
		errs = append(errs, fmt.Sprintf("SOURCE_DELIMITER (%q) is not a usable separator", c.Source.Delimiter))
	}

	// API validation
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("OPENLIBRARY_BASE_URL (%q) must be an absolute URL", c.API.BaseURL))
	}
	if c.API.RateLimitDelay <= 0 {
		errs = append(errs, "API_RATE_LIMIT_DELAY must be positive")
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, "API_TIMEOUT must be positive")
	}
	if c.API.RetryMax < 0 {
		errs = append(errs, "API_RETRY_MAX must be non-negative")
	}
	if c.API.PageSize <= 0 {
		errs = append(errs, "API_PAGE_SIZE must be positive")
	}

	// Ingest validation
	if c.Ingest.FetchLimit <= 0 {
		errs = append(errs, "FETCH_LIMIT must be positive")
	}
	if c.Ingest.DefaultLibraryID <= 0 {
		errs = append(errs, "INGEST_DEFAULT_LIBRARY_ID must be positive")
	}
	if c.Ingest.DefaultCopies <= 0 {
		errs = append(errs, "INGEST_DEFAULT_COPIES must be positive")
	}
	if c.Ingest.MaxSubjects < 0 {
		errs = append(errs, "INGEST_MAX_SUBJECTS must be non-negative")
	}
	if len(c.Ingest.PhoneRegion) != 2 {
		errs = append(errs, fmt.Sprintf("PHONE_DEFAULT_REGION (%q) must be a two-letter region code", c.Ingest.PhoneRegion))
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Database: {URL: %s, MaxConns: %d, MinConns: %d}, ",
		maskURL(c.Database.URL), c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Source: {Dir: %q, Ext: %q, Delimiter: %q}, ",
		c.Source.Dir, c.Source.Ext, c.Source.Delimiter))
	b.WriteString(fmt.Sprintf("API: {BaseURL: %q, RateLimitDelay: %s, RetryMax: %d}, ",
		c.API.BaseURL, c.API.RateLimitDelay, c.API.RetryMax))
	b.WriteString(fmt.Sprintf("Ingest: {FetchLimit: %d, DefaultLibraryID: %d, PhoneRegion: %q}, ",
		c.Ingest.FetchLimit, c.Ingest.DefaultLibraryID, c.Ingest.PhoneRegion))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}

// maskURL keeps the scheme of a database URL and hides the rest.
func maskURL(raw string) string {
	if i := strings.Index(raw, ":"); i > 0 {
		return raw[:i] + ":[MASKED]"
	}
	return "[MASKED]"
}
