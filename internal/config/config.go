// Package config provides centralized configuration management for the
// gnamed commands. It loads configuration from environment variables
// with sensible defaults and validates all settings on startup to fail
// fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Load     LoadConfig
	Fetch    FetchConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// LoadConfig holds dump loading settings.
type LoadConfig struct {
	// FlushEvery is the number of records between cache flushes (default: 10000)
	FlushEvery int `env:"LOAD_FLUSH_EVERY" default:"10000"`

	// Encoding is the character encoding assumed for input files unless
	// a command flag overrides it (default: utf-8)
	Encoding string `env:"LOAD_ENCODING" default:"utf-8"`
}

// FetchConfig holds dump download settings.
type FetchConfig struct {
	// DataDir is the directory downloaded dumps are stored in (default: ./data)
	DataDir string `env:"FETCH_DATA_DIR" default:"./data"`

	// Timeout is the maximum duration for a single download; zero means
	// no limit (default: 0s)
	Timeout time.Duration `env:"FETCH_TIMEOUT" default:"0s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}
