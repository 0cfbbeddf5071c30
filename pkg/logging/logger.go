// Package logging configures structured logging for the Fizzy client and CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"

	// LevelDisabled turns logging off.
	LevelDisabled LogLevel = "disabled"
)

// Component names used for the "component" field.
const (
	ComponentClient    = "fizzy-client"
	ComponentTransport = "fizzy-transport"
	ComponentCache     = "fizzy-cache"
	ComponentRateLimit = "fizzy-ratelimit"
	ComponentCLI       = "fizzy-cli"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel `env:"LOG_LEVEL"`

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool `env:"LOG_PRETTY"`

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer `env:"-"`
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// ConfigFromEnv reads FIZZY_LOG_LEVEL and FIZZY_LOG_PRETTY over the defaults.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "FIZZY_"}); err != nil {
		return Config{}, fmt.Errorf("parse logging environment: %w", err)
	}
	return cfg, nil
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Component derives a component logger from base.
func Component(base zerolog.Logger, component string) zerolog.Logger {
	return base.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: cache and request flow
//   - Cache hit/miss, stored entries, invalidated keys
//   - Conditional requests and 304 revalidations
//   - Fetched pages (page number, item count)
//
// Info: normal operation events
//   - Requests that succeeded after a retry
//
// Warn: conditions that don't prevent the call
//   - Retry attempts with their backoff
//   - Cache store errors (the call proceeds uncached)
//   - Rate limit cooldowns recorded from Retry-After
//   - Failed lists in a batch fetch
//
// Error: calls that failed for good
//   - Retries exhausted
//
// Context Fields:
//   - request_id: X-Request-Id shared by all attempts of one call
//   - method, path: the logical request
//   - status: HTTP status code
//   - attempt: 1-based attempt number
//   - backoff: delay before the next attempt
//   - error_kind: validation, authentication, not_found, rate_limited, server, network
//   - etag: validator of a cached entry
