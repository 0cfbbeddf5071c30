package client

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/Sternrassler/fizzy-go/pkg/transport"
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts including the initial request.
	MaxAttempts int `env:"MAX_ATTEMPTS" mapstructure:"max_attempts"`

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration `env:"INITIAL_BACKOFF" mapstructure:"initial_backoff"`

	// MaxBackoff caps every computed delay.
	MaxBackoff time.Duration `env:"MAX_BACKOFF" mapstructure:"max_backoff"`

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64 `env:"BACKOFF_MULTIPLIER" mapstructure:"backoff_multiplier"`

	// Jitter is the relative random spread applied to computed delays
	// (0.2 means ±20%).
	Jitter float64 `env:"JITTER" mapstructure:"jitter"`
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.2,
	}
}

// Policy decides whether a failed attempt is retried and how long to wait.
type Policy struct {
	cfg    RetryConfig
	random func() float64
}

// NewPolicy creates a retry policy. Zero fields fall back to the defaults.
func NewPolicy(cfg RetryConfig) *Policy {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.BackoffMultiplier < 1 {
		cfg.BackoffMultiplier = def.BackoffMultiplier
	}
	if cfg.Jitter < 0 || cfg.Jitter >= 1 {
		cfg.Jitter = def.Jitter
	}
	return &Policy{cfg: cfg, random: rand.Float64}
}

// Config returns the effective configuration.
func (p *Policy) Config() RetryConfig {
	return p.cfg
}

// ShouldRetry reports whether another attempt follows attempt (1-based)
// failing with err.
func (p *Policy) ShouldRetry(attempt int, err error) bool {
	return attempt < p.cfg.MaxAttempts && Retryable(err)
}

// DelayFor returns the wait after attempt (1-based) failed with err.
// A 429 carrying Retry-After overrides the computed delay.
func (p *Policy) DelayFor(attempt int, err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter
	}
	return p.Backoff(attempt)
}

// Backoff returns initial * multiplier^(attempt-1) with jitter, capped at
// MaxBackoff.
func (p *Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := float64(p.cfg.InitialBackoff) * math.Pow(p.cfg.BackoffMultiplier, float64(attempt-1))
	if base > float64(p.cfg.MaxBackoff) {
		base = float64(p.cfg.MaxBackoff)
	}

	// Add jitter (±Jitter randomness)
	delay := base * (1 - p.cfg.Jitter + p.random()*2*p.cfg.Jitter)
	if delay > float64(p.cfg.MaxBackoff) {
		delay = float64(p.cfg.MaxBackoff)
	}
	return time.Duration(delay)
}

// Retryable reports whether err is transient: network failures, 429 and
// 5xx. Other 4xx, decode failures and cancellation are final.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrContextCancelled) {
		return false
	}

	var netErr *transport.NetworkError
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return false
}

// RetryState tracks one logical call across attempts.
type RetryState struct {
	Attempt int
	Started time.Time
	Elapsed time.Duration
	LastErr error
}

func newRetryState() *RetryState {
	return &RetryState{Started: time.Now()}
}

func (s *RetryState) next() {
	s.Attempt++
}

func (s *RetryState) fail(err error) {
	s.LastErr = err
	s.Elapsed = time.Since(s.Started)
}
