package client

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/fizzy-go/pkg/cache"
	"github.com/Sternrassler/fizzy-go/pkg/transport"
)

// EnvPrefix prefixes every environment variable read by ConfigFromEnv.
const EnvPrefix = "FIZZY_"

var baseURLPattern = regexp.MustCompile(`^https?://[^\s/]+`)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the Fizzy instance
	BaseURL string `env:"BASE_URL" mapstructure:"base_url"`

	// Token is a personal API token; SessionToken comes from the
	// magic-link flow. Exactly one is required.
	Token        string `env:"TOKEN" mapstructure:"token"`
	SessionToken string `env:"SESSION_TOKEN" mapstructure:"session_token"`

	// AccountSlug scopes every resource path ("/{slug}/boards")
	AccountSlug string `env:"ACCOUNT_SLUG" mapstructure:"account"`

	UserAgent string        `env:"USER_AGENT" mapstructure:"user_agent"`
	Timeout   time.Duration `env:"TIMEOUT" mapstructure:"timeout"`

	// Caching
	EnableCache bool          `env:"ENABLE_CACHE" mapstructure:"enable_cache"`
	CacheTTL    time.Duration `env:"CACHE_TTL" mapstructure:"cache_ttl"` // 0 keeps entries until replaced
	RedisURL    string        `env:"REDIS_URL" mapstructure:"redis_url"` // shares cache and cooldown when set

	// Retry
	Retry RetryConfig `envPrefix:"RETRY_" mapstructure:"retry"`

	// Rate Limiting
	RateLimit      float64 `env:"RATE_LIMIT" mapstructure:"rate_limit"` // Requests per second, 0 = unlimited
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" mapstructure:"rate_limit_burst"`

	// Concurrency
	Mode           Mode `env:"MODE" mapstructure:"mode"`
	MaxConcurrency int  `env:"MAX_CONCURRENCY" mapstructure:"max_concurrency"` // Max parallel requests in batch helpers

	// Anonymous allows requests without credentials (magic-link endpoints)
	Anonymous bool `env:"-" mapstructure:"-"`

	// Redis overrides RedisURL with an existing client
	Redis *redis.Client `env:"-" mapstructure:"-"`

	// CacheStore overrides the store selected from Redis/RedisURL
	CacheStore cache.Store `env:"-" mapstructure:"-"`

	// HTTPClient overrides the transport's HTTP client
	HTTPClient *http.Client `env:"-" mapstructure:"-"`

	// Sleeper overrides the sleeper selected by Mode
	Sleeper Sleeper `env:"-" mapstructure:"-"`

	// Logger overrides the component logger
	Logger *zerolog.Logger `env:"-" mapstructure:"-"`
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(token, accountSlug string) Config {
	return Config{
		BaseURL:        transport.DefaultBaseURL,
		Token:          token,
		AccountSlug:    accountSlug,
		UserAgent:      "fizzy-go/" + Version,
		Timeout:        transport.DefaultTimeout,
		EnableCache:    true,
		Retry:          DefaultRetryConfig(),
		RateLimitBurst: 1,
		Mode:           ModeCooperative,
		MaxConcurrency: 5,
	}
}

// ConfigFromEnv returns DefaultConfig overridden by FIZZY_* environment
// variables (FIZZY_TOKEN, FIZZY_ACCOUNT_SLUG, FIZZY_RETRY_MAX_ATTEMPTS, ...).
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig("", "")
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, validation.Match(baseURLPattern).Error("must be an http(s) URL")),
		validation.Field(&c.Token, validation.By(c.credentialRule)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.CacheTTL, validation.Min(time.Duration(0))),
		validation.Field(&c.RateLimit, validation.Min(0.0)),
		validation.Field(&c.MaxConcurrency, validation.Min(0)),
		validation.Field(&c.Mode, validation.In(ModeCooperative, ModeBlocking)),
		validation.Field(&c.Retry),
	)
}

func (c Config) credentialRule(any) error {
	switch {
	case c.Token != "" && c.SessionToken != "":
		return transport.ErrAmbiguousCredential
	case c.Token == "" && c.SessionToken == "" && !c.Anonymous:
		return transport.ErrNoCredentials
	}
	return nil
}

// Validate checks the retry configuration.
func (r RetryConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MaxAttempts, validation.Min(0)),
		validation.Field(&r.InitialBackoff, validation.Min(time.Duration(0))),
		validation.Field(&r.MaxBackoff, validation.Min(time.Duration(0))),
		validation.Field(&r.Jitter, validation.Min(0.0), validation.Max(0.99)),
		validation.Field(&r.BackoffMultiplier, validation.When(r.BackoffMultiplier != 0, validation.Min(1.0))),
	)
}

// ErrInvalidConfig wraps validation failures returned by New.
var ErrInvalidConfig = errors.New("invalid client configuration")
