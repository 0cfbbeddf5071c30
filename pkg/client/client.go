// Package client provides the request executor for the Fizzy API: every
// resource call goes through Client.Do, which composes the transport, the
// ETag cache, the retry policy and the shared rate limit cooldown.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/fizzy-go/pkg/cache"
	"github.com/Sternrassler/fizzy-go/pkg/logging"
	"github.com/Sternrassler/fizzy-go/pkg/ratelimit"
	"github.com/Sternrassler/fizzy-go/pkg/transport"
)

// Version is reported in the default User-Agent.
const Version = "0.3.0"

// RequestIDHeader carries the per-call request ID.
const RequestIDHeader = "X-Request-Id"

// DecodeFunc maps a response body to a value.
type DecodeFunc func(body []byte) (any, error)

// Result describes the outcome of a logical call. Value and Body belong to
// the caller: a 304 answered from the cache is decoded again from the
// stored body, so changing a result never changes the cache.
type Result struct {
	// Value is the decoded body; nil for empty responses
	Value any

	// Body is the raw body the value was decoded from
	Body []byte

	StatusCode int
	Header     http.Header

	// FromCache is true when a 304 was answered from the ETag cache
	FromCache bool

	Attempts  int
	RequestID string
}

// Client is the Fizzy request executor.
type Client struct {
	transport *transport.Transport
	etags     *cache.ETagCache
	policy    *Policy
	sleeper   Sleeper
	limiter   *ratelimit.Tracker
	redis     *redis.Client
	ownsRedis bool
	config    Config
	logger    zerolog.Logger
}

// New creates a new Fizzy client.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	base := log.Logger
	if cfg.Logger != nil {
		base = *cfg.Logger
	}
	logger := logging.Component(base, logging.ComponentClient)

	tr, err := transport.New(transport.Config{
		BaseURL:      cfg.BaseURL,
		Token:        cfg.Token,
		SessionToken: cfg.SessionToken,
		Anonymous:    cfg.Anonymous,
		AccountSlug:  cfg.AccountSlug,
		UserAgent:    cfg.UserAgent,
		Timeout:      cfg.Timeout,
		HTTPClient:   cfg.HTTPClient,
		Logger:       logging.Component(base, logging.ComponentTransport),
	})
	if err != nil {
		return nil, fmt.Errorf("create transport: %w", err)
	}

	redisClient, ownsRedis := cfg.Redis, false
	if redisClient == nil && cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		redisClient, ownsRedis = redis.NewClient(opts), true
	}

	var store cache.Store
	switch {
	case !cfg.EnableCache:
	case cfg.CacheStore != nil:
		store = cfg.CacheStore
	case redisClient != nil:
		store = cache.NewRedisStore(redisClient)
	default:
		store = cache.NewMemoryStore()
	}
	etags := cache.NewETagCache(store, cache.Options{
		TTL:    cfg.CacheTTL,
		Logger: logging.Component(base, logging.ComponentCache),
	})

	var limitStore ratelimit.Store = ratelimit.NewMemoryStore()
	if redisClient != nil {
		limitStore = ratelimit.NewRedisStore(redisClient)
	}
	limiter := ratelimit.NewTracker(limitStore, cfg.RateLimit, cfg.RateLimitBurst,
		logging.Component(base, logging.ComponentRateLimit))

	sleeper := cfg.Sleeper
	if sleeper == nil {
		sleeper = SleeperFor(cfg.Mode)
	}

	return &Client{
		transport: tr,
		etags:     etags,
		policy:    NewPolicy(cfg.Retry),
		sleeper:   sleeper,
		limiter:   limiter,
		redis:     redisClient,
		ownsRedis: ownsRedis,
		config:    cfg,
		logger:    logger,
	}, nil
}

// Do executes one logical call: conditional GET against the ETag cache,
// the attempt loop with retry and backoff, decoding, and cache
// invalidation after successful mutations. On failure the error of the
// final attempt is returned as is.
func (c *Client) Do(ctx context.Context, req transport.Request, decode DecodeFunc) (*Result, error) {
	req = req.Clone()
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	req.Method = strings.ToUpper(req.Method)

	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		req = req.WithHeader(RequestIDHeader, requestID)
	}

	logger := c.logger.With().
		Str("request_id", requestID).
		Str("method", req.Method).
		Str("path", req.Path).
		Logger()

	startTime := time.Now()
	defer func() {
		fizzyCallDuration.WithLabelValues(req.Method).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Conditional request setup
	read := req.IsRead()
	useCache := read && c.etags.Enabled()

	var key cache.Key
	var ticket cache.Ticket
	var cached *cache.Entry
	attemptReq := req
	if useCache {
		key = cache.NewKey(c.transport.ResolvePath(req), req.Query)
		ticket = c.etags.Begin()
		if entry, ok := c.etags.Lookup(ctx, key); ok {
			cached = entry
			attemptReq = c.etags.ApplyConditional(req, entry)
			logger.Debug().Str("etag", entry.ETag).Msg("Making conditional request")
		}
	}

	// Step 2: Shared cooldown and pacing before the first attempt
	if wait := c.limiter.Delay(ctx); wait > 0 {
		logger.Debug().Dur("wait", wait).Msg("Waiting for rate limit")
		if err := c.sleeper.Sleep(ctx, wait); err != nil {
			return nil, cancelled(ctx, err)
		}
	}

	// Step 3: Attempt loop
	state := newRetryState()
	for {
		if err := ctx.Err(); err != nil {
			return nil, cancelled(ctx, err)
		}
		state.next()

		result, follow, err := c.attempt(ctx, attemptReq, decode, key, ticket, cached, useCache)
		if err == nil {
			result.Attempts = state.Attempt
			result.RequestID = requestID
			if state.Attempt > 1 {
				logger.Info().Int("attempt", state.Attempt).Msg("Request succeeded after retry")
			}

			// Step 4: Invalidate after successful mutation
			if !read {
				c.etags.Invalidate(ctx, c.transport.ScopePrefix(), req.Path)
			}

			if follow != "" {
				return c.followLocation(ctx, follow, decode, requestID)
			}
			return result, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, cancelled(ctx, ctxErr)
		}

		state.fail(err)
		kind := errorKind(err)
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			apiErr.RequestID = requestID
			if apiErr.StatusCode == http.StatusTooManyRequests {
				c.limiter.RecordRetryAfter(ctx, apiErr.RetryAfter)
			}
		}

		if !c.policy.ShouldRetry(state.Attempt, err) {
			if Retryable(err) {
				fizzyRetryExhaustedTotal.WithLabelValues(kind).Inc()
				logger.Error().Err(err).
					Int("attempt", state.Attempt).
					Dur("elapsed", state.Elapsed).
					Msg("Retry attempts exhausted")
			} else {
				logger.Debug().Err(err).Str("error_kind", kind).Msg("Request failed")
			}
			return nil, err
		}

		delay := c.policy.DelayFor(state.Attempt, err)
		fizzyRetriesTotal.WithLabelValues(kind).Inc()
		fizzyRetryBackoffSeconds.WithLabelValues(kind).Observe(delay.Seconds())
		logger.Warn().Err(err).
			Str("error_kind", kind).
			Int("attempt", state.Attempt).
			Dur("backoff", delay).
			Msg("Retrying request after backoff")

		if err := c.sleeper.Sleep(ctx, delay); err != nil {
			logger.Warn().Int("attempt", state.Attempt).Msg("Context cancelled during retry backoff")
			return nil, cancelled(ctx, err)
		}
	}
}

// attempt performs one exchange and interprets its status. follow is set
// for 201 responses that only carry a Location.
func (c *Client) attempt(ctx context.Context, req transport.Request, decode DecodeFunc, key cache.Key, ticket cache.Ticket, cached *cache.Entry, useCache bool) (*Result, string, error) {
	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		fizzyRequestsTotal.WithLabelValues(req.Method, "network_error").Inc()
		fizzyErrorsTotal.WithLabelValues("network").Inc()
		return nil, "", err
	}
	fizzyRequestsTotal.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		entry := cached
		if useCache {
			if recorded, ok := c.etags.Record(ctx, key, ticket, resp); ok {
				entry = recorded
			}
		}
		if entry == nil {
			return nil, "", fmt.Errorf("%w: 304 without cached entry", ErrUnexpectedStatus)
		}
		c.logger.Debug().Str("path", req.Path).Str("etag", entry.ETag).Msg("304 Not Modified - using cache")

		// Each caller decodes its own value; the stored body is never
		// handed out.
		body := bytes.Clone(entry.Body)
		var value any
		if len(body) > 0 && decode != nil {
			if value, err = decode(body); err != nil {
				return nil, "", &DecodeError{StatusCode: resp.StatusCode, Err: err}
			}
		}
		return &Result{
			Value:      value,
			Body:       body,
			StatusCode: http.StatusOK,
			Header:     mergeHeader(entry.Header, resp.Header),
			FromCache:  true,
		}, "", nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if resp.IsEmpty() {
			if resp.StatusCode == http.StatusCreated && resp.Header.Get("Location") != "" {
				return &Result{StatusCode: resp.StatusCode, Header: resp.Header}, resp.Header.Get("Location"), nil
			}
			return &Result{StatusCode: resp.StatusCode, Header: resp.Header}, "", nil
		}

		var value any
		if decode != nil {
			if value, err = decode(resp.Body); err != nil {
				fizzyErrorsTotal.WithLabelValues("decode").Inc()
				return nil, "", &DecodeError{StatusCode: resp.StatusCode, Err: err}
			}
		}
		if useCache {
			c.etags.Record(ctx, key, ticket, resp)
		}
		return &Result{
			Value:      value,
			Body:       resp.Body,
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
		}, "", nil

	case resp.StatusCode >= 400:
		apiErr := ErrorFromResponse(resp)
		fizzyErrorsTotal.WithLabelValues(string(apiErr.Kind)).Inc()
		return nil, "", apiErr
	}

	return nil, "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
}

// followLocation resolves a 201 Created that returned only a Location
// header by fetching it through the full pipeline.
func (c *Client) followLocation(ctx context.Context, location string, decode DecodeFunc, requestID string) (*Result, error) {
	path, query, err := c.locationPath(location)
	if err != nil {
		return nil, err
	}
	req := transport.Get(path, query)
	req.Unscoped = true
	req = req.WithHeader(RequestIDHeader, requestID)
	return c.Do(ctx, req, decode)
}

// locationPath strips the base URL and a ".json" suffix from a Location.
func (c *Client) locationPath(location string) (string, url.Values, error) {
	location = strings.TrimPrefix(location, c.transport.BaseURL())
	u, err := url.Parse(location)
	if err != nil {
		return "", nil, fmt.Errorf("parse location %q: %w", location, err)
	}
	path := strings.TrimSuffix(u.Path, ".json")
	var query url.Values
	if u.RawQuery != "" {
		query = u.Query()
	}
	return path, query, nil
}

// Close closes the client and releases resources.
func (c *Client) Close() error {
	if c.ownsRedis && c.redis != nil {
		return c.redis.Close()
	}
	return nil
}

// Transport returns the underlying transport.
func (c *Client) Transport() *transport.Transport {
	return c.transport
}

// Cache returns the ETag cache (for testing).
func (c *Client) Cache() *cache.ETagCache {
	return c.etags
}

// RateLimiter returns the rate limit tracker.
func (c *Client) RateLimiter() *ratelimit.Tracker {
	return c.limiter
}

// Config returns the configuration the client was created with.
func (c *Client) Config() Config {
	return c.config
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.transport.SetHTTPClient(hc)
}

// Logger returns the client logger.
func (c *Client) Logger() zerolog.Logger {
	return c.logger
}

func cancelled(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return errors.Join(ErrContextCancelled, err)
}

func mergeHeader(cached, fresh http.Header) http.Header {
	out := cached.Clone()
	if out == nil {
		out = http.Header{}
	}
	for k, v := range fresh {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}
