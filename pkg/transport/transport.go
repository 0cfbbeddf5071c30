// Package transport performs single HTTP exchanges against the Fizzy API:
// it builds the URL, injects authentication and account scope, applies the
// timeout and reports connection failures as NetworkError. It never looks at
// status codes; classification and retry live in the client package.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the hosted Fizzy instance.
const DefaultBaseURL = "https://app.fizzy.do"

// DefaultTimeout is applied when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

var (
	ErrNoCredentials       = errors.New("either token or session token must be provided")
	ErrAmbiguousCredential = errors.New("token and session token are mutually exclusive")
)

var exchangeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "fizzy_request_duration_seconds",
	Help:    "Duration of single HTTP exchanges with the Fizzy API by method",
	Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
}, []string{"method"})

// Config holds the transport configuration.
type Config struct {
	// BaseURL of the Fizzy instance (default: DefaultBaseURL)
	BaseURL string

	// Token is a personal API token. Exactly one of Token and SessionToken
	// must be set unless Anonymous is true.
	Token string

	// SessionToken is a token obtained through the magic-link flow
	SessionToken string

	// Anonymous allows requests without credentials (magic-link endpoints)
	Anonymous bool

	// AccountSlug is prefixed to every scoped path
	AccountSlug string

	UserAgent string

	// Timeout bounds each exchange, including reading the body. It also
	// applies when HTTPClient is set.
	Timeout time.Duration

	// HTTPClient overrides the default client (tests, custom transports)
	HTTPClient *http.Client

	Logger zerolog.Logger
}

// Transport issues authenticated requests.
type Transport struct {
	baseURL    string
	scope      string
	tokens     oauth2.TokenSource
	userAgent  string
	httpClient *http.Client
	external   *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
}

// New creates a transport from the configuration.
func New(cfg Config) (*Transport, error) {
	var tokens oauth2.TokenSource
	switch {
	case cfg.Token != "" && cfg.SessionToken != "":
		return nil, ErrAmbiguousCredential
	case cfg.Token != "":
		tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
	case cfg.SessionToken != "":
		tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.SessionToken, TokenType: "Bearer"})
	case !cfg.Anonymous:
		return nil, ErrNoCredentials
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	var scope string
	if slug := strings.Trim(cfg.AccountSlug, "/"); slug != "" {
		scope = "/" + slug
	}

	return &Transport{
		baseURL:    baseURL,
		scope:      scope,
		tokens:     tokens,
		userAgent:  cfg.UserAgent,
		httpClient: httpClient,
		external:   &http.Client{Timeout: httpClient.Timeout, Transport: httpClient.Transport},
		timeout:    timeout,
		logger:     cfg.Logger,
	}, nil
}

// BaseURL returns the configured base URL without trailing slash.
func (t *Transport) BaseURL() string {
	return t.baseURL
}

// ScopePrefix returns the account path prefix ("/slug") or "".
func (t *Transport) ScopePrefix() string {
	return t.scope
}

// ResolvePath returns the absolute request path including the account scope.
func (t *Transport) ResolvePath(req Request) string {
	path := req.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if req.Unscoped || t.scope == "" {
		return path
	}
	return t.scope + path
}

// SetHTTPClient replaces the HTTP client (for testing). The configured
// timeout still applies.
func (t *Transport) SetHTTPClient(c *http.Client) {
	t.httpClient = c
	t.external = &http.Client{Timeout: c.Timeout, Transport: c.Transport}
}

// Do executes a single exchange. Any response, whatever its status, is
// returned without error; only failures to obtain one produce a
// *NetworkError.
func (t *Transport) Do(ctx context.Context, req Request) (*Response, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	target := t.baseURL + t.ResolvePath(req)
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, bodyReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if t.userAgent != "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}
	if t.tokens != nil {
		tok, err := t.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("obtain token: %w", err)
		}
		tok.SetAuthHeader(httpReq)
	}
	for key, values := range req.Header {
		httpReq.Header.Del(key)
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	return t.exchange(t.httpClient, httpReq)
}

// PutExternal uploads raw bytes to an arbitrary URL (a pre-signed storage
// URL) with the caller's headers. No authentication is injected.
func (t *Transport) PutExternal(ctx context.Context, rawURL string, header map[string]string, body []byte) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create upload request: %w", err)
	}
	for key, value := range header {
		httpReq.Header.Set(key, value)
	}
	httpReq.ContentLength = int64(len(body))

	return t.exchange(t.external, httpReq)
}

func (t *Transport) exchange(c *http.Client, httpReq *http.Request) (*Response, error) {
	start := time.Now()
	defer func() {
		exchangeDuration.WithLabelValues(httpReq.Method).Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(httpReq.Context(), t.timeout)
	defer cancel()
	httpReq = httpReq.WithContext(ctx)

	resp, err := c.Do(httpReq)
	if err != nil {
		t.logger.Debug().Err(err).
			Str("method", httpReq.Method).
			Str("url", httpReq.URL.Redacted()).
			Msg("HTTP exchange failed")
		return nil, &NetworkError{Method: httpReq.Method, URL: httpReq.URL.Redacted(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: httpReq.Method, URL: httpReq.URL.Redacted(), Err: fmt.Errorf("read body: %w", err)}
	}

	t.logger.Debug().
		Str("method", httpReq.Method).
		Str("path", httpReq.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("HTTP exchange complete")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func encodeBody(req Request) ([]byte, string, error) {
	if req.Raw != nil {
		return req.Raw, req.ContentType, nil
	}
	if req.Body == nil {
		return nil, "", nil
	}
	data, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

func bodyReader(body []byte) io.Reader {
	if body == nil {
		return nil
	}
	return bytes.NewReader(body)
}
