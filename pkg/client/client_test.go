package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/fizzy-go/internal/testutil"
	"github.com/Sternrassler/fizzy-go/pkg/transport"
)

type board struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// recordingSleeper records requested delays without sleeping.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func newTestClient(t *testing.T, baseURL string, mutate ...func(*Config)) (*Client, *recordingSleeper) {
	t.Helper()

	cfg := DefaultConfig("test-token", "acme")
	cfg.BaseURL = baseURL
	sleeper := &recordingSleeper{}
	cfg.Sleeper = sleeper
	logger := zerolog.Nop()
	cfg.Logger = &logger
	for _, m := range mutate {
		m(&cfg)
	}

	c, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, sleeper
}

// countingDecoder counts decode invocations.
func countingDecoder[T any](n *int32) func([]byte) (T, error) {
	decode := JSON[T]()
	return func(body []byte) (T, error) {
		atomic.AddInt32(n, 1)
		return decode(body)
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "session token", mutate: func(c *Config) { c.Token, c.SessionToken = "", "s" }},
		{name: "anonymous", mutate: func(c *Config) { c.Token, c.Anonymous = "", true }},
		{name: "no credentials", mutate: func(c *Config) { c.Token = "" }, wantErr: true},
		{name: "both credentials", mutate: func(c *Config) { c.SessionToken = "s" }, wantErr: true},
		{name: "bad base url", mutate: func(c *Config) { c.BaseURL = "app.fizzy.do" }, wantErr: true},
		{name: "bad mode", mutate: func(c *Config) { c.Mode = "threads" }, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.Timeout = -time.Second }, wantErr: true},
		{name: "bad jitter", mutate: func(c *Config) { c.Retry.Jitter = 1.5 }, wantErr: true},
		{name: "bad redis url", mutate: func(c *Config) { c.RedisURL = "not a url" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("token", "acme")
			tt.mutate(&cfg)

			c, err := New(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			c.Close()
		})
	}
}

func TestNew_InvalidConfigSentinel(t *testing.T) {
	_, err := New(DefaultConfig("", "acme"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRun_CacheRoundTrip(t *testing.T) {
	mock := testutil.NewMockFizzy()
	defer mock.Close()
	mock.SetHandler("/acme/boards/b1", testutil.NewConditionalHandler(`"v1"`, `{"id":"b1","name":"Roadmap"}`))

	c, _ := newTestClient(t, mock.URL())
	ctx := context.Background()
	var decodes int32

	first, err := Run(ctx, c, transport.Get("/boards/b1", nil), countingDecoder[*board](&decodes))
	require.NoError(t, err)

	second, res, err := Execute(ctx, c, transport.Get("/boards/b1", nil), countingDecoder[*board](&decodes))
	require.NoError(t, err)

	assert.Equal(t, 2, mock.GetRequestCount())
	assert.Equal(t, 1, mock.GetConditionalCount())
	assert.Equal(t, int32(2), atomic.LoadInt32(&decodes), "304 decodes the stored body")
	assert.True(t, res.FromCache)
	assert.NotSame(t, first, second)
	assert.Equal(t, first, second)
	assert.Equal(t, "Roadmap", second.Name)
}

func TestRun_CallerMutationDoesNotReachCache(t *testing.T) {
	mock := testutil.NewMockFizzy()
	defer mock.Close()
	mock.SetHandler("/acme/boards", testutil.NewConditionalHandler(`"v1"`, `[{"id":"b1","name":"Original"}]`))

	c, _ := newTestClient(t, mock.URL())
	ctx := context.Background()

	first, res, err := Execute(ctx, c, transport.Get("/boards", nil), JSON[[]board]())
	require.NoError(t, err)
	require.False(t, res.FromCache)
	first[0].Name = "changed locally"
	res.Body[0] = '{'

	second, res, err := Execute(ctx, c, transport.Get("/boards", nil), JSON[[]board]())
	require.NoError(t, err)
	require.True(t, res.FromCache)
	assert.Equal(t, "Original", second[0].Name)
	second[0].Name = "changed again"

	third, err := Run(ctx, c, transport.Get("/boards", nil), JSON[[]board]())
	require.NoError(t, err)
	assert.Equal(t, "Original", third[0].Name)
	assert.Equal(t, 2, mock.GetConditionalCount())
}

func TestRun_CacheKeyIgnoresQueryOrder(t *testing.T) {
	mock := testutil.NewMockFizzy()
	defer mock.Close()
	mock.SetHandler("/acme/cards", testutil.NewConditionalHandler(`"v1"`, `[]`))

	c, _ := newTestClient(t, mock.URL())
	ctx := context.Background()

	q1 := transport.Params(map[string]any{"status": "open", "tag_ids": []string{"a", "b"}})
	q2 := transport.Params(map[string]any{"tag_ids": []string{"b", "a"}, "status": "open"})

	_, err := Run(ctx, c, transport.Get("/cards", q1), JSON[[]board]())
	require.NoError(t, err)
	_, err = Run(ctx, c, transport.Get("/cards", q2), JSON[[]board]())
	require.NoError(t, err)

	assert.Equal(t, 1, mock.GetConditionalCount())
}

func TestRun_CacheDisabled(t *testing.T) {
	mock := testutil.NewMockFizzy()
	defer mock.Close()
	mock.SetHandler("/acme/boards", testutil.NewConditionalHandler(`"v1"`, `[]`))

	c, _ := newTestClient(t, mock.URL(), func(cfg *Config) { cfg.EnableCache = false })
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := Run(ctx, c, transport.Get("/boards", nil), JSON[[]board]())
		require.NoError(t, err)
	}
	assert.Equal(t, 0, mock.GetConditionalCount())
}

func TestRun_MutationInvalidatesCollection(t *testing.T) {
	mock := testutil.NewMockFizzy()
	defer mock.Close()
	mock.SetHandler("GET /acme/cards/7", testutil.NewConditionalHandler(`"v1"`, `{"id":"7"}`))
	mock.SetResponse("POST /acme/cards/7/comments", testutil.NewJSONResponse(`{"id":"c1"}`, ""))

	c, _ := newTestClient(t, mock.URL())
	ctx := context.Background()

	_, err := Run(ctx, c, transport.Get("/cards/7", nil), JSON[board]())
	require.NoError(t, err)

	post := transport.NewRequest(http.MethodPost, "/cards/7/comments")
	post.Body = map[string]any{"comment": map[string]any{"body": "hi"}}
	_, err = Run(ctx, c, post, JSON[map[string]any]())
	require.NoError(t, err)

	_, res, err := Execute(ctx, c, transport.Get("/cards/7", nil), JSON[board]())
	require.NoError(t, err)

	assert.False(t, res.FromCache)
	assert.Equal(t, 0, mock.GetConditionalCount(), "GET after mutation must be unconditional")
}

func TestRun_FailedMutationKeepsCache(t *testing.T) {
	mock := testutil.NewMockFizzy()
	defer mock.Close()
	mock.SetHandler("GET /acme/cards/7", testutil.NewConditionalHandler(`"v1"`, `{"id":"7"}`))
	mock.SetResponse("PUT /acme/cards/7", testutil.MockResponse{
		StatusCode: http.StatusUnprocessableEntity,
		Body:       `{"title":["can't be blank"]}`,
	})

	c, _ := newTestClient(t, mock.URL())
	ctx := context.Background()

	_, err := Run(ctx, c, transport.Get("/cards/7", nil), JSON[board]())
	require.NoError(t, err)

	put := transport.NewRequest(http.MethodPut, "/cards/7")
	put.Body = map[string]any{"card": map[string]any{"title": ""}}
	_, err = Run(ctx, c, put, JSON[board]())
	require.ErrorIs(t, err, ErrValidation)

	_, err = Run(ctx, c, transport.Get("/cards/7", nil), JSON[board]())
	require.NoError(t, err)
	assert.Equal(t, 1, mock.GetConditionalCount())
}

func TestRun_RetryBound(t *testing.T) {
	mock := testutil.NewMockFizzy()
	defer mock.Close()
	mock.SetResponse("/acme/boards", testutil.NewServerErrorResponse())

	c, sleeper := newTestClient(t, mock.URL())

	_, err := Run(context.Background(), c, transport.Get("/boards", nil), JSON[[]board]())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindServer, apiErr.Kind)
	assert.ErrorIs(t, err, ErrServer)
	assert.Equal(t, 3, mock.GetRequestCount())

	delays := sleeper.Delays()
	require.Len(t, delays, 2)
	assert.InDelta(t, float64(time.Second), float64(delays[0]), float64(200*time.Millisecond))
	assert.InDelta(t, float64(2*time.Second), float64(delays[1]), float64(400*time.Millisecond))
}

func TestRun_NoRetryOn404(t *testing.T) {
	mock := testutil.NewMockFizzy()
	defer mock.Close()

	c, sleeper := newTestClient(t, mock.URL())

	_, err := Run(context.Background(), c, transport.Get("/boards/missing", nil), JSON[board]())

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, mock.GetRequestCount())
	assert.Empty(t, sleeper.Delays())
}

func TestRun_RetryAfterPrecedence(t *testing.T) {
	mock := testutil.NewMockFizzy()
	defer mock.Close()
	mock.SetSequence("/acme/boards",
		testutil.NewRateLimitResponse(2),
		testutil.NewJSONResponse(`[{"id":"b1"}]`, ""),
	)

	c, sleeper := newTestClient(t, mock.URL(), func(cfg *Config) {
		cfg.Retry.InitialBackoff = 10 * time.Millisecond
	})
	ctx := context.Background()

	boards, err := Run(ctx, c, transport.Get("/boards", nil), JSON[[]board]())
	require.NoError(t, err)
	assert.Len(t, boards, 1)

	delays := sleeper.Delays()
	require.Len(t, delays, 1)
	assert.Equal(t, 2*time.Second, delays[0])

	// The cooldown is shared: the next logical call waits before its first attempt.
	_, err = Run(ctx, c, transport.Get("/boards", nil), JSON[[]board]())
	require.NoError(t, err)

	delays = sleeper.Delays()
	require.Len(t, delays, 2)
	assert.Greater(t, delays[1], time.Second)
}

func TestRun_NetworkErrorRetried(t *testing.T) {
	mock := testutil.NewMockFizzy()
	url := mock.URL()
	mock.Close()

	c, sleeper := newTestClient(t, url)

	_, err := Run(context.Background(), c, transport.Get("/boards", nil), JSON[[]board]())

	var netErr *transport.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Len(t, sleeper.Delays(), 2)
}

func TestRun_CancelledDuringBackoff(t *testing.T) {
	mock := testutil.NewMockFizzy()
	defer mock.Close()
	mock.SetResponse("/acme/boards", testutil.NewServerErrorResponse())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, _ := newTestClient(t, mock.URL(), func(cfg *Config) {
		cfg.Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		})
	})

	_, err := Run(ctx, c, transport.Get("/boards", nil), JSON[[]board]())

	assert.ErrorIs(t, err, ErrContextCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, mock.GetRequestCount())
}

func TestRun_CancelledGETDoesNotCache(t *testing.T) {
	mock := testutil.NewMockFizzy()
	defer mock.Close()

	ctx, cancel := context.WithCancel(context.Background())
	mock.SetHandler("/acme/boards", func(w http.ResponseWriter, r *http.Request) {
		cancel()
		time.Sleep(50 * time.Millisecond)
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(`[]`))
	})

	c, _ := newTestClient(t, mock.URL())

	_, err := Run(ctx, c, transport.Get("/boards", nil), JSON[[]board]())
	require.ErrorIs(t, err, ErrContextCancelled)

	_, ok := c.Cache().Lookup(context.Background(), cacheKeyFor(c, "/boards"))
	assert.False(t, ok)
}

func TestRun_EmptyBodyZeroValue(t *testing.T) {
	mock := testutil.NewMockFizzy()
	defer mock.Close()
	mock.SetResponse("DELETE /acme/boards/b1", testutil.NewNoContentResponse())

	c, _ := newTestClient(t, mock.URL())
	var decodes int32

	got, err := Run(context.Background(), c, transport.NewRequest(http.MethodDelete, "/boards/b1"), countingDecoder[*board](&decodes))
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, atomic.LoadInt32(&decodes))
}

func TestRun_CreatedFollowsLocation(t *testing.T) {
	mock := testutil.NewMockFizzy()
	defer mock.Close()
	mock.SetResponse("POST /acme/boards", testutil.NewCreatedResponse(mock.URL()+"/acme/boards/b9.json"))
	mock.SetResponse("GET /acme/boards/b9", testutil.NewJSONResponse(`{"id":"b9","name":"New"}`, `"b9"`))

	c, _ := newTestClient(t, mock.URL())

	req := transport.NewRequest(http.MethodPost, "/boards")
	req.Body = map[string]any{"board": map[string]any{"name": "New"}}
	got, err := Run(context.Background(), c, req, JSON[board]())

	require.NoError(t, err)
	assert.Equal(t, board{ID: "b9", Name: "New"}, got)
	assert.Equal(t, 1, mock.CountRequests(http.MethodGet, "/acme/boards/b9"))
}

func TestRun_DecodeErrorNotRetried(t *testing.T) {
	mock := testutil.NewMockFizzy()
	defer mock.Close()
	mock.SetResponse("/acme/boards", testutil.NewJSONResponse(`{not json`, ""))

	c, sleeper := newTestClient(t, mock.URL())

	_, err := Run(context.Background(), c, transport.Get("/boards", nil), JSON[[]board]())

	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, 1, mock.GetRequestCount())
	assert.Empty(t, sleeper.Delays())
}

func TestRun_RequestIDStableAcrossRetries(t *testing.T) {
	mock := testutil.NewMockFizzy()
	defer mock.Close()
	mock.SetSequence("/acme/boards",
		testutil.NewServerErrorResponse(),
		testutil.NewJSONResponse(`[]`, ""),
	)

	c, _ := newTestClient(t, mock.URL())

	_, res, err := Execute(context.Background(), c, transport.Get("/boards", nil), JSON[[]board]())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)

	reqs := mock.GetRequests()
	require.Len(t, reqs, 2)
	id := reqs[0].Header.Get(RequestIDHeader)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, reqs[1].Header.Get(RequestIDHeader))
	assert.Equal(t, id, res.RequestID)
	assert.Equal(t, "Bearer test-token", reqs[0].Header.Get("Authorization"))
}

func TestRun_BlockingModeSameSemantics(t *testing.T) {
	mock := testutil.NewMockFizzy()
	defer mock.Close()
	mock.SetSequence("/acme/boards",
		testutil.NewServerErrorResponse(),
		testutil.NewJSONResponse(`[{"id":"b1"}]`, `"v1"`),
	)

	c, _ := newTestClient(t, mock.URL(), func(cfg *Config) {
		cfg.Sleeper = nil
		cfg.Mode = ModeBlocking
		cfg.Retry.InitialBackoff = 5 * time.Millisecond
	})

	boards, err := Run(context.Background(), c, transport.Get("/boards", nil), JSON[[]board]())
	require.NoError(t, err)
	assert.Len(t, boards, 1)
	assert.Equal(t, 2, mock.GetRequestCount())
}

func TestExecute_TypeMismatchDecodesBody(t *testing.T) {
	mock := testutil.NewMockFizzy()
	defer mock.Close()
	mock.SetHandler("/acme/boards/b1", testutil.NewConditionalHandler(`"v1"`, `{"id":"b1","name":"Roadmap"}`))

	c, _ := newTestClient(t, mock.URL())
	ctx := context.Background()

	_, err := Run(ctx, c, transport.Get("/boards/b1", nil), JSON[map[string]any]())
	require.NoError(t, err)

	got, err := Run(ctx, c, transport.Get("/boards/b1", nil), JSON[board]())
	require.NoError(t, err)
	assert.Equal(t, "Roadmap", got.Name)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("FIZZY_TOKEN", "env-token")
	t.Setenv("FIZZY_ACCOUNT_SLUG", "acme")
	t.Setenv("FIZZY_TIMEOUT", "5s")
	t.Setenv("FIZZY_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("FIZZY_MODE", "blocking")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Token)
	assert.Equal(t, "acme", cfg.AccountSlug)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, ModeBlocking, cfg.Mode)
	assert.Equal(t, time.Second, cfg.Retry.InitialBackoff, "unset values keep defaults")
	assert.NoError(t, cfg.Validate())
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := error(&APIError{StatusCode: 404, Kind: KindNotFound})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrServer))
}
