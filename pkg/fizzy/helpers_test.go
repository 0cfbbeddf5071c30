package fizzy

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/fizzy-go/internal/testutil"
	"github.com/Sternrassler/fizzy-go/pkg/client"
)

func newTestClient(t *testing.T) (*Client, *testutil.MockFizzy) {
	t.Helper()
	mock := testutil.NewMockFizzy()
	t.Cleanup(mock.Close)

	cfg := client.DefaultConfig("test-token", "acme")
	cfg.BaseURL = mock.URL()
	cfg.Sleeper = client.SleeperFunc(func(ctx context.Context, d time.Duration) error { return ctx.Err() })
	logger := zerolog.Nop()
	cfg.Logger = &logger

	c, err := NewClient(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mock
}

func jsonBody(t *testing.T, rec testutil.RecordedRequest) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body, &body))
	return body
}

func lastRequest(t *testing.T, mock *testutil.MockFizzy) testutil.RecordedRequest {
	t.Helper()
	reqs := mock.GetRequests()
	require.NotEmpty(t, reqs)
	return reqs[len(reqs)-1]
}

// parseForm decodes a recorded multipart request.
func parseForm(t *testing.T, rec testutil.RecordedRequest) *http.Request {
	t.Helper()
	req := httptest.NewRequest(rec.Method, "/", bytes.NewReader(rec.Body))
	req.Header = rec.Header
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req
}
