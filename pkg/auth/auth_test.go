package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/fizzy-go/internal/testutil"
	"github.com/Sternrassler/fizzy-go/pkg/client"
)

func newTestService(t *testing.T) (*Service, *testutil.MockFizzy) {
	t.Helper()
	mock := testutil.NewMockFizzy()
	t.Cleanup(mock.Close)

	s, err := New(mock.URL())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, mock
}

func TestRequestMagicLink(t *testing.T) {
	s, mock := newTestService(t)
	mock.SetResponse("POST /session", testutil.NewJSONResponse(`{"status":"sent"}`, ""))

	status, err := s.RequestMagicLink(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "sent", status["status"])

	reqs := mock.GetRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/session", reqs[0].Path, "session endpoint is not account scoped")
	assert.Empty(t, reqs[0].Header.Get("Authorization"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(reqs[0].Body, &body))
	assert.Equal(t, "ada@example.com", body["email"])
}

func TestRequestMagicLink_EmptyReply(t *testing.T) {
	s, mock := newTestService(t)
	mock.SetResponse("POST /session", testutil.NewNoContentResponse())

	status, err := s.RequestMagicLink(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Empty(t, status)
}

func TestRequestMagicLink_InvalidEmail(t *testing.T) {
	s, mock := newTestService(t)

	_, err := s.RequestMagicLink(context.Background(), "not-an-email")
	assert.Error(t, err)
	assert.Zero(t, mock.GetRequestCount())
}

func TestRequestMagicLink_RejectedByServer(t *testing.T) {
	s, mock := newTestService(t)
	mock.SetResponse("POST /session", testutil.MockResponse{
		StatusCode: http.StatusUnprocessableEntity,
		Body:       `{"errors":{"email":["is unknown"]}}`,
	})

	_, err := s.RequestMagicLink(context.Background(), "ada@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrValidation)
}

func TestSubmitMagicCode(t *testing.T) {
	s, mock := newTestService(t)
	mock.SetResponse("POST /session/magic_link", testutil.NewJSONResponse(`{"token":"sess-123"}`, ""))

	token, err := s.SubmitMagicCode(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "sess-123", token)

	var body map[string]string
	require.NoError(t, json.Unmarshal(mock.GetRequests()[0].Body, &body))
	assert.Equal(t, "ABC123", body["code"])
}

func TestSubmitMagicCode_Invalid(t *testing.T) {
	s, mock := newTestService(t)
	mock.SetResponse("POST /session/magic_link", testutil.NewErrorResponse(http.StatusUnauthorized, "Invalid or expired code"))

	_, err := s.SubmitMagicCode(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrAuthentication)
	assert.Contains(t, err.Error(), "Invalid or expired code")
	assert.Equal(t, 1, mock.GetRequestCount(), "authentication errors are not retried")
}

func TestSubmitMagicCode_NoToken(t *testing.T) {
	s, mock := newTestService(t)
	mock.SetResponse("POST /session/magic_link", testutil.NewJSONResponse(`{}`, ""))

	_, err := s.SubmitMagicCode(context.Background(), "ABC123")
	assert.ErrorIs(t, err, ErrNoToken)
}
