// Package testutil provides testing utilities for the Fizzy client.
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request received by the mock server.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// MockFizzy is a configurable mock Fizzy API server for testing.
// Handlers are registered per path, optionally per method.
type MockFizzy struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
	Requests          []RecordedRequest
}

// NewMockFizzy creates a new mock Fizzy server.
func NewMockFizzy() *MockFizzy {
	mock := &MockFizzy{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" {
			mock.ConditionalCount++
		}
		mock.Requests = append(mock.Requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		handler, exists := mock.handlers[r.Method+" "+r.URL.Path]
		if !exists {
			handler, exists = mock.handlers[r.URL.Path]
		}
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "Not found"}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockFizzy) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockFizzy) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockFizzy) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.Requests = nil
}

// SetHandler sets a handler for a path ("/acme/boards") or a method and
// path ("POST /acme/boards").
func (m *MockFizzy) SetHandler(pattern string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[pattern] = handler
}

// SetResponse configures a fixed response for a pattern.
func (m *MockFizzy) SetResponse(pattern string, resp MockResponse) {
	m.SetHandler(pattern, resp.write)
}

// SetSequence answers successive requests with successive responses; the
// last response repeats once the sequence is exhausted.
func (m *MockFizzy) SetSequence(pattern string, responses ...MockResponse) {
	var mu sync.Mutex
	next := 0
	m.SetHandler(pattern, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[next]
		if next < len(responses)-1 {
			next++
		}
		mu.Unlock()
		resp.write(w, r)
	})
}

func (resp MockResponse) write(w http.ResponseWriter, _ *http.Request) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockFizzy) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockFizzy) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetRequests returns a copy of the recorded requests.
func (m *MockFizzy) GetRequests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RecordedRequest(nil), m.Requests...)
}

// CountRequests returns how many requests matched method and path.
func (m *MockFizzy) CountRequests(method, path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.Requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// NewJSONResponse creates a 200 OK JSON response with an ETag.
func NewJSONResponse(data, etag string) MockResponse {
	headers := map[string]string{"Content-Type": "application/json; charset=utf-8"}
	if etag != "" {
		headers["ETag"] = etag
	}
	return MockResponse{StatusCode: http.StatusOK, Body: data, Headers: headers}
}

// NewNoContentResponse creates a 204 No Content response.
func NewNoContentResponse() MockResponse {
	return MockResponse{StatusCode: http.StatusNoContent}
}

// NewCreatedResponse creates a 201 Created response with only a Location.
func NewCreatedResponse(location string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusCreated,
		Headers:    map[string]string{"Location": location},
	}
}

// NewErrorResponse creates an error response with a JSON error body.
func NewErrorResponse(status int, message string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       fmt.Sprintf(`{"error": %q}`, message),
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfterSeconds int) MockResponse {
	resp := NewErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded")
	resp.Headers["Retry-After"] = strconv.Itoa(retryAfterSeconds)
	return resp
}

// NewServerErrorResponse creates a 503 Service Unavailable response.
func NewServerErrorResponse() MockResponse {
	return NewErrorResponse(http.StatusServiceUnavailable, "Service unavailable")
}

// NewConditionalHandler creates a handler that responds with 304 for
// requests carrying the current etag.
func NewConditionalHandler(etag, data string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}

// NewPagedHandler serves pages in order, linking each page to the next
// with a Link rel="next" header built from the request path and ?page=N.
// Conditional requests are answered with 304 when the page's ETag matches.
func NewPagedHandler(pages ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
			page = p
		}
		if page > len(pages) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`[]`))
			return
		}

		etag := fmt.Sprintf(`"page-%d"`, page)
		if page < len(pages) {
			q := r.URL.Query()
			q.Set("page", strconv.Itoa(page+1))
			w.Header().Set("Link", fmt.Sprintf(`<%s?%s>; rel="next"`, r.URL.Path, q.Encode()))
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(pages[page-1]))
	}
}
