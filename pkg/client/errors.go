package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/fizzy-go/pkg/transport"
)

// Kind classifies API errors by status code.
type Kind string

const (
	// KindValidation covers 400 Bad Request and 422 Unprocessable Entity.
	KindValidation Kind = "validation"

	// KindAuthentication represents 401 Unauthorized.
	KindAuthentication Kind = "authentication"

	// KindForbidden represents 403 Forbidden.
	KindForbidden Kind = "forbidden"

	// KindNotFound represents 404 Not Found.
	KindNotFound Kind = "not_found"

	// KindRateLimited represents 429 Too Many Requests.
	KindRateLimited Kind = "rate_limited"

	// KindServer represents 5xx server errors.
	KindServer Kind = "server"

	// KindUnknown is any other non-2xx status.
	KindUnknown Kind = "unknown"
)

// Sentinel errors matched by *APIError through errors.Is.
var (
	ErrValidation     = errors.New("validation error")
	ErrAuthentication = errors.New("authentication error")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrRateLimited    = errors.New("rate limited")
	ErrServer         = errors.New("server error")
)

// Common errors returned by the client.
var (
	// ErrContextCancelled is returned when the context is cancelled between
	// attempts. It is joined with the context's error.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrUnexpectedStatus is returned for 1xx/3xx responses other than 304.
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

// KindForStatus maps a status code to its error kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusUnauthorized:
		return KindAuthentication
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

// APIError is a non-2xx response from the Fizzy API.
type APIError struct {
	StatusCode int
	Kind       Kind
	Message    string

	// Body is the decoded JSON error body, nil when it was not an object
	Body map[string]any

	// Raw is the undecoded response body
	Raw []byte

	// Errors holds field validation messages from 422 responses
	Errors map[string][]string

	// RetryAfter is the server-requested delay on 429 responses
	RetryAfter time.Duration

	// RequestID is the X-Request-Id sent with the failing request
	RequestID string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if len(e.Errors) > 0 {
		msg += " (" + e.fieldSummary() + ")"
	}
	return fmt.Sprintf("fizzy %s error (status %d): %s", e.Kind, e.StatusCode, msg)
}

// Is matches the sentinel error for the error's kind.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrAuthentication:
		return e.Kind == KindAuthentication
	case ErrForbidden:
		return e.Kind == KindForbidden
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	case ErrServer:
		return e.Kind == KindServer
	}
	return false
}

func (e *APIError) fieldSummary() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+" "+strings.Join(e.Errors[field], ", "))
	}
	return strings.Join(parts, "; ")
}

// ErrorFromResponse builds an *APIError from a non-2xx response. The
// message is taken from the body's "error" field, then "message", then the
// raw text, then the status text.
func ErrorFromResponse(resp *transport.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Kind:       KindForStatus(resp.StatusCode),
		Raw:        resp.Body,
	}

	var body map[string]any
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		apiErr.Body = body
	}

	switch {
	case stringField(apiErr.Body, "error") != "":
		apiErr.Message = stringField(apiErr.Body, "error")
	case stringField(apiErr.Body, "message") != "":
		apiErr.Message = stringField(apiErr.Body, "message")
	case apiErr.Body == nil && len(strings.TrimSpace(string(resp.Body))) > 0:
		apiErr.Message = strings.TrimSpace(string(resp.Body))
	default:
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	if resp.StatusCode == http.StatusUnprocessableEntity {
		apiErr.Errors = fieldErrors(apiErr.Body)
		if apiErr.Message == "" || apiErr.Message == http.StatusText(resp.StatusCode) {
			apiErr.Message = "validation failed"
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RetryAfter = ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	}

	return apiErr
}

// ParseRetryAfter reads a Retry-After value given as delay seconds or an
// HTTP date. Invalid or past values yield 0.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// fieldErrors extracts {"errors": {"field": ["msg"]}} or top-level
// {"field": ["msg"]} validation bodies.
func fieldErrors(body map[string]any) map[string][]string {
	if body == nil {
		return nil
	}
	source := body
	if nested, ok := body["errors"].(map[string]any); ok {
		source = nested
	}

	out := make(map[string][]string)
	for field, raw := range source {
		switch v := raw.(type) {
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					out[field] = append(out[field], s)
				}
			}
		case string:
			if field != "error" && field != "message" {
				out[field] = append(out[field], v)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func stringField(body map[string]any, name string) string {
	if body == nil {
		return ""
	}
	s, _ := body[name].(string)
	return s
}

// DecodeError is returned when a successful response cannot be decoded.
// It is never retried.
type DecodeError struct {
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response (status %d): %v", e.StatusCode, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// errorKind labels an error for metrics and logs.
func errorKind(err error) string {
	var apiErr *APIError
	var netErr *transport.NetworkError
	var decErr *DecodeError
	switch {
	case errors.As(err, &apiErr):
		return string(apiErr.Kind)
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &decErr):
		return "decode"
	case errors.Is(err, ErrContextCancelled):
		return "cancelled"
	default:
		return "other"
	}
}
