package transport

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"
)

// Request describes one logical API call. It is passed by value and the
// With* helpers return modified copies, so a Request can be reused safely.
type Request struct {
	// Method is the HTTP verb (GET, POST, PUT, PATCH, DELETE)
	Method string

	// Path is the resource path relative to the account, e.g. "/cards/42"
	Path string

	// Query holds the query parameters
	Query url.Values

	// Body is JSON-encoded when non-nil
	Body any

	// Raw is sent verbatim with ContentType and takes precedence over Body
	Raw         []byte
	ContentType string

	// Header holds extra request headers
	Header http.Header

	// Unscoped skips the account slug path prefix (identity, absolute
	// locations, pagination links that already carry the slug)
	Unscoped bool
}

// NewRequest creates a request for the given method and path.
func NewRequest(method, path string) Request {
	return Request{Method: method, Path: path}
}

// Get creates a GET request with optional query parameters.
func Get(path string, query url.Values) Request {
	return Request{Method: http.MethodGet, Path: path, Query: query}
}

// Clone returns a deep copy of the request.
func (r Request) Clone() Request {
	out := r
	if r.Query != nil {
		out.Query = make(url.Values, len(r.Query))
		for k, v := range r.Query {
			out.Query[k] = append([]string(nil), v...)
		}
	}
	if r.Header != nil {
		out.Header = r.Header.Clone()
	}
	if r.Raw != nil {
		out.Raw = bytes.Clone(r.Raw)
	}
	return out
}

// WithHeader returns a copy of the request with the header set.
func (r Request) WithHeader(key, value string) Request {
	out := r.Clone()
	if out.Header == nil {
		out.Header = http.Header{}
	}
	out.Header.Set(key, value)
	return out
}

// WithQuery returns a copy of the request with the given query.
func (r Request) WithQuery(query url.Values) Request {
	out := r.Clone()
	out.Query = query
	return out
}

// IsRead reports whether the request is GET-shaped and therefore cacheable.
func (r Request) IsRead() bool {
	m := strings.ToUpper(r.Method)
	return m == "" || m == http.MethodGet || m == http.MethodHead
}

// Response is the raw result of a single HTTP exchange.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsEmpty reports whether the response body is empty or whitespace.
func (r *Response) IsEmpty() bool {
	return len(bytes.TrimSpace(r.Body)) == 0
}
