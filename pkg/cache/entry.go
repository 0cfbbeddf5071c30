package cache

import (
	"net/http"
	"time"
)

// Entry is a cached GET response. Entries are never mutated after they are
// published to a store; a newer response replaces the whole entry. Only the
// raw body is kept: every reader decodes its own value from it.
type Entry struct {
	// ETag for conditional requests (If-None-Match)
	ETag string `json:"etag"`

	// Body is the raw response body
	Body []byte `json:"body"`

	// Header holds the response headers (Link is needed to paginate a
	// revalidated page)
	Header http.Header `json:"header"`

	// StoredAt is when the response was cached
	StoredAt time.Time `json:"stored_at"`

	// Expires is when the entry is dropped; zero means never
	Expires time.Time `json:"expires,omitempty"`
}

// IsExpired returns true if the entry has an expiry in the past.
func (e *Entry) IsExpired() bool {
	return !e.Expires.IsZero() && time.Now().After(e.Expires)
}

// TTL returns the time until expiration, 0 for entries without expiry.
func (e *Entry) TTL() time.Duration {
	if e.Expires.IsZero() {
		return 0
	}
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Valid reports whether the entry can be used for revalidation.
func (e *Entry) Valid() bool {
	return e != nil && e.ETag != ""
}
