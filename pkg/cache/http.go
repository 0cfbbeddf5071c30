package cache

import (
	"bytes"
	"net/http"
	"time"

	"github.com/Sternrassler/fizzy-go/pkg/transport"
)

// EntryFromResponse converts a successful response into a cache entry.
// The body is copied so the caller keeps ownership of resp. ttl of zero
// stores the entry without expiry.
func EntryFromResponse(resp *transport.Response, ttl time.Duration) *Entry {
	now := time.Now()
	entry := &Entry{
		ETag:     resp.Header.Get("ETag"),
		Body:     bytes.Clone(resp.Body),
		Header:   cacheableHeader(resp.Header),
		StoredAt: now,
	}
	if ttl > 0 {
		entry.Expires = now.Add(ttl)
	}
	return entry
}

// cacheableHeader keeps the headers needed to replay a response.
func cacheableHeader(h http.Header) http.Header {
	out := http.Header{}
	for _, name := range []string{"ETag", "Link", "Content-Type", "Last-Modified"} {
		if v := h.Values(name); len(v) > 0 {
			out[http.CanonicalHeaderKey(name)] = append([]string(nil), v...)
		}
	}
	return out
}

// ShouldMakeConditionalRequest reports whether the entry carries a
// validator.
func ShouldMakeConditionalRequest(entry *Entry) bool {
	return entry.Valid()
}

// ApplyConditional returns a copy of req carrying If-None-Match for the
// entry's ETag. The request is returned unchanged when entry is nil.
func ApplyConditional(req transport.Request, entry *Entry) transport.Request {
	if !ShouldMakeConditionalRequest(entry) {
		return req
	}
	ConditionalRequests.Inc()
	return req.WithHeader("If-None-Match", entry.ETag)
}
