package cache

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/fizzy-go/pkg/transport"
)

// Ticket is taken before a GET is sent and presented when its response is
// recorded. A ticket issued before an invalidation cannot publish.
type Ticket struct {
	epoch uint64
}

// Options configures an ETagCache.
type Options struct {
	// TTL bounds the age of entries; zero keeps entries until replaced or
	// invalidated
	TTL time.Duration

	Logger zerolog.Logger
}

// ETagCache stores the last ETag and raw body per GET and serves them on
// 304 Not Modified. A nil *ETagCache or one without a store is disabled:
// lookups miss and records are no-ops.
type ETagCache struct {
	store  Store
	ttl    time.Duration
	logger zerolog.Logger

	// mu serialises Record and Invalidate; epoch counts invalidations
	mu    sync.Mutex
	epoch uint64
}

// NewETagCache creates a cache over store. A nil store yields a disabled
// cache.
func NewETagCache(store Store, opts Options) *ETagCache {
	return &ETagCache{
		store:  store,
		ttl:    opts.TTL,
		logger: opts.Logger,
	}
}

// Enabled reports whether the cache participates in requests.
func (c *ETagCache) Enabled() bool {
	return c != nil && c.store != nil
}

// Lookup returns the entry for key. Corrupted entries are logged, removed
// and reported as a miss.
func (c *ETagCache) Lookup(ctx context.Context, key Key) (*Entry, bool) {
	if !c.Enabled() {
		return nil, false
	}

	entry, err := c.store.Get(ctx, key.String())
	switch {
	case err == nil && entry.Valid():
		CacheHits.WithLabelValues(c.layer()).Inc()
		return entry, true
	case err == nil, errors.Is(err, ErrInvalidEntry):
		c.logger.Warn().Err(err).Str("key", key.String()).Msg("Discarding corrupted cache entry")
		c.discardCorrupted(ctx, key.String())
	case !errors.Is(err, ErrCacheMiss):
		c.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache lookup failed")
	}

	CacheMisses.Inc()
	return nil, false
}

// discardCorrupted deletes key if it still holds an unusable entry. The
// check runs under mu so a concurrent Record is never undone.
func (c *ETagCache) discardCorrupted(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, ErrCacheMiss):
		return
	case err == nil && entry.Valid():
		return
	case err != nil && !errors.Is(err, ErrInvalidEntry):
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache lookup failed")
		return
	}
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to delete corrupted cache entry")
	}
}

// ApplyConditional attaches If-None-Match from entry to req.
func (c *ETagCache) ApplyConditional(req transport.Request, entry *Entry) transport.Request {
	if !c.Enabled() {
		return req
	}
	return ApplyConditional(req, entry)
}

// Begin issues a ticket for a GET about to be sent.
func (c *ETagCache) Begin() Ticket {
	if !c.Enabled() {
		return Ticket{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Ticket{epoch: c.epoch}
}

// Record applies a response to the cache and returns the entry that
// represents the response, if any:
//
//   - 200/201 with an ETag store a new entry (unless an invalidation ran
//     since the ticket was issued) and return it.
//   - 304 returns the previously cached entry unchanged.
//   - Any other status is ignored.
func (c *ETagCache) Record(ctx context.Context, key Key, ticket Ticket, resp *transport.Response) (*Entry, bool) {
	if !c.Enabled() || resp == nil {
		return nil, false
	}

	switch resp.StatusCode {
	case http.StatusNotModified:
		NotModifiedResponses.Inc()
		entry, err := c.store.Get(ctx, key.String())
		if err != nil || !entry.Valid() {
			return nil, false
		}
		return entry, true

	case http.StatusOK, http.StatusCreated:
		if resp.Header.Get("ETag") == "" {
			return nil, false
		}
		entry := EntryFromResponse(resp, c.ttl)

		c.mu.Lock()
		defer c.mu.Unlock()
		if ticket.epoch != c.epoch {
			c.logger.Debug().Str("key", key.String()).Msg("Skipping cache write after invalidation")
			return entry, false
		}
		if err := c.store.Set(ctx, key.String(), entry); err != nil {
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache write failed")
			return entry, false
		}
		c.logger.Debug().Str("key", key.String()).Str("etag", entry.ETag).Msg("Cached response")
		return entry, true
	}

	return nil, false
}

// Invalidate removes every entry under the collections of a mutated path.
// scope is the account path prefix ("/acme" or "").
func (c *ETagCache) Invalidate(ctx context.Context, scope, path string) int {
	if !c.Enabled() {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++

	removed := 0
	for _, collection := range CollectionPaths(scope, path) {
		prefix := PathPrefix(collection)
		keys, err := c.store.Keys(ctx, prefix)
		if err != nil {
			c.logger.Warn().Err(err).Str("prefix", prefix).Msg("Cache invalidation scan failed")
			continue
		}

		var matched []string
		for _, key := range keys {
			if HasPathPrefix(key, prefix) {
				matched = append(matched, key)
			}
		}
		if len(matched) == 0 {
			continue
		}
		if err := c.store.Delete(ctx, matched...); err != nil {
			c.logger.Warn().Err(err).Str("prefix", prefix).Msg("Cache invalidation failed")
			continue
		}
		removed += len(matched)
	}

	if removed > 0 {
		Invalidations.Add(float64(removed))
		c.logger.Debug().Str("path", path).Int("removed", removed).Msg("Invalidated cache entries")
	}
	return removed
}

// Clear drops every entry.
func (c *ETagCache) Clear(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	return c.store.Clear(ctx)
}

func (c *ETagCache) layer() string {
	if _, ok := c.store.(*RedisStore); ok {
		return "redis"
	}
	return "memory"
}
