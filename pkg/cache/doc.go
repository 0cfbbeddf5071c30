// Package cache provides the ETag cache for conditional GET requests.
//
// Every successful GET that carries an ETag is stored together with its
// raw body. The next identical GET is sent with If-None-Match; a 304 Not
// Modified answer is served from the stored body, which the caller decodes
// into a value it owns. Mutating requests invalidate every entry under the
// collections they touch.
//
// # Basic Usage
//
//	etags := cache.NewETagCache(cache.NewMemoryStore(), cache.Options{})
//
//	key := cache.NewKey("/acme/cards", url.Values{"status": {"open"}})
//	ticket := etags.Begin()
//	if entry, ok := etags.Lookup(ctx, key); ok {
//		req = etags.ApplyConditional(req, entry)
//	}
//
//	resp, err := tr.Do(ctx, req)
//	...
//	entry, ok := etags.Record(ctx, key, ticket, resp)
//
// # Stores
//
// MemoryStore keeps entries in process. RedisStore shares entries between
// processes.
//
// # Invalidation
//
// A mutation of "/boards/b1/cards" removes every cached GET under
// "/{account}/boards" and "/{account}/cards". Prefixes match on path
// segment boundaries only. A GET that was in flight while an invalidation
// ran does not write its response.
//
// # Metrics
//
//   - fizzy_cache_hits_total{layer} - Cache hits ("memory", "redis")
//   - fizzy_cache_misses_total - Cache misses
//   - fizzy_304_responses_total - Conditional request successes
//   - fizzy_conditional_requests_total - Requests sent with If-None-Match
//   - fizzy_cache_invalidations_total - Entries removed by mutations
//   - fizzy_cache_errors_total{operation} - Store errors
package cache
