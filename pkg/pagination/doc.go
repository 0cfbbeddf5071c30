// Package pagination walks Fizzy list endpoints.
//
// Fizzy paginates with an RFC 8288 Link header: every page except the last
// carries a rel="next" link. The link is treated as an opaque cursor; the
// client never counts items or pages to decide where a list ends.
//
// Example usage:
//
//	cursor := pagination.New[fizzy.Card](c, transport.Get("/cards", filters), nil)
//
//	page, err := cursor.Current(ctx)
//	for err == nil {
//		process(page.Items)
//		page, err = page.Next(ctx)
//	}
//	if !errors.Is(err, pagination.ErrNoMorePages) {
//		return err
//	}
//
//	for card, err := range cursor.All(ctx) {
//		...
//	}
//
// Each page goes through the full client pipeline, so pages are
// revalidated against the ETag cache and retried individually.
//
// BatchFetcher walks several independent lists in parallel with a bounded
// worker pool and returns partial results when some of them fail.
package pagination
