package pagination

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"strings"

	"github.com/Sternrassler/fizzy-go/pkg/client"
	"github.com/Sternrassler/fizzy-go/pkg/transport"
)

var (
	// ErrNoMorePages is returned by Next on the last page.
	ErrNoMorePages = errors.New("no more pages")

	// ErrCursorLoop is returned when a next link points to a page that was
	// already visited.
	ErrCursorLoop = errors.New("pagination cursor loop")
)

// Cursor walks a list endpoint page by page. It holds only the initial
// request; pages are never buffered.
type Cursor[T any] struct {
	client *client.Client
	req    transport.Request
	decode func([]byte) ([]T, error)
}

// Page is one page of a list. Pages are immutable; Next returns a new one.
type Page[T any] struct {
	Items []T

	// HasNext is true when the response linked a next page
	HasNext bool

	// Cursor is the opaque next-page link, "" on the last page
	Cursor string

	// Number is the 1-based position of the page in this walk
	Number int

	// FromCache is true when the page was revalidated with a 304
	FromCache bool

	cursor  *Cursor[T]
	visited map[string]bool
}

// New creates a cursor for a list request. A nil decode unmarshals JSON
// arrays.
func New[T any](c *client.Client, req transport.Request, decode func([]byte) ([]T, error)) *Cursor[T] {
	if decode == nil {
		decode = client.JSON[[]T]()
	}
	return &Cursor[T]{client: c, req: req.Clone(), decode: decode}
}

// Current fetches the first page.
func (c *Cursor[T]) Current(ctx context.Context) (*Page[T], error) {
	return c.fetch(ctx, c.req, 1, map[string]bool{})
}

// Next fetches the following page. It returns ErrNoMorePages on the last
// page.
func (p *Page[T]) Next(ctx context.Context) (*Page[T], error) {
	if !p.HasNext || p.Cursor == "" {
		return nil, ErrNoMorePages
	}
	if p.visited[p.Cursor] {
		return nil, fmt.Errorf("%w: %s", ErrCursorLoop, p.Cursor)
	}

	req, err := p.cursor.nextRequest(p.Cursor)
	if err != nil {
		return nil, err
	}

	visited := make(map[string]bool, len(p.visited)+1)
	for k := range p.visited {
		visited[k] = true
	}
	visited[p.Cursor] = true

	return p.cursor.fetch(ctx, req, p.Number+1, visited)
}

// All yields every item of every page, fetching pages lazily as the
// consumer advances. Each range starts over from the first page. A page
// error is yielded once and ends the sequence.
func (c *Cursor[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		page, err := c.Current(ctx)
		for {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}
			if !page.HasNext {
				return
			}
			page, err = page.Next(ctx)
		}
	}
}

// Collect gathers all items. On error the items gathered so far are
// returned with it.
func Collect[T any](ctx context.Context, c *Cursor[T]) ([]T, error) {
	var items []T
	for item, err := range c.All(ctx) {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *Cursor[T]) fetch(ctx context.Context, req transport.Request, number int, visited map[string]bool) (*Page[T], error) {
	items, res, err := client.Execute(ctx, c.client, req, c.decode)
	if err != nil {
		return nil, err
	}

	next := NextLink(res.Header)
	logger := c.client.Logger()
	logger.Debug().
		Str("path", req.Path).
		Int("page", number).
		Int("items", len(items)).
		Bool("has_next", next != "").
		Msg("Fetched page")

	return &Page[T]{
		Items:     items,
		HasNext:   next != "",
		Cursor:    next,
		Number:    number,
		FromCache: res.FromCache,
		cursor:    c,
		visited:   visited,
	}, nil
}

// nextRequest turns a next link into a request. The link's path already
// carries the account scope; its query is merged over the original
// filters.
func (c *Cursor[T]) nextRequest(link string) (transport.Request, error) {
	link = strings.TrimPrefix(link, c.client.Transport().BaseURL())
	u, err := url.Parse(link)
	if err != nil {
		return transport.Request{}, fmt.Errorf("parse next link %q: %w", link, err)
	}

	query := url.Values{}
	for k, v := range c.req.Query {
		query[k] = append([]string(nil), v...)
	}
	for k, v := range u.Query() {
		query[k] = v
	}

	req := c.req.Clone()
	req.Path = strings.TrimSuffix(u.Path, ".json")
	req.Query = query
	req.Unscoped = true
	return req, nil
}
