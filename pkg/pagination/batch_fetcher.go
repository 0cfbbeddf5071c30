package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/fizzy-go/pkg/client"
	"github.com/Sternrassler/fizzy-go/pkg/transport"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of lists walked in parallel
	MaxConcurrency int

	// Timeout bounds the walk of a single list (all of its pages)
	Timeout time.Duration
}

// DefaultConfig returns the default batch configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 5,
		Timeout:        60 * time.Second,
	}
}

// BatchFetcher walks many independent list requests in parallel, e.g. the
// comments of several cards. Pages within one list stay sequential since
// each next link is only known from the previous page.
type BatchFetcher[T any] struct {
	client *client.Client
	decode func([]byte) ([]T, error)
	config Config
	logger zerolog.Logger
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher[T any](c *client.Client, decode func([]byte) ([]T, error), config Config) *BatchFetcher[T] {
	def := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = def.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}

	return &BatchFetcher[T]{
		client: c,
		decode: decode,
		config: config,
		logger: c.Logger(),
	}
}

// FetchAll collects every item of every request. The result maps the
// request index to its items. Failed lists are missing from the map and
// their errors are aggregated; successful lists are still returned.
func (bf *BatchFetcher[T]) FetchAll(ctx context.Context, reqs []transport.Request) (map[int][]T, error) {
	start := time.Now()

	var (
		mu      sync.Mutex
		results = make(map[int][]T, len(reqs))
		errs    *multierror.Error
	)

	var g errgroup.Group
	g.SetLimit(bf.config.MaxConcurrency)

	for i, req := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", req.Path, err))
				mu.Unlock()
				return nil
			}

			listCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
			defer cancel()

			items, err := Collect(listCtx, New(bf.client, req, bf.decode))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				bf.logger.Warn().Err(err).Str("path", req.Path).Msg("List fetch failed")
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", req.Path, err))
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	bf.logger.Debug().
		Int("lists", len(reqs)).
		Int("fetched", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	if err := errs.ErrorOrNil(); err != nil {
		return results, fmt.Errorf("batch fetch (partial data: %d/%d lists): %w", len(results), len(reqs), err)
	}
	return results, nil
}
