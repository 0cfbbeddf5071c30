package client

import (
	"context"

	"github.com/Sternrassler/fizzy-go/pkg/transport"
)

// Future is the pending result of a call started with Go.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go starts Run in its own goroutine. Backoff of one call never delays
// another; cancel ctx to abandon the call.
func Go[T any](ctx context.Context, c *Client, req transport.Request, decode func([]byte) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = Run(ctx, c, req, decode)
	}()
	return f
}

// Done is closed when the call has finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the call finishes or ctx is done. Abandoning the wait
// does not cancel the call.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result blocks until the call finishes.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.value, f.err
}
