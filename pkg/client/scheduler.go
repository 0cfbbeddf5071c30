package client

import (
	"context"
	"time"
)

// Mode selects how the executor waits between attempts.
type Mode string

const (
	// ModeCooperative waits on a timer and wakes early on cancellation.
	// Combined with Go, many logical calls progress concurrently.
	ModeCooperative Mode = "cooperative"

	// ModeBlocking sleeps the calling goroutine for the whole delay.
	ModeBlocking Mode = "blocking"
)

// Sleeper suspends the attempt loop for a duration.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f(ctx, d).
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// TimerSleeper waits on a timer and returns as soon as ctx is done.
type TimerSleeper struct{}

// Sleep implements Sleeper.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// BlockingSleeper sleeps unconditionally and checks ctx afterwards.
type BlockingSleeper struct{}

// Sleep implements Sleeper.
func (BlockingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d > 0 {
		time.Sleep(d)
	}
	return ctx.Err()
}

// SleeperFor returns the sleeper for a mode.
func SleeperFor(mode Mode) Sleeper {
	if mode == ModeBlocking {
		return BlockingSleeper{}
	}
	return TimerSleeper{}
}
