package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitCooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fizzy_rate_limit_cooldowns_total",
		Help: "Total number of cooldowns recorded from 429 Retry-After responses",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fizzy_rate_limit_wait_seconds",
		Help:    "Time requests waited for a cooldown or the client-side rate limit",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})
)

// Tracker gates requests on the shared cooldown and an optional
// client-side token bucket.
type Tracker struct {
	store   Store
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewTracker creates a tracker. perSecond <= 0 disables client-side
// pacing; burst is raised to at least 1.
func NewTracker(store Store, perSecond float64, burst int, logger zerolog.Logger) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &Tracker{
		store:   store,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// GetState returns the current shared state.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	return t.store.GetState(ctx)
}

// RecordRetryAfter records a server-imposed cooldown.
func (t *Tracker) RecordRetryAfter(ctx context.Context, retryAfter time.Duration) {
	if retryAfter <= 0 {
		return
	}
	if retryAfter > MaxCooldown {
		retryAfter = MaxCooldown
	}

	until := time.Now().Add(retryAfter)
	if err := t.store.ExtendCooldown(ctx, until, retryAfter); err != nil {
		t.logger.Warn().Err(err).Msg("Failed to record rate limit cooldown")
		return
	}

	rateLimitCooldownsTotal.Inc()
	t.logger.Warn().
		Dur("retry_after", retryAfter).
		Time("cooldown_until", until).
		Msg("Fizzy rate limit hit - cooling down")
}

// Delay returns how long the caller must wait before sending a request:
// the remaining cooldown, or the token bucket reservation delay. Store
// failures are logged and do not block requests.
func (t *Tracker) Delay(ctx context.Context) time.Duration {
	var wait time.Duration

	state, err := t.store.GetState(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Failed to read rate limit state")
	} else if state.CoolingDown() {
		wait = state.TimeUntilReset()
		t.logger.Debug().Dur("wait_duration", wait).Msg("Waiting for rate limit cooldown")
	}

	if r := t.limiter.ReserveN(time.Now().Add(wait), 1); r.OK() {
		if d := r.DelayFrom(time.Now()); d > wait {
			wait = d
		}
	}

	if wait > 0 {
		rateLimitWaitSeconds.Observe(wait.Seconds())
	}
	return wait
}
