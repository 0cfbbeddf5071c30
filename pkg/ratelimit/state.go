// Package ratelimit paces outgoing requests and shares server-imposed
// cooldowns. A 429 Too Many Requests answer with Retry-After records a
// cooldown; every logical call started afterwards waits until it has passed
// before its first attempt. The state lives in a Store so several client
// instances (or processes, via Redis) back off together.
package ratelimit

import (
	"time"
)

// Redis keys for cooldown state storage.
const (
	RedisKeyCooldownUntil  = "fizzy:rate_limit:cooldown_until"
	RedisKeyLastRetryAfter = "fizzy:rate_limit:last_retry_after"
	RedisKeyLastUpdate     = "fizzy:rate_limit:last_update"
)

// MaxCooldown caps a recorded cooldown, guarding against absurd
// Retry-After values.
const MaxCooldown = 10 * time.Minute

// State represents the shared rate limit state.
type State struct {
	// CooldownUntil is when requests may resume. Zero means no cooldown.
	CooldownUntil time.Time `json:"cooldown_until"`

	// LastRetryAfter is the Retry-After value that set the cooldown.
	LastRetryAfter time.Duration `json:"last_retry_after"`

	// LastUpdate is when the state was last written.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// CoolingDown reports whether requests must still wait.
func (s *State) CoolingDown() bool {
	return s.TimeUntilReset() > 0
}

// TimeUntilReset returns the remaining cooldown, 0 if it has passed.
func (s *State) TimeUntilReset() time.Duration {
	if s.CooldownUntil.IsZero() {
		return 0
	}
	d := time.Until(s.CooldownUntil)
	if d < 0 {
		return 0
	}
	return d
}
