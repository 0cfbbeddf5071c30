package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists the rate limit state.
type Store interface {
	GetState(ctx context.Context) (*State, error)

	// ExtendCooldown moves CooldownUntil to until unless a later cooldown
	// is already recorded.
	ExtendCooldown(ctx context.Context, until time.Time, retryAfter time.Duration) error
}

// MemoryStore keeps the state in process.
type MemoryStore struct {
	mu    sync.Mutex
	state State
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) GetState(_ context.Context) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state
	return &state, nil
}

func (s *MemoryStore) ExtendCooldown(_ context.Context, until time.Time, retryAfter time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if until.After(s.state.CooldownUntil) {
		s.state.CooldownUntil = until
		s.state.LastRetryAfter = retryAfter
	}
	s.state.LastUpdate = time.Now()
	return nil
}

// RedisStore shares the state between processes.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

// GetState retrieves the state. Missing keys yield an empty state.
func (s *RedisStore) GetState(ctx context.Context) (*State, error) {
	values, err := s.redis.MGet(ctx, RedisKeyCooldownUntil, RedisKeyLastRetryAfter, RedisKeyLastUpdate).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	state := &State{}
	if ms, ok := parseInt(values[0]); ok {
		state.CooldownUntil = time.UnixMilli(ms)
	}
	if ms, ok := parseInt(values[1]); ok {
		state.LastRetryAfter = time.Duration(ms) * time.Millisecond
	}
	if ms, ok := parseInt(values[2]); ok {
		state.LastUpdate = time.UnixMilli(ms)
	}
	return state, nil
}

// extendCooldownScript compares and writes the cooldown in one step, so a
// shorter Retry-After from another process never replaces a longer one.
// KEYS: cooldown_until, last_retry_after, last_update
// ARGV: until ms, retry-after ms, now ms, ttl ms
var extendCooldownScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0') or 0
if current >= tonumber(ARGV[1]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[4])
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[4])
redis.call('SET', KEYS[3], ARGV[3], 'PX', ARGV[4])
return 1
`)

// ExtendCooldown stores the cooldown atomically. Keys expire with the
// cooldown.
func (s *RedisStore) ExtendCooldown(ctx context.Context, until time.Time, retryAfter time.Duration) error {
	ttl := time.Until(until).Milliseconds()
	if ttl <= 0 {
		return nil
	}

	keys := []string{RedisKeyCooldownUntil, RedisKeyLastRetryAfter, RedisKeyLastUpdate}
	err := extendCooldownScript.Run(ctx, s.redis, keys,
		until.UnixMilli(), retryAfter.Milliseconds(), time.Now().UnixMilli(), ttl).Err()
	if err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

func parseInt(v any) (int64, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
