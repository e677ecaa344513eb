package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript performs the fixed-window check-and-increment atomically.
// The counter is incremented only when the request is admitted, and the
// window TTL is set only when the counter is created, so admissions inside a
// window never extend it.
//
// Returns {allowed, remaining, reset_in_seconds}.
var takeScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

local current = redis.call('GET', key)
local count = current and tonumber(current) or 0

if count >= limit then
    local ttl = redis.call('TTL', key)
    if ttl < 0 then ttl = window end
    return {0, 0, ttl}
end

count = redis.call('INCR', key)
if count == 1 then
    redis.call('EXPIRE', key, window)
end

local ttl = redis.call('TTL', key)
if ttl < 0 then ttl = window end
return {1, limit - count, ttl}
`)

// RedisStore keeps window counters in Redis under rate_limit:<key>.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a Redis-backed fixed-window store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// RedisKey returns the Redis key holding the counter for key.
func RedisKey(key string) string {
	return fmt.Sprintf("rate_limit:%s", key)
}

func (s *RedisStore) Take(ctx context.Context, key string, cfg Config) (Result, error) {
	windowSec := int(cfg.Window / time.Second)
	if windowSec < 1 {
		windowSec = 1
	}

	raw, err := takeScript.Run(ctx, s.client, []string{RedisKey(key)}, cfg.Limit, windowSec).Int64Slice()
	if err != nil {
		return Result{}, err
	}
	if len(raw) != 3 {
		return Result{}, fmt.Errorf("unexpected script reply of length %d", len(raw))
	}

	return Result{
		Allowed:   raw[0] == 1,
		Limit:     cfg.Limit,
		Remaining: int(raw[1]),
		ResetIn:   time.Duration(raw[2]) * time.Second,
	}, nil
}
