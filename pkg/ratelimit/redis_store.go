package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindowScript implements the same evict-then-check-then-record
// sequence as MemoryStore, atomically, using a sorted set keyed by
// timestamp so concurrent gateway instances share rate-limit state.
//
// KEYS[1] = bucket key
// ARGV[1] = window width in milliseconds
// ARGV[2] = limit
// ARGV[3] = current unix time in milliseconds
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local window_ms = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cutoff = now - window_ms

redis.call("ZREMRANGEBYSCORE", key, "-inf", cutoff)
local count = redis.call("ZCARD", key)

if count >= limit then
    local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
    local reset = 0
    if oldest[2] then
        reset = tonumber(oldest[2]) + window_ms - now
        if reset < 0 then reset = 0 end
    end
    return {0, reset, 0}
end

redis.call("ZADD", key, now, now .. "-" .. tostring(math.random(1000000)))
redis.call("PEXPIRE", key, window_ms)
return {1, 0, limit - count - 1}
`)

// RedisStore implements Store against Redis, for a Gateway that wants
// rate-limit state to survive process restarts or to be shared across
// instances of a self-hosted deployment.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to a Redis instance at addr.
func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (s *RedisStore) Check(ctx context.Context, key string, windowMs int64, limit int, now time.Time) (Result, error) {
	res, err := slidingWindowScript.Run(ctx, s.client, []string{key}, windowMs, limit, now.UnixMilli()).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: redis script failed: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 3 {
		return Result{}, fmt.Errorf("ratelimit: unexpected redis script response")
	}
	allowed, _ := values[0].(int64)
	resetMs, _ := values[1].(int64)
	remaining, _ := values[2].(int64)

	return Result{
		Allowed:   allowed == 1,
		ResetMs:   resetMs,
		Remaining: int(remaining),
	}, nil
}
