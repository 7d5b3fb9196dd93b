package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/collab-template-demo/domain/ratelimit"
)

// slidingWindowScript trims the sorted set to the window, then either records the
// request or reports how long until the oldest entry leaves the window.
// Returns {allowed, remaining, retry_after_ms}.
var slidingWindowScript = redis.NewScript(`
local hits = KEYS[1]
local seq = KEYS[2]
local now = tonumber(ARGV[1])
local floor = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', hits, '-inf', floor)
local used = redis.call('ZCARD', hits)

if used >= limit then
	local first = redis.call('ZRANGE', hits, 0, 0, 'WITHSCORES')
	local wait = 0
	if #first >= 2 then
		wait = tonumber(first[2]) + ttl - now
	end
	return {0, 0, wait}
end

local n = redis.call('INCR', seq)
redis.call('ZADD', hits, now, now .. '-' .. n)
redis.call('PEXPIRE', hits, ttl)
redis.call('PEXPIRE', seq, ttl)
return {1, limit - used - 1, 0}
`)

// RedisLimiter is a sliding-window limiter shared through Redis.
type RedisLimiter struct {
	client *redis.Client
	config ratelimit.Config
	prefix string
}

// NewRedisLimiter creates a sliding-window limiter. The client is owned by the caller.
func NewRedisLimiter(client *redis.Client, config ratelimit.Config, prefix string) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		config: config,
		prefix: prefix,
	}
}

// Allow records one request for key if the window has room.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (*ratelimit.Result, error) {
	now := time.Now()
	hitsKey := l.prefix + key
	windowMs := l.config.WindowSize.Milliseconds()

	reply, err := slidingWindowScript.Run(ctx, l.client,
		[]string{hitsKey, hitsKey + ":seq"},
		now.UnixMilli(),
		now.Add(-l.config.WindowSize).UnixMilli(),
		l.config.RequestsPerWindow,
		windowMs,
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	if len(reply) != 3 {
		return nil, fmt.Errorf("unexpected rate limit reply length: %d", len(reply))
	}

	res := &ratelimit.Result{
		Allowed:   reply[0] == 1,
		Remaining: int(reply[1]),
		ResetAt:   now.Add(l.config.WindowSize),
	}
	if !res.Allowed && reply[2] > 0 {
		res.RetryAfter = time.Duration(reply[2]) * time.Millisecond
	}
	return res, nil
}

// Close is a no-op; the Redis client is closed by the module.
func (l *RedisLimiter) Close() error {
	return nil
}
