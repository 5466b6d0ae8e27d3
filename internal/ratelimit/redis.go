package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/dtroode/socialmesh/internal/model"
)

// consumeScript returns {allowed, remaining, retryAfterMs}.
var consumeScript = redis.NewScript(`
local blocked = redis.call('PTTL', KEYS[2])
if blocked > 0 then
  return {0, 0, blocked}
end
local points = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local block = tonumber(ARGV[3])
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], window)
  ttl = window
end
if count > points then
  if block > 0 then
    redis.call('SET', KEYS[2], '1', 'PX', block)
    redis.call('DEL', KEYS[1])
    return {0, 0, block}
  end
  return {0, 0, ttl}
end
return {1, points - count, 0}
`)

// Redis is a model.RateLimiter whose counters live in Redis, shared by every instance.
type Redis struct {
	client redis.UniversalClient
	prefix string
	limit  Limit
}

var _ model.RateLimiter = (*Redis)(nil)

// NewRedis creates a limiter that namespaces its keys with prefix.
func NewRedis(client redis.UniversalClient, prefix string, limit Limit) *Redis {
	return &Redis{client: client, prefix: prefix, limit: limit}
}

// Consume takes one point from key's budget.
func (r *Redis) Consume(ctx context.Context, key string) (model.LimitResult, error) {
	keys := []string{
		r.prefix + ":" + key,
		r.prefix + ":block:" + key,
	}

	res, err := consumeScript.Run(ctx, r.client, keys,
		r.limit.Points, r.limit.Window.Milliseconds(), r.limit.Block.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return model.LimitResult{}, fmt.Errorf("failed to consume rate limit point: %w", err)
	}
	if len(res) != 3 {
		return model.LimitResult{}, fmt.Errorf("unexpected rate limit reply of %d values", len(res))
	}

	return model.LimitResult{
		Allowed:    res[0] == 1,
		Remaining:  int(res[1]),
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}
