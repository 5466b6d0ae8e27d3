package main

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/dtroode/socialmesh/internal/config"
	"github.com/dtroode/socialmesh/internal/logger"
	"github.com/dtroode/socialmesh/internal/model"
	"github.com/dtroode/socialmesh/internal/ratelimit"
)

// limiters builds one model.RateLimiter per tier. Every tier shares the redis client
// when REDIS_ADDR is set; otherwise counters are kept in process.
type limiters struct {
	client redis.UniversalClient
}

func newLimiters(ctx context.Context, cfg config.Redis, logger *logger.Logger) (*limiters, error) {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR is empty, rate limit counters are local to this instance")
		return &limiters{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return &limiters{client: client}, nil
}

func (l *limiters) tier(prefix string, limit config.Limit) model.RateLimiter {
	rl := ratelimit.Limit{Points: limit.Points, Window: limit.Window, Block: limit.Block}
	if l.client == nil {
		return ratelimit.NewMemory(rl, nil)
	}
	return ratelimit.NewRedis(l.client, prefix, rl)
}

func (l *limiters) Close() error {
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}
