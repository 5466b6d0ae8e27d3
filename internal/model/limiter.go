package model

import (
	"context"
	"time"
)

// RateLimiter consumes one point from the budget identified by key.
type RateLimiter interface {
	Consume(ctx context.Context, key string) (LimitResult, error)
}

// LimitResult describes the state of a budget after a consume attempt.
type LimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}
