// Package ratelimit implements fixed-window budgets with an optional lockout period.
package ratelimit

import (
	"time"
)

// Limit is a budget of Points per Window. When Block is positive, exceeding the
// budget locks the key out for Block instead of until the window resets.
type Limit struct {
	Points int
	Window time.Duration
	Block  time.Duration
}

func (l Limit) retryAfter(windowLeft time.Duration) time.Duration {
	if l.Block > 0 {
		return l.Block
	}
	return windowLeft
}
