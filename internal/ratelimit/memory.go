package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/dtroode/socialmesh/internal/model"
)

const sweepEvery = 1024

type bucket struct {
	count        int
	resetAt      time.Time
	blockedUntil time.Time
}

// Memory is an in-process model.RateLimiter used when no Redis address is configured.
type Memory struct {
	mu      sync.Mutex
	limit   Limit
	buckets map[string]*bucket
	now     func() time.Time
	calls   int
}

var _ model.RateLimiter = (*Memory)(nil)

// NewMemory creates an in-process limiter. A nil now uses time.Now.
func NewMemory(limit Limit, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		limit:   limit,
		buckets: make(map[string]*bucket),
		now:     now,
	}
}

// Consume takes one point from key's budget.
func (m *Memory) Consume(_ context.Context, key string) (model.LimitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.calls++
	if m.calls%sweepEvery == 0 {
		m.sweep(now)
	}

	b, ok := m.buckets[key]
	if ok && now.Before(b.blockedUntil) {
		return model.LimitResult{RetryAfter: b.blockedUntil.Sub(now)}, nil
	}
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{resetAt: now.Add(m.limit.Window)}
		m.buckets[key] = b
	}

	b.count++
	if b.count > m.limit.Points {
		retry := m.limit.retryAfter(b.resetAt.Sub(now))
		if m.limit.Block > 0 {
			b.blockedUntil = now.Add(m.limit.Block)
			b.count = 0
			b.resetAt = b.blockedUntil
		}
		return model.LimitResult{RetryAfter: retry}, nil
	}

	return model.LimitResult{Allowed: true, Remaining: m.limit.Points - b.count}, nil
}

func (m *Memory) sweep(now time.Time) {
	for key, b := range m.buckets {
		if !now.Before(b.resetAt) && !now.Before(b.blockedUntil) {
			delete(m.buckets, key)
		}
	}
}
