package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryLimiter keeps one token bucket per key in process memory. A key may
// burst Max requests, then refills at Max per Window.
type MemoryLimiter struct {
	rule      Rule
	now       func() time.Time
	mu        sync.RWMutex
	limiters  map[string]*rate.Limiter
	lastSweep time.Time
}

// NewMemoryLimiter creates an in-process limiter for rule.
func NewMemoryLimiter(rule Rule) (*MemoryLimiter, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return &MemoryLimiter{
		rule:     rule,
		now:      time.Now,
		limiters: make(map[string]*rate.Limiter),
	}, nil
}

// WithClock replaces the clock
func (m *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	m.now = now
	return m
}

// Rule returns the enforced rule.
func (m *MemoryLimiter) Rule() Rule {
	return m.rule
}

func (m *MemoryLimiter) getLimiter(key string) *rate.Limiter {
	m.mu.RLock()
	limiter, exists := m.limiters[key]
	m.mu.RUnlock()
	if exists {
		return limiter
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists = m.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Every(m.rule.Window/time.Duration(m.rule.Max)), m.rule.Max)
	m.limiters[key] = limiter
	return limiter
}

// Allow takes one token for key.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()
	m.sweep(now)

	limiter := m.getLimiter(key)
	r := limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{Allowed: false, Limit: m.rule.Max, RetryAfter: delay}, nil
	}

	remaining := int(limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Limit: m.rule.Max, Remaining: remaining}, nil
}

// sweep drops buckets that have fully refilled, at most once per window.
func (m *MemoryLimiter) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastSweep) < m.rule.Window {
		return
	}
	m.lastSweep = now

	for key, limiter := range m.limiters {
		if limiter.TokensAt(now) >= float64(m.rule.Max) {
			delete(m.limiters, key)
		}
	}
}

// Len returns the number of tracked keys.
func (m *MemoryLimiter) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.limiters)
}
