package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every counter this package writes.
const KeyPrefix = "ratelimit:"

// windowScript increments the counter and arms its expiry on first use.
// Returns {count, pttl}.
var windowScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	return {count, redis.call('PTTL', KEYS[1])}
`)

// RedisWindowLimiter counts requests per key in window-aligned Redis keys so
// every API instance shares one budget.
type RedisWindowLimiter struct {
	redis redis.Cmdable
	rule  Rule
	now   func() time.Time
}

// RedisWindowConfig holds configuration for a RedisWindowLimiter.
type RedisWindowConfig struct {
	// Redis is required.
	Redis redis.Cmdable
	Rule  Rule
	// Now overrides the clock. Default: time.Now.
	Now func() time.Time
}

// Validate checks if the configuration is valid.
func (c *RedisWindowConfig) Validate() error {
	if c.Redis == nil {
		return errors.New("redis client is required")
	}
	return c.Rule.Validate()
}

// NewRedisWindowLimiter creates a limiter for cfg.Rule.
func NewRedisWindowLimiter(cfg *RedisWindowConfig) (*RedisWindowLimiter, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &RedisWindowLimiter{
		redis: cfg.Redis,
		rule:  cfg.Rule,
		now:   now,
	}, nil
}

// Rule returns the enforced rule.
func (l *RedisWindowLimiter) Rule() Rule {
	return l.rule
}

// windowStart aligns t to the window boundary.
func (l *RedisWindowLimiter) windowStart(t time.Time) time.Time {
	return t.Truncate(l.rule.Window)
}

func (l *RedisWindowLimiter) counterKey(key string, windowStart time.Time) string {
	return KeyPrefix + l.rule.Name + ":" + key + ":" + strconv.FormatInt(windowStart.UnixMilli(), 10)
}

// Allow counts one request for key in the current window.
func (l *RedisWindowLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	start := l.windowStart(now)

	res, err := windowScript.Run(ctx, l.redis, []string{l.counterKey(key, start)}, l.rule.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit %s: %w", l.rule.Name, err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("rate limit %s: unexpected script reply %v", l.rule.Name, res)
	}

	count := int(res[0])
	d := Decision{
		Allowed:   count <= l.rule.Max,
		Limit:     l.rule.Max,
		Remaining: l.rule.Max - count,
	}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if !d.Allowed {
		d.RetryAfter = start.Add(l.rule.Window).Sub(now)
		if d.RetryAfter <= 0 {
			d.RetryAfter = time.Millisecond
		}
	}
	return d, nil
}
