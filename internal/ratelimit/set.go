package ratelimit

import (
	"github.com/redis/go-redis/v9"

	"github.com/wallet-insights/internal/config"
)

// Limiter names
const (
	General = "general"
	Auth    = "auth"
	AI      = "ai"
)

// Set bundles the API's three limiters.
type Set struct {
	General Limiter
	Auth    Limiter
	AI      Limiter
}

// Rules returns the general, auth and ai rules from cfg.
func Rules(cfg config.RateLimitConfig) []Rule {
	return []Rule{
		{Name: General, Max: cfg.GeneralMax, Window: cfg.GeneralWindow},
		{Name: Auth, Max: cfg.AuthMax, Window: cfg.AuthWindow},
		{Name: AI, Max: cfg.AIMax, Window: cfg.AIWindow},
	}
}

// NewSet builds the limiters. With a Redis client the counters are shared
// across instances; with nil they live in this process.
func NewSet(cfg config.RateLimitConfig, client redis.Cmdable) (*Set, error) {
	limiters := make(map[string]Limiter, 3)
	for _, rule := range Rules(cfg) {
		var (
			l   Limiter
			err error
		)
		if client != nil {
			l, err = NewRedisWindowLimiter(&RedisWindowConfig{Redis: client, Rule: rule})
		} else {
			l, err = NewMemoryLimiter(rule)
		}
		if err != nil {
			return nil, err
		}
		limiters[rule.Name] = l
	}

	return &Set{
		General: limiters[General],
		Auth:    limiters[Auth],
		AI:      limiters[AI],
	}, nil
}
