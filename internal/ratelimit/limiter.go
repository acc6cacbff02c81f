// Package ratelimit provides fixed-window request limiting, shared through
// Redis or kept in process memory.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Rule is a named request budget: at most Max requests per Window per key.
type Rule struct {
	Name   string
	Max    int
	Window time.Duration
}

// Validate checks that the rule can be enforced.
func (r Rule) Validate() error {
	if r.Name == "" {
		return errors.New("rule name is required")
	}
	if r.Max <= 0 {
		return fmt.Errorf("rule %s: max must be positive", r.Name)
	}
	if r.Window <= 0 {
		return fmt.Errorf("rule %s: window must be positive", r.Name)
	}
	return nil
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is how long until the key may try again. Zero when allowed.
	RetryAfter time.Duration
}

// Limiter admits or refuses one request for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Rule() Rule
}

// RetryAfterSeconds rounds d up to whole seconds, minimum one.
func RetryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
