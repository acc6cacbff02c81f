// Package cache provides the TTL cache used by outbound integrations.
//
// Two backends implement Cache: an in-process map (the default) and a Redis
// store shared between API instances and the price warmer. Both report an
// entry as absent once now - storedAt >= TTL.
package cache

import (
	"context"
	"strings"
	"time"
)

// DefaultTTL is the lifetime of every cache entry unless configured otherwise.
const DefaultTTL = 5 * time.Minute

// Cache is a key/value store with a uniform entry lifetime.
type Cache interface {
	// Get decodes the entry for key into dest. found is false when the key is
	// missing or the entry has expired.
	Get(ctx context.Context, key string, dest interface{}) (found bool, err error)
	// Set stores value under key, replacing any previous entry.
	Set(ctx context.Context, key string, value interface{}) error
	// Clear drops every entry.
	Clear(ctx context.Context) error
}

// Key joins parts into a cache key.
// Format: <part1>:<part2>:...
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
