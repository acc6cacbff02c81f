package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/wallet-insights/internal/metrics"
)

// Clock returns the current time
type Clock func() time.Time

type memoryEntry struct {
	data     []byte
	storedAt time.Time
}

// MemoryCache is an in-process TTL map. Values are stored JSON-encoded so a
// caller never shares mutable state with the cache. Expired entries stay
// until overwritten or cleared.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     Clock
}

// MemoryOption configures a MemoryCache
type MemoryOption func(*MemoryCache)

// WithClock replaces the time source
func WithClock(clock Clock) MemoryOption {
	return func(c *MemoryCache) {
		c.now = clock
	}
}

// NewMemoryCache creates an empty cache. A non-positive ttl falls back to DefaultTTL.
func NewMemoryCache(ttl time.Duration, opts ...MemoryOption) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get implements Cache
func (c *MemoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(entry.storedAt) >= c.ttl {
		metrics.CacheRequests.WithLabelValues("memory", "miss").Inc()
		return false, nil
	}

	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	metrics.CacheRequests.WithLabelValues("memory", "hit").Inc()
	return true, nil
}

// Set implements Cache
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	c.mu.Lock()
	c.entries[key] = memoryEntry{data: data, storedAt: c.now()}
	c.mu.Unlock()
	return nil
}

// Clear implements Cache
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
