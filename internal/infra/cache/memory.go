// Package cache holds the rate cache backends.
package cache

import (
	"context"
	"sync"
	"time"

	"sats_display/internal/domain"
)

// MemoryRateCache keeps rates in process, keyed by currency pair.
type MemoryRateCache struct {
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry
	now     func() time.Time
}

// NewMemoryRateCache creates an empty cache using the wall clock.
func NewMemoryRateCache() *MemoryRateCache {
	return NewMemoryRateCacheWithClock(time.Now)
}

// NewMemoryRateCacheWithClock is NewMemoryRateCache with an injected clock.
func NewMemoryRateCacheWithClock(now func() time.Time) *MemoryRateCache {
	return &MemoryRateCache{
		entries: make(map[string]domain.CacheEntry),
		now:     now,
	}
}

// Get returns the cached rate while it is unexpired.
func (c *MemoryRateCache) Get(_ context.Context, pair domain.CurrencyPair) (domain.ExchangeRate, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[pair.String()]
	c.mu.RUnlock()

	if !ok || !entry.Valid(c.now()) {
		return domain.ExchangeRate{}, false, nil
	}
	return entry.Rate, true, nil
}

// Set stores a rate for ttl.
func (c *MemoryRateCache) Set(_ context.Context, rate domain.ExchangeRate, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[rate.Pair.String()] = domain.CacheEntry{
		Rate:      rate,
		ExpiresAt: c.now().Add(ttl),
	}
	c.mu.Unlock()
	return nil
}

// Clear drops every entry.
func (c *MemoryRateCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]domain.CacheEntry)
	c.mu.Unlock()
	return nil
}
