package geo

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"sentinel/internal/metrics"
	"sentinel/pkg/models"
)

// Cache memoizes lookups by address across alert-set changes, so each
// address is queried at most once per TTL. Misses are cached too.
type Cache struct {
	mu      sync.Mutex
	lookup  Lookup
	ttl     time.Duration
	entries map[string]cacheEntry
	metrics *metrics.Metrics
	now     func() time.Time
}

type cacheEntry struct {
	point    models.GeoPoint
	found    bool
	storedAt time.Time
}

// NewCache wraps lookup. A non-positive ttl keeps entries for an hour.
func NewCache(lookup Lookup, ttl time.Duration, m *metrics.Metrics) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		lookup:  lookup,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		metrics: m,
		now:     time.Now,
	}
}

// Resolve returns coordinates for every resolvable address in addrs, issuing
// at most one batched lookup for addresses not already cached. On lookup
// failure it returns the cached subset together with the error.
func (c *Cache) Resolve(ctx context.Context, addrs []string) (map[string]models.GeoPoint, error) {
	out := make(map[string]models.GeoPoint, len(addrs))
	var misses []string

	c.mu.Lock()
	now := c.now()
	for _, addr := range addrs {
		if net.ParseIP(addr) == nil {
			continue
		}
		entry, ok := c.entries[addr]
		if ok && now.Sub(entry.storedAt) < c.ttl {
			if entry.found {
				out[addr] = entry.point
			}
			if c.metrics != nil {
				c.metrics.GeoCacheHits.Inc()
			}
			continue
		}
		misses = append(misses, addr)
	}
	c.mu.Unlock()

	if len(misses) == 0 {
		return out, nil
	}

	points, err := c.lookup.Lookup(ctx, misses)
	if err != nil {
		if c.metrics != nil {
			c.metrics.GeoLookups.WithLabelValues("error").Inc()
		}
		return out, fmt.Errorf("geo lookup for %d addresses: %w", len(misses), err)
	}
	if c.metrics != nil {
		c.metrics.GeoLookups.WithLabelValues("ok").Inc()
	}

	resolved := make(map[string]models.GeoPoint, len(points))
	for _, p := range points {
		resolved[p.Address] = p
	}

	c.mu.Lock()
	storedAt := c.now()
	for _, addr := range misses {
		p, found := resolved[addr]
		c.entries[addr] = cacheEntry{point: p, found: found, storedAt: storedAt}
		if found {
			out[addr] = p
		}
	}
	c.mu.Unlock()
	return out, nil
}

// Purge drops expired entries.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for addr, entry := range c.entries {
		if now.Sub(entry.storedAt) >= c.ttl {
			delete(c.entries, addr)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached addresses, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
