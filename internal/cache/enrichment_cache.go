package cache

import (
	"sync"
	"time"

	"github.com/epeers/mfenrich/internal/models"
)

// EnrichmentCache is an in-memory TTL cache of enrichment results keyed by
// normalized fund name. Failed enrichments are cached too (as a nil fund) so
// a fund that could not be resolved is not retried on every upload within the
// TTL window.
type EnrichmentCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	fund      *models.EnrichedFund
	fetchedAt time.Time
}

// NewEnrichmentCache creates a cache whose entries expire after ttl.
func NewEnrichmentCache(ttl time.Duration) *EnrichmentCache {
	return &EnrichmentCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// Get retrieves a fresh entry. The second return distinguishes a cache miss
// from a cached failure: (nil, true) means enrichment already failed for this
// key and should not be reattempted yet.
func (c *EnrichmentCache) Get(key string) (*models.EnrichedFund, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}
	if time.Since(entry.fetchedAt) > c.ttl {
		return nil, false
	}
	return entry.fund, true
}

// Set stores a result. fund may be nil to record a failed enrichment.
func (c *EnrichmentCache) Set(key string, fund *models.EnrichedFund) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		fund:      fund,
		fetchedAt: time.Now(),
	}
}

// Invalidate removes a single entry.
func (c *EnrichmentCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Sweep drops every expired entry and returns how many were removed.
func (c *EnrichmentCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if time.Since(entry.fetchedAt) > c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries, expired or not.
func (c *EnrichmentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Clear removes all cached data.
func (c *EnrichmentCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
}
