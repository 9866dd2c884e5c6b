package cache

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/quantfold/equilens-ai-go/pkg/interfaces"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryAnalysisCache is the in-process TTL fallback used when Redis is
// unavailable and in tests. Expired entries are dropped lazily on read and
// in bulk by SweepExpired, which the cleanup service runs on schedule.
type MemoryAnalysisCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	stats   interfaces.CacheStats
}

// NewMemoryAnalysisCache creates an empty in-memory analysis cache.
func NewMemoryAnalysisCache() *MemoryAnalysisCache {
	return &MemoryAnalysisCache{
		entries: make(map[string]memoryEntry),
	}
}

// Get retrieves a cached envelope, dropping it if expired.
func (c *MemoryAnalysisCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false, nil
	}
	if entry.expired(time.Now()) {
		delete(c.entries, key)
		c.stats.Misses++
		c.stats.Evictions++
		return nil, false, nil
	}

	c.stats.Hits++
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true, nil
}

// Set stores an envelope with the given TTL. A non-positive TTL means no
// expiry.
func (c *MemoryAnalysisCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	entry := memoryEntry{value: stored}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.stats.Sets++
	c.mu.Unlock()
	return nil
}

// Delete removes one key.
func (c *MemoryAnalysisCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// DeletePrefix removes every key under a prefix and returns the count.
func (c *MemoryAnalysisCache) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int64
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	c.stats.Evictions += removed
	return removed, nil
}

// Clear removes all entries.
func (c *MemoryAnalysisCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}

// SweepExpired removes every expired entry and returns the count.
func (c *MemoryAnalysisCache) SweepExpired() int64 {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int64
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	c.stats.Evictions += removed
	c.stats.LastSweep = now
	return removed
}

// GetStats returns current cache statistics.
func (c *MemoryAnalysisCache) GetStats() interfaces.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := c.stats
	stats.Entries = int64(len(c.entries))
	return stats
}

// LogStats logs current cache performance statistics.
func (c *MemoryAnalysisCache) LogStats() {
	stats := c.GetStats()
	log.Printf("Memory Cache Stats - Entries: %d, Hits: %d, Misses: %d, Sets: %d, Hit Rate: %.2f%%",
		stats.Entries, stats.Hits, stats.Misses, stats.Sets, stats.HitRate()*100)
}

// Close drops all entries.
func (c *MemoryAnalysisCache) Close() error {
	c.mu.Lock()
	c.entries = nil
	c.mu.Unlock()
	return nil
}

var _ interfaces.AnalysisCache = (*MemoryAnalysisCache)(nil)
