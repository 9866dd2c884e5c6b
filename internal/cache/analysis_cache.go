package cache

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantfold/equilens-ai-go/internal/models"
	"github.com/quantfold/equilens-ai-go/pkg/interfaces"
)

// Key builders for the analysis result cache. Keys carry the full request
// identity (ticker, analysis type, scenario when present) so requests that
// differ only in type never share an entry.
func AnalysisKey(ticker string, analysisType models.AnalysisType) string {
	return fmt.Sprintf("analysis:%s:%s", analysisType, strings.ToUpper(ticker))
}

func ScenarioKey(ticker string, analysisType models.AnalysisType, scenario models.ScenarioKey) string {
	return fmt.Sprintf("analysis:%s:%s:%s", analysisType, strings.ToUpper(ticker), scenario)
}

func SignalsKey(ticker string) string {
	return fmt.Sprintf("signals:%s", strings.ToUpper(ticker))
}

// TickerPrefix matches every cache entry for a ticker, for invalidation.
func TickerPrefix(ticker string) []string {
	upper := strings.ToUpper(ticker)
	return []string{
		fmt.Sprintf("analysis:forecast:%s", upper),
		fmt.Sprintf("analysis:fundamentals:%s", upper),
		fmt.Sprintf("analysis:risk:%s", upper),
		fmt.Sprintf("analysis:full:%s", upper),
		fmt.Sprintf("analysis:scenario:%s", upper),
		fmt.Sprintf("signals:%s", upper),
	}
}

// RedisAnalysisCache implements the analysis result cache on Redis. Values
// are JSON-encoded result envelopes; expiry is delegated to Redis TTLs.
type RedisAnalysisCache struct {
	client redis.Cmdable
	prefix string

	mu    sync.RWMutex
	stats interfaces.CacheStats
}

// NewRedisAnalysisCache creates a Redis-backed analysis cache.
func NewRedisAnalysisCache(client redis.Cmdable) *RedisAnalysisCache {
	return &RedisAnalysisCache{
		client: client,
		prefix: "equilens:",
	}
}

// Get retrieves a cached envelope. A miss is (nil, false, nil); errors are
// reserved for Redis failures.
func (c *RedisAnalysisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		c.mu.Lock()
		c.stats.Misses++
		c.mu.Unlock()
		return nil, false, nil
	}
	if err != nil {
		c.mu.Lock()
		c.stats.Misses++
		c.mu.Unlock()
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()
	return val, true, nil
}

// Set stores an envelope under the key with the given TTL.
func (c *RedisAnalysisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	c.mu.Lock()
	c.stats.Sets++
	c.mu.Unlock()
	return nil
}

// Delete removes one key.
func (c *RedisAnalysisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key under a prefix and returns the count.
func (c *RedisAnalysisCache) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	pattern := c.prefix + prefix + "*"

	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("error scanning cache keys: %w", err)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("error deleting cache keys: %w", err)
	}

	c.mu.Lock()
	c.stats.Evictions += int64(len(keys))
	c.mu.Unlock()
	return int64(len(keys)), nil
}

// Clear removes every entry this cache owns.
func (c *RedisAnalysisCache) Clear(ctx context.Context) error {
	n, err := c.DeletePrefix(ctx, "")
	if err != nil {
		return err
	}
	log.Printf("Cleared %d analysis cache entries", n)
	return nil
}

// GetStats returns current cache statistics.
func (c *RedisAnalysisCache) GetStats() interfaces.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// LogStats logs current cache performance statistics.
func (c *RedisAnalysisCache) LogStats() {
	stats := c.GetStats()
	log.Printf("Analysis Cache Stats - Hits: %d, Misses: %d, Sets: %d, Hit Rate: %.2f%%",
		stats.Hits, stats.Misses, stats.Sets, stats.HitRate()*100)
}

// Close is a no-op; the Redis client is owned by the caller.
func (c *RedisAnalysisCache) Close() error {
	return nil
}

var _ interfaces.AnalysisCache = (*RedisAnalysisCache)(nil)
