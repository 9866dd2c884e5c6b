package interfaces

import (
	"context"
	"time"
)

// CacheStats tracks result-cache performance counters.
type CacheStats struct {
	Hits      int64     `json:"hits"`
	Misses    int64     `json:"misses"`
	Sets      int64     `json:"sets"`
	Evictions int64     `json:"evictions"`
	Entries   int64     `json:"entries"`
	LastSweep time.Time `json:"last_sweep"`
}

// HitRate returns the fraction of lookups served from cache.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// AnalysisCache is the TTL cache consulted before the reconciliation
// pipeline runs. Keys are built from (ticker, analysis type, scenario when
// present); values are JSON-encoded result envelopes. Implementations must
// be safe for concurrent use. A Get miss is (nil, false, nil); errors are
// reserved for backend failures.
type AnalysisCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
	Clear(ctx context.Context) error
	GetStats() CacheStats
	LogStats()
	Close() error
}
