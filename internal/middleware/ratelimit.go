package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/quantfold/equilens-ai-go/internal/config"
)

const limiterIdleEviction = 10 * time.Minute

// RateLimiter applies a per-client token bucket keyed by client IP. Idle
// buckets are evicted to bound memory.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	rps      rate.Limit
	burst    int
	lastSeen func() time.Time
}

type clientLimiter struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewRateLimiter creates a limiter from config. Zero values fall back to
// 10 rps with a burst of 20.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 20
	}
	return &RateLimiter{
		clients:  make(map[string]*clientLimiter),
		rps:      rate.Limit(rps),
		burst:    burst,
		lastSeen: time.Now,
	}
}

// Limit is the gin middleware entry point.
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Allow consumes one token for the client, creating its bucket on first
// sight.
func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mu.Lock()
	now := rl.lastSeen()

	entry, ok := rl.clients[clientID]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[clientID] = entry
	}
	entry.seen = now

	for id, e := range rl.clients {
		if now.Sub(e.seen) > limiterIdleEviction {
			delete(rl.clients, id)
		}
	}
	rl.mu.Unlock()

	return entry.limiter.Allow()
}

// ClientCount returns the number of tracked buckets.
func (rl *RateLimiter) ClientCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}
