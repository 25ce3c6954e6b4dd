package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimiter is a sliding-window limiter keyed by session, or client IP for
// requests without one.
type RateLimiter struct {
	clients map[string]*clientLimit
	mu      sync.Mutex
	logger  *zap.Logger

	maxRequests int
	window      time.Duration
	now         func() time.Time
}

type clientLimit struct {
	requests []time.Time
	lastSeen time.Time
}

func NewRateLimiter(logger *zap.Logger, maxRequests int, window time.Duration) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		clients:     make(map[string]*clientLimit),
		logger:      logger,
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

func clientID(c *gin.Context) string {
	if id := SessionID(c); id != "" {
		return id
	}
	return c.ClientIP()
}

// Allow records a request of id and reports whether it is within the limit.
func (rl *RateLimiter) Allow(id string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.evict(now)

	client, ok := rl.clients[id]
	if !ok {
		client = &clientLimit{requests: make([]time.Time, 0, rl.maxRequests)}
		rl.clients[id] = client
	}
	client.lastSeen = now

	cutoff := now.Add(-rl.window)
	valid := client.requests[:0]
	for _, t := range client.requests {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	client.requests = valid

	if len(client.requests) >= rl.maxRequests {
		rl.logger.Warn("Rate limit exceeded",
			zap.String("client_id", id),
			zap.Int("requests", len(client.requests)),
			zap.Int("max_requests", rl.maxRequests),
			zap.Duration("window", rl.window))
		return false
	}
	client.requests = append(client.requests, now)
	return true
}

// evict drops clients idle for two windows. Caller holds rl.mu.
func (rl *RateLimiter) evict(now time.Time) {
	for id, client := range rl.clients {
		if now.Sub(client.lastSeen) > 2*rl.window {
			delete(rl.clients, id)
		}
	}
}

// RateLimitMiddleware rejects requests over the limit with 429.
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(clientID(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}
		c.Next()
	}
}
