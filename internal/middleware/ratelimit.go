package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ipRateLimiter hands out one token-bucket limiter per client IP.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiterEntry
	limit    rate.Limit
	burst    int
}

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(limit rate.Limit, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		limiters: make(map[string]*ipLimiterEntry),
		limit:    limit,
		burst:    burst,
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipLimiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now

	// Prune idle entries so the map does not grow without bound.
	if len(l.limiters) > 1000 {
		for ip, e := range l.limiters {
			if now.Sub(e.lastSeen) > 30*time.Minute {
				delete(l.limiters, ip)
			}
		}
	}

	return entry.limiter.Allow()
}

// LoginRateLimit caps login attempts at 10 per 10 minutes per IP. It guards
// the entry point; the account lockout in the auth service guards the
// business logic behind it.
func (m *Middleware) LoginRateLimit() gin.HandlerFunc {
	limiter := newIPRateLimiter(rate.Every(time.Minute), 10)

	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "Demasiados intentos. Intente más tarde.",
			})
			return
		}
		c.Next()
	}
}
