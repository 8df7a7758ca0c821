package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client address.
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	r        rate.Limit
	b        int
	idle     time.Duration
	now      func() time.Time
}

// NewIPRateLimiter creates a limiter whose buckets are forgotten after idle.
func NewIPRateLimiter(r rate.Limit, b int, idle time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		visitors: make(map[string]*visitor),
		r:        r,
		b:        b,
		idle:     idle,
		now:      time.Now,
	}
}

// Limiter returns the bucket for ip, creating it on first use.
func (i *IPRateLimiter) Limiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	v, ok := i.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(i.r, i.b)}
		i.visitors[ip] = v
	}
	v.lastSeen = i.now()
	return v.limiter
}

// Sweep drops buckets idle for longer than the configured window.
func (i *IPRateLimiter) Sweep() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	cutoff := i.now().Add(-i.idle)
	removed := 0
	for ip, v := range i.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(i.visitors, ip)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked addresses.
func (i *IPRateLimiter) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.visitors)
}

// RateLimit rejects requests over the per-IP budget with 429.
func RateLimit(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Limiter(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
