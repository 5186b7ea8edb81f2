package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/exstem-quiz/internal/response"
)

// RateLimiter implements a token bucket per client key. Buckets refill
// continuously at rate tokens per interval, capped at rate.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // Tokens per interval
	interval time.Duration // Refill interval
	keyFunc  func(c *gin.Context) string
	now      func() time.Time
}

type visitor struct {
	tokens   float64
	lastSeen time.Time
}

// NewRateLimiter creates a RateLimiter keyed by client IP
// (e.g., 30 submissions per minute).
func NewRateLimiter(rate int, interval time.Duration) *RateLimiter {
	if rate <= 0 {
		rate = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		interval: interval,
		keyFunc:  func(c *gin.Context) string { return c.ClientIP() },
		now:      time.Now,
	}
}

// StartCleanup evicts idle buckets every minute until ctx is cancelled.
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.cleanup()
			}
		}
	}()
}

// Middleware returns a Gin middleware that rate-limits requests.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(rl.keyFunc(c)) {
			c.Header("Retry-After", retryAfter(rl.interval, rl.rate))
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(key string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{tokens: float64(rl.rate), lastSeen: now}
		rl.visitors[key] = v
	}

	elapsed := now.Sub(v.lastSeen)
	if elapsed > 0 {
		v.tokens += float64(rl.rate) * elapsed.Seconds() / rl.interval.Seconds()
		if v.tokens > float64(rl.rate) {
			v.tokens = float64(rl.rate)
		}
	}
	v.lastSeen = now

	if v.tokens < 1 {
		return false
	}
	v.tokens--
	return true
}

func (rl *RateLimiter) cleanup() {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > 3*rl.interval {
			delete(rl.visitors, key)
		}
	}
}

// retryAfter is the whole number of seconds until one token is available.
func retryAfter(interval time.Duration, rate int) string {
	secs := int((interval/time.Duration(rate) + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
