package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// idleBucketTTL drops buckets for clients that have gone quiet.
const idleBucketTTL = 10 * time.Minute

// TokenBucket is an in-memory per-client rate limiter. Idle buckets expire from the cache.
type TokenBucket struct {
	capacity int
	rate     int
	now      func() time.Time

	mu      sync.Mutex
	buckets *cache.Cache
}

type bucket struct {
	tokens int
	last   time.Time
}

// NewTokenBucket creates limiter with capacity tokens and rate per minute.
// A non-positive rate disables limiting.
func NewTokenBucket(capacity, perMinute int) *TokenBucket {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &TokenBucket{
		capacity: capacity,
		rate:     perMinute,
		now:      time.Now,
		buckets:  cache.New(idleBucketTTL, idleBucketTTL/2),
	}
}

// GinMiddleware returns gin handler enforcing per-IP limits.
func (l *TokenBucket) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.Allow(ip) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit"})
			return
		}
		c.Next()
	}
}

// Allow takes a token for key if one is available.
func (l *TokenBucket) Allow(key string) bool {
	if l.rate <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.buckets.Get(key)
	if !ok {
		l.buckets.SetDefault(key, &bucket{tokens: l.capacity - 1, last: now})
		return true
	}
	b := v.(*bucket)
	refill := int(now.Sub(b.last).Minutes() * float64(l.rate))
	if refill > 0 {
		b.tokens += refill
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	l.buckets.SetDefault(key, b)
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}
