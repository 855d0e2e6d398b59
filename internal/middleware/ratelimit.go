package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/voxchat/backend/internal/cache"
)

// RateLimitConfig is a request budget per client IP
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// DefaultRateLimitConfig covers the general API surface
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Limit: 100, Window: time.Minute}
}

// AuthRateLimitConfig is stricter: registration and token endpoints are the
// usual brute-force target.
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Limit: 10, Window: time.Minute}
}

// VoiceUploadRateLimitConfig bounds attachment and voice note uploads
func VoiceUploadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Limit: 20, Window: time.Minute}
}

// AutocompleteRateLimitConfig bounds mention and command autocomplete, which
// clients fire on every keystroke.
func AutocompleteRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Limit: 100, Window: time.Minute}
}

// bucket is one client's token budget
type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// ipLimiter is the in-memory token bucket limiter, used when Redis is not
// configured. Per-process only; multi-instance deployments get the Redis
// limiter instead.
type ipLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	capacity   float64
	refillRate float64 // tokens per second
}

func newIPLimiter(cfg RateLimitConfig) *ipLimiter {
	l := &ipLimiter{
		buckets:    make(map[string]*bucket),
		capacity:   float64(cfg.Limit),
		refillRate: float64(cfg.Limit) / cfg.Window.Seconds(),
	}
	go l.evictLoop()
	return l
}

// take spends one token for ip. When the bucket is empty it returns false
// plus the seconds until a token becomes available.
func (l *ipLimiter) take(ip string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{tokens: l.capacity, lastRefill: now}
		l.buckets[ip] = b
	}

	b.tokens = math.Min(l.capacity, b.tokens+now.Sub(b.lastRefill).Seconds()*l.refillRate)
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	return false, int(math.Ceil((1 - b.tokens) / l.refillRate))
}

// evictLoop drops buckets that have refilled completely; they are
// indistinguishable from fresh ones, so recreating them on demand is free.
func (l *ipLimiter) evictLoop() {
	for range time.Tick(time.Minute) {
		l.mu.Lock()
		now := time.Now()
		for ip, b := range l.buckets {
			refilled := b.tokens + now.Sub(b.lastRefill).Seconds()*l.refillRate
			if refilled >= l.capacity {
				delete(l.buckets, ip)
			}
		}
		l.mu.Unlock()
	}
}

// NewRateLimiter returns an in-memory per-IP rate limiting middleware
func NewRateLimiter(cfg RateLimitConfig) gin.HandlerFunc {
	limiter := newIPLimiter(cfg)

	return func(c *gin.Context) {
		allowed, retryAfter := limiter.take(c.ClientIP())
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			RecordRateLimitExceeded(c.FullPath(), c.Request.Method)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}
		c.Next()
	}
}

// smartRateLimit prefers the Redis limiter so limits hold across instances,
// falling back to the in-memory one when Redis is not configured.
func smartRateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	distributed := RedisRateLimitMiddleware(cfg.Limit, cfg.Window)
	local := NewRateLimiter(cfg)

	return func(c *gin.Context) {
		if cache.GetRedisClient() != nil {
			distributed(c)
			return
		}
		local(c)
	}
}

// RateLimitSmartDefault rate limits the general API surface
func RateLimitSmartDefault() gin.HandlerFunc {
	return smartRateLimit(DefaultRateLimitConfig())
}

// RateLimitSmartAuth rate limits auth endpoints
func RateLimitSmartAuth() gin.HandlerFunc {
	return smartRateLimit(AuthRateLimitConfig())
}

// RateLimitSmartVoiceUpload rate limits attachment and voice note uploads
func RateLimitSmartVoiceUpload() gin.HandlerFunc {
	return smartRateLimit(VoiceUploadRateLimitConfig())
}

// RateLimitSmartAutocomplete rate limits autocomplete endpoints
func RateLimitSmartAutocomplete() gin.HandlerFunc {
	return smartRateLimit(AutocompleteRateLimitConfig())
}
