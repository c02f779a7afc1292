package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"github.com/pageza/recipebox/internal/logger"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Window is the time window for rate limiting
	Window time.Duration
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Key prefix for counter keys
	KeyPrefix string
}

// Counter increments a per-key hit count that expires after window.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int, error)
}

// RedisCounter shares counts between processes through Redis.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter wraps client.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int, error) {
	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}

// MemoryCounter keeps counts in process. Keys expire one window after their
// last hit.
type MemoryCounter struct {
	mu     sync.Mutex
	counts *expirable.LRU[string, int]
}

// NewMemoryCounter tracks up to size keys.
func NewMemoryCounter(size int, window time.Duration) *MemoryCounter {
	return &MemoryCounter{counts: expirable.NewLRU[string, int](size, nil, window)}
}

func (m *MemoryCounter) Incr(_ context.Context, key string, _ time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := m.counts.Get(key)
	n++
	m.counts.Add(key, n)
	return n, nil
}

// RateLimiter caps requests per client in fixed windows.
type RateLimiter struct {
	counter Counter
	config  RateLimitConfig
	now     func() time.Time
}

// NewRateLimiter creates a new rate limiter instance
func NewRateLimiter(counter Counter, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{counter: counter, config: config, now: time.Now}
}

// NewExtractionRateLimiter limits model-backed extractions to limit per hour
// per client address.
func NewExtractionRateLimiter(counter Counter, limit int) *RateLimiter {
	return NewRateLimiter(counter, RateLimitConfig{
		Window:    time.Hour,
		Limit:     limit,
		KeyPrefix: "recipebox:rate_limit:extraction",
	})
}

// IsAllowed counts a request from client.
// Returns: allowed, remaining requests, reset time, error
func (rl *RateLimiter) IsAllowed(ctx context.Context, client string) (bool, int, time.Time, error) {
	windowStart := rl.now().Truncate(rl.config.Window)
	key := fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, client, windowStart.Unix())

	count, err := rl.counter.Incr(ctx, key, rl.config.Window)
	if err != nil {
		return false, 0, time.Time{}, err
	}

	remaining := rl.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= rl.config.Limit, remaining, windowStart.Add(rl.config.Window), nil
}

// Middleware returns a Gin middleware that enforces the limit per client IP.
// Counter failures let the request through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, resetTime, err := rl.IsAllowed(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.FromContext(c.Request.Context()).Warn("Rate limit check failed", "error", err)
			c.Header("X-RateLimit-Error", "rate limit check failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(resetTime.Sub(rl.now()).Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: fmt.Sprintf("Too many extractions: the limit is %d per %v.", rl.config.Limit, rl.config.Window),
				Kind:  "rate_limited",
			})
			return
		}

		c.Next()
	}
}
