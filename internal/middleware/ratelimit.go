package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/noticias/core/internal/pkg/redis"
	"github.com/noticias/core/internal/pkg/response"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed-window counter shared by every instance.
type RedisLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, max int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, max: max, window: window, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := l.now().UnixNano() / int64(l.window)
	count, err := l.client.IncrWindow(ctx, fmt.Sprintf("noticias:rate_limit:%s:%d", key, bucket), l.window+time.Second)
	if err != nil {
		return true, err
	}
	return count <= int64(l.max), nil
}

// MemoryLimiter keeps one token bucket per key in process. Buckets idle for
// longer than ten windows are dropped.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*memoryBucket
	limit   rate.Limit
	burst   int
	window  time.Duration
	now     func() time.Time
}

type memoryBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*memoryBucket),
		limit:   rate.Limit(float64(max) / window.Seconds()),
		burst:   max,
		window:  window,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &memoryBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	if len(l.buckets) > 1024 {
		l.sweep(now)
	}
	return b.limiter.AllowN(now, 1), nil
}

func (l *MemoryLimiter) sweep(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > 10*l.window {
			delete(l.buckets, k)
		}
	}
}

// RateLimit rejects anonymous callers over the limiter's budget. Limiter
// errors fail open.
func RateLimit(limiter Limiter, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	retryAfter := strconv.Itoa(int(window / time.Second))
	return func(c *gin.Context) {
		if IsAuthenticated(c) {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}
		ok, err := limiter.Allow(c.Request.Context(), ip)
		if err != nil {
			log.Warn("rate limiter unavailable", zap.Error(err))
		}
		if !ok {
			c.Header("Retry-After", retryAfter)
			response.TooManyRequests(c)
			return
		}
		c.Next()
	}
}
