package middlewares

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// WindowStore counts hits in fixed windows. The redis client implements it so
// limits hold across restarts; MemoryWindowStore serves single-process setups
// and tests.
type WindowStore interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int, remaining time.Duration, err error)
}

type RateLimiter struct {
	store  WindowStore
	window time.Duration
	limit  int
	prefix string
}

func NewRateLimiter(store WindowStore, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		store:  store,
		limit:  limit,
		window: window,
		prefix: prefix,
	}
}

// RateLimiterMiddleware enforces the limit for a derived key. A store failure
// lets the request through.
func (rl *RateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit <= 0 {
			c.Next()
			return
		}

		key := keyFn(c)

		if key == "" {
			key = clientIP(c)
		}

		count, remaining, err := rl.store.Hit(c.Request.Context(), "ratelimit:"+rl.prefix+":"+key, rl.window)
		if err != nil {
			slog.WarnContext(c.Request.Context(), "rate limiter store failed", "err", err)
			c.Next()
			return
		}

		if count > rl.limit {
			retryAfter := int(remaining.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			abortWith(c, http.StatusTooManyRequests, "RateLimited", "Too many requests. Please try again shortly.")
			return
		}

		c.Next()
	}
}

type MemoryWindowStore struct {
	mu      sync.Mutex
	now     func() time.Time
	clients map[string]*clientBucket
}

type clientBucket struct {
	count     int
	windowEnd time.Time
}

func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{
		now:     time.Now,
		clients: make(map[string]*clientBucket),
	}
}

func (s *MemoryWindowStore) Hit(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.clients[key]
	if !ok || !now.Before(b.windowEnd) {
		b = &clientBucket{windowEnd: now.Add(window)}
		s.clients[key] = b
	}
	b.count++

	return b.count, b.windowEnd.Sub(now), nil
}

// for unauthenticated endpoints: rate limit by IP
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	// ClientIP respects X-Forwarded-For / X-Real-IP when trusted proxies are set
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}
