package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"natours/errs"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var ErrTooManyRequests = errs.New("Too many requests from this IP, please try again in an hour!", http.StatusTooManyRequests)

// RateResult describes the window a request was counted in.
type RateResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter counts requests per key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string) (RateResult, error)
}

// MemoryLimiter keeps counters in process. Used when Redis is not configured.
type MemoryLimiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	max      int
	period   time.Duration
	now      func() time.Time
	stopChan chan struct{}
}

type window struct {
	count int
	reset time.Time
}

func NewMemoryLimiter(max int, period time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		windows:  make(map[string]*window),
		max:      max,
		period:   period,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Stop ends the cleanup goroutine.
func (l *MemoryLimiter) Stop() {
	close(l.stopChan)
}

func (l *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanupExpired()
		case <-l.stopChan:
			return
		}
	}
}

func (l *MemoryLimiter) cleanupExpired() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, w := range l.windows {
		if !now.Before(w.reset) {
			delete(l.windows, key)
		}
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (RateResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.reset) {
		w = &window{reset: now.Add(l.period)}
		l.windows[key] = w
	}
	w.count++
	return result(w.count, l.max, w.reset), nil
}

// RedisLimiter shares counters between instances using INCR on a key that
// expires with the window.
type RedisLimiter struct {
	client *redis.Client
	max    int
	period time.Duration
}

func NewRedisLimiter(client *redis.Client, max int, period time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, max: max, period: period}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (RateResult, error) {
	key = "ratelimit:" + key

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return RateResult{}, err
	}
	if count == 1 {
		if err := l.client.PExpire(ctx, key, l.period).Err(); err != nil {
			return RateResult{}, err
		}
	}

	ttl, err := l.client.PTTL(ctx, key).Result()
	if err != nil {
		return RateResult{}, err
	}
	if ttl < 0 {
		// key lost its expiry, e.g. after a failed PEXPIRE
		ttl = l.period
		l.client.PExpire(ctx, key, ttl)
	}
	return result(int(count), l.max, time.Now().Add(ttl)), nil
}

func result(count, max int, reset time.Time) RateResult {
	remaining := max - count
	if remaining < 0 {
		remaining = 0
	}
	return RateResult{Allowed: count <= max, Limit: max, Remaining: remaining, Reset: reset}
}

// RateLimit counts requests per client IP. When the limiter itself fails the
// request is let through.
func RateLimit(limiter Limiter, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Warn().Err(err).Msg("rate limiter unavailable")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))

		if !res.Allowed {
			retryAfter := int(time.Until(res.Reset).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			abortWith(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
