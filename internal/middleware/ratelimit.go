// ratelimit.go provides Gin middleware enforcing request rate limits, returning
// 429 responses when the threshold is exceeded.
//
// Two backends implement the Limiter interface: a Redis-backed GCRA limiter
// (redis_rate) shared across replicas, and an in-process token bucket used when
// Redis is not configured. The middlewares pick keys at two granularities:
// per-IP for the public auth endpoints, and per-access-key with the key's own
// stored hourly quota for tenant application traffic.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// Quota is a request allowance over a period.
type Quota struct {
	Rate   int
	Burst  int
	Period time.Duration
}

// PerMinute returns a quota of n requests per minute with a matching burst.
func PerMinute(n int) Quota {
	return Quota{Rate: n, Burst: n, Period: time.Minute}
}

// PerHour returns a quota of n requests per hour. Burst is capped so a caller
// cannot spend a large hourly quota in one instant.
func PerHour(n int) Quota {
	burst := n / 10
	if burst < 1 {
		burst = 1
	}
	return Quota{Rate: n, Burst: burst, Period: time.Hour}
}

// Result reports the outcome of a limiter check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter checks whether a request under the given key fits its quota.
type Limiter interface {
	Allow(ctx context.Context, key string, quota Quota) (*Result, error)
	Close()
}

// NewLimiter returns a Redis-backed limiter when a client is supplied, and an
// in-process one otherwise.
func NewLimiter(rdb *redis.Client) Limiter {
	if rdb != nil {
		return &redisLimiter{limiter: redis_rate.NewLimiter(rdb)}
	}
	return newLocalLimiter()
}

type redisLimiter struct {
	limiter *redis_rate.Limiter
}

func (rl *redisLimiter) Allow(ctx context.Context, key string, quota Quota) (*Result, error) {
	res, err := rl.limiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   quota.Rate,
		Burst:  quota.Burst,
		Period: quota.Period,
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		RetryAfter: res.RetryAfter,
	}, nil
}

func (rl *redisLimiter) Close() {}

// localLimiter is a token-bucket fallback for single-instance deployments.
// Each key gets its own bucket refilled continuously at the quota rate.
type localLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	stopCh  chan struct{}
}

type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

func newLocalLimiter() *localLimiter {
	ll := &localLimiter{
		buckets: make(map[string]*bucket),
		stopCh:  make(chan struct{}),
	}
	go ll.cleanup()
	return ll
}

// cleanup drops buckets idle for more than an hour so the map stays bounded.
func (ll *localLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ll.mu.Lock()
			now := time.Now()
			for key, b := range ll.buckets {
				if now.Sub(b.lastUpdate) > time.Hour {
					delete(ll.buckets, key)
				}
			}
			ll.mu.Unlock()
		case <-ll.stopCh:
			return
		}
	}
}

func (ll *localLimiter) Allow(_ context.Context, key string, quota Quota) (*Result, error) {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	now := time.Now()
	tokensPerSecond := float64(quota.Rate) / quota.Period.Seconds()

	b, exists := ll.buckets[key]
	if !exists {
		b = &bucket{tokens: float64(quota.Burst), lastUpdate: now}
		ll.buckets[key] = b
	} else {
		elapsed := now.Sub(b.lastUpdate).Seconds()
		b.tokens = minFloat(float64(quota.Burst), b.tokens+elapsed*tokensPerSecond)
		b.lastUpdate = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return &Result{Allowed: true, Remaining: int(b.tokens)}, nil
	}

	retryAfter := time.Duration((1 - b.tokens) / tokensPerSecond * float64(time.Second))
	return &Result{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
}

func (ll *localLimiter) Close() {
	close(ll.stopCh)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// tooManyRequests writes the 429 response with Retry-After.
func tooManyRequests(c *gin.Context, res *Result) {
	retryAfter := int(res.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.Header("X-RateLimit-Remaining", "0")
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"success":     false,
		"message":     "Rate limit exceeded",
		"retry_after": retryAfter,
	})
}

// IPRateLimitMiddleware limits requests per client IP. Used on the public
// auth endpoints to slow credential stuffing. The limiter failing open on a
// backend error keeps a Redis outage from taking logins down with it.
func IPRateLimitMiddleware(limiter Limiter, quota Quota) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = c.Request.RemoteAddr
		}

		res, err := limiter.Allow(c.Request.Context(), "ip:"+ip, quota)
		if err != nil {
			c.Next()
			return
		}
		if !res.Allowed {
			tooManyRequests(c, res)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(quota.Rate))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Next()
	}
}

// AccessKeyRateLimitMiddleware limits requests per access key using the hourly
// quota stored on the key itself. Must run after AccessKeyMiddleware.
func AccessKeyRateLimitMiddleware(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := AccessKeyFromContext(c)
		if !ok {
			unauthorized(c, "Invalid access key")
			return
		}

		quota := PerHour(key.RateLimit)
		res, err := limiter.Allow(c.Request.Context(), "apikey:"+key.AccessKeyID, quota)
		if err != nil {
			c.Next()
			return
		}
		if !res.Allowed {
			tooManyRequests(c, res)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(key.RateLimit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Next()
	}
}
