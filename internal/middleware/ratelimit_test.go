package middleware

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/service-auth/service-auth/internal/db/models"
)

func TestLocalLimiterAllowsWithinBurst(t *testing.T) {
	ll := newLocalLimiter()
	defer ll.Close()

	quota := Quota{Rate: 60, Burst: 5, Period: time.Minute}
	for i := 0; i < 5; i++ {
		res, err := ll.Allow(context.Background(), "k", quota)
		if err != nil {
			t.Fatalf("Allow() error: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d within burst was denied", i+1)
		}
	}

	res, _ := ll.Allow(context.Background(), "k", quota)
	if res.Allowed {
		t.Fatal("request beyond burst was allowed")
	}
	if res.RetryAfter <= 0 {
		t.Errorf("expected positive RetryAfter, got %v", res.RetryAfter)
	}
}

func TestLocalLimiterKeysAreIndependent(t *testing.T) {
	ll := newLocalLimiter()
	defer ll.Close()

	quota := Quota{Rate: 60, Burst: 1, Period: time.Minute}
	if res, _ := ll.Allow(context.Background(), "a", quota); !res.Allowed {
		t.Fatal("first request for key a denied")
	}
	if res, _ := ll.Allow(context.Background(), "a", quota); res.Allowed {
		t.Fatal("second request for key a allowed")
	}
	if res, _ := ll.Allow(context.Background(), "b", quota); !res.Allowed {
		t.Fatal("key b should not share key a's bucket")
	}
}

func TestLocalLimiterRefills(t *testing.T) {
	ll := newLocalLimiter()
	defer ll.Close()

	// 100 tokens/sec so the bucket visibly refills within the test.
	quota := Quota{Rate: 100, Burst: 1, Period: time.Second}
	if res, _ := ll.Allow(context.Background(), "k", quota); !res.Allowed {
		t.Fatal("first request denied")
	}
	if res, _ := ll.Allow(context.Background(), "k", quota); res.Allowed {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(30 * time.Millisecond)
	if res, _ := ll.Allow(context.Background(), "k", quota); !res.Allowed {
		t.Fatal("bucket did not refill")
	}
}

func TestPerHourBurstCap(t *testing.T) {
	q := PerHour(1000)
	if q.Burst != 100 {
		t.Errorf("expected burst 100 for hourly quota 1000, got %d", q.Burst)
	}
	q = PerHour(5)
	if q.Burst != 1 {
		t.Errorf("expected burst floor of 1, got %d", q.Burst)
	}
}

func TestIPRateLimitMiddleware(t *testing.T) {
	limiter := newLocalLimiter()
	defer limiter.Close()

	r := gin.New()
	r.GET("/login", IPRateLimitMiddleware(limiter, Quota{Rate: 60, Burst: 2, Period: time.Minute}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := []int{}
	for i := 0; i < 3; i++ {
		w := doGet(t, r, "/login", nil)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("requests within burst should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("request beyond burst should get 429, got %v", codes)
	}
}

func TestAccessKeyRateLimitUsesStoredQuota(t *testing.T) {
	limiter := newLocalLimiter()
	defer limiter.Close()

	key := &models.ServiceAccessKey{AccessKeyID: "ak_live_abc", ClientID: "tenant-1", RateLimit: 10}

	r := gin.New()
	r.GET("/svc", func(c *gin.Context) {
		c.Set(ContextAccessKeyKey, key)
		c.Next()
	}, AccessKeyRateLimitMiddleware(limiter), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// RateLimit 10/hour gives burst 1: first passes, second is limited.
	w := doGet(t, r, "/svc", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", w.Code)
	}
	w = doGet(t, r, "/svc", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should get 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429")
	}
}

func TestAccessKeyRateLimitWithoutKeyContext(t *testing.T) {
	limiter := newLocalLimiter()
	defer limiter.Close()

	r := gin.New()
	r.GET("/svc", AccessKeyRateLimitMiddleware(limiter), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := doGet(t, r, "/svc", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when access key missing from context, got %d", w.Code)
	}
}
