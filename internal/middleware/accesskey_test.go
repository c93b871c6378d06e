package middleware

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/service-auth/service-auth/internal/auth"
	"github.com/service-auth/service-auth/internal/db/models"
	"github.com/service-auth/service-auth/internal/services"
)

type fakeKeyValidator struct {
	keys map[string]*models.ServiceAccessKey
}

func (f *fakeKeyValidator) ValidateByID(_ context.Context, accessKeyID string) (*models.ServiceAccessKey, error) {
	key, ok := f.keys[accessKeyID]
	if !ok {
		return nil, services.ErrInvalidAccessKey
	}
	return key, nil
}

func accessKeyRouter(keys AccessKeyValidator) *gin.Engine {
	r := gin.New()
	r.GET("/svc", AccessKeyMiddleware(keys), func(c *gin.Context) {
		id, _ := ClientIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"client_id": id})
	})
	return r
}

func TestAccessKeyMiddlewareMissingHeader(t *testing.T) {
	r := accessKeyRouter(&fakeKeyValidator{})
	w := doGet(t, r, "/svc", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAccessKeyMiddlewareWrongScheme(t *testing.T) {
	r := accessKeyRouter(&fakeKeyValidator{})
	w := doGet(t, r, "/svc", map[string]string{"Authorization": "Bearer ak_live_abc"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for Bearer scheme, got %d", w.Code)
	}
}

func TestAccessKeyMiddlewareUnknownKey(t *testing.T) {
	r := accessKeyRouter(&fakeKeyValidator{keys: map[string]*models.ServiceAccessKey{}})
	w := doGet(t, r, "/svc", map[string]string{"Authorization": "AccessKey ak_live_unknown"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAccessKeyMiddlewareResolvesTenant(t *testing.T) {
	keys := &fakeKeyValidator{keys: map[string]*models.ServiceAccessKey{
		"ak_live_abc": {AccessKeyID: "ak_live_abc", ClientID: "tenant-1", RateLimit: 1000, Active: true},
	}}
	r := accessKeyRouter(keys)
	w := doGet(t, r, "/svc", map[string]string{"Authorization": "AccessKey ak_live_abc"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAccessKeyWithRefreshToken(t *testing.T) {
	codec := auth.NewTokenCodec(testSecret, 0, 0)
	keys := &fakeKeyValidator{keys: map[string]*models.ServiceAccessKey{
		"ak_live_abc": {AccessKeyID: "ak_live_abc", ClientID: "tenant-1", RateLimit: 1000, Active: true},
	}}

	refresh, _ := codec.SignRefresh("user-1", "u@b.co", "tenant-1")
	finder := &fakeTokenFinder{tokens: map[string]*models.Token{
		auth.HashToken(refresh): {
			UserID:    "user-1",
			ClientID:  "tenant-1",
			TokenType: models.TokenTypeRefresh,
			TokenHash: auth.HashToken(refresh),
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}}

	r := gin.New()
	r.GET("/me", AccessKeyWithRefreshTokenMiddleware(keys, codec, finder), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(ContextUserIDKey)})
	})

	// Happy path.
	w := doGet(t, r, "/me", map[string]string{
		"Authorization":   "AccessKey ak_live_abc",
		RefreshTokenHeader: refresh,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Missing refresh token header.
	w = doGet(t, r, "/me", map[string]string{"Authorization": "AccessKey ak_live_abc"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without refresh token, got %d", w.Code)
	}

	// Token minted under a different tenant.
	foreign, _ := codec.SignRefresh("user-1", "u@b.co", "tenant-2")
	w = doGet(t, r, "/me", map[string]string{
		"Authorization":   "AccessKey ak_live_abc",
		RefreshTokenHeader: foreign,
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for cross-tenant token, got %d", w.Code)
	}

	// Access token in place of refresh token.
	access, _ := codec.SignAccess("user-1", "u@b.co", "tenant-1")
	w = doGet(t, r, "/me", map[string]string{
		"Authorization":   "AccessKey ak_live_abc",
		RefreshTokenHeader: access,
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for access token, got %d", w.Code)
	}
}
