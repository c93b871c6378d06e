// accesskey.go authenticates tenant application traffic. These routes are not
// called by browsers but by the tenant's own backend, which identifies itself
// with "Authorization: AccessKey {access_key_id}". The key id alone resolves
// the tenant; the secret-bearing credential check lives in the issue/validate
// service path, not here.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/service-auth/service-auth/internal/auth"
	"github.com/service-auth/service-auth/internal/db/models"
)

const accessKeyScheme = "AccessKey"

// RefreshTokenHeader carries the end-user refresh token on combined
// access-key + refresh-token routes.
const RefreshTokenHeader = "X-Refresh-Token"

// AccessKeyValidator resolves an access key id to its active key record.
// Satisfied by services.AccessKeyService.
type AccessKeyValidator interface {
	ValidateByID(ctx context.Context, accessKeyID string) (*models.ServiceAccessKey, error)
}

// parseAccessKeyHeader extracts the key id from "Authorization: AccessKey {id}".
func parseAccessKeyHeader(c *gin.Context) (string, string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", "Authorization header is required. Use format: AccessKey {access_key_id}"
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || parts[0] != accessKeyScheme {
		return "", "Invalid authorization format. Use: Authorization: AccessKey {access_key_id}"
	}
	return parts[1], ""
}

func resolveAccessKey(c *gin.Context, keys AccessKeyValidator) (*models.ServiceAccessKey, bool) {
	keyID, errMsg := parseAccessKeyHeader(c)
	if errMsg != "" {
		unauthorized(c, errMsg)
		return nil, false
	}

	key, err := keys.ValidateByID(c.Request.Context(), keyID)
	if err != nil {
		unauthorized(c, "Invalid access key")
		return nil, false
	}
	return key, true
}

// AccessKeyMiddleware authenticates requests from tenant applications and
// stores the resolved key and owning tenant id in the gin.Context.
func AccessKeyMiddleware(keys AccessKeyValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := resolveAccessKey(c, keys)
		if !ok {
			return
		}

		c.Set(ContextAccessKeyKey, key)
		c.Set(ContextClientIDKey, key.ClientID)
		c.Next()
	}
}

// AccessKeyWithRefreshTokenMiddleware additionally requires a live end-user
// refresh token in the X-Refresh-Token header. The token's clientId claim must
// match the tenant resolved from the access key, and its digest must still be
// active in the tokens table. Used for profile routes where the caller acts on
// behalf of a signed-in end-user.
func AccessKeyWithRefreshTokenMiddleware(keys AccessKeyValidator, codec *auth.TokenCodec, tokens TokenFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := resolveAccessKey(c, keys)
		if !ok {
			return
		}

		refreshToken := c.GetHeader(RefreshTokenHeader)
		if refreshToken == "" {
			unauthorized(c, "Refresh token is required. Use header: X-Refresh-Token: {refreshToken}")
			return
		}

		claims, err := codec.Verify(refreshToken)
		if err != nil {
			unauthorized(c, "Invalid or expired refresh token")
			return
		}
		if claims.Type != auth.TokenTypeRefresh {
			unauthorized(c, "Invalid token type. Refresh token required")
			return
		}
		if claims.ClientID != key.ClientID {
			unauthorized(c, "Token client mismatch")
			return
		}

		stored, err := tokens.FindActiveByHash(c.Request.Context(), claims.UserID, claims.ClientID, auth.HashToken(refreshToken), models.TokenTypeRefresh)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Authentication failed",
			})
			return
		}
		if stored == nil || time.Now().After(stored.ExpiresAt) {
			unauthorized(c, "Invalid or revoked refresh token")
			return
		}

		c.Set(ContextAccessKeyKey, key)
		c.Set(ContextClientIDKey, key.ClientID)
		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextClaimsKey, claims)
		c.Next()
	}
}

// AccessKeyFromContext returns the key record set by the access-key middlewares.
func AccessKeyFromContext(c *gin.Context) (*models.ServiceAccessKey, bool) {
	v, exists := c.Get(ContextAccessKeyKey)
	if !exists {
		return nil, false
	}
	key, ok := v.(*models.ServiceAccessKey)
	return key, ok
}

// ClientIDFromContext returns the tenant id resolved by either auth middleware.
func ClientIDFromContext(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextClientIDKey)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
