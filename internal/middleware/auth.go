// Package middleware provides Gin HTTP middleware for the authentication
// service: bearer-token auth for tenant dashboard routes, access-key auth for
// tenant application routes, rate limiting, security headers, request IDs, and
// request metrics.
//
// Middleware ordering matters and is enforced in router.go:
//
//	Security → RateLimit → Auth → Handler
//
// Security headers run first so they appear on all responses including errors.
// Rate limiting runs before auth to block brute-force attacks before any
// bcrypt or DB work. Auth populates the tenant identity in the gin.Context for
// handlers downstream.
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

// Context keys populated by the auth middlewares.
const (
	// ContextClaimsKey holds the *auth.Claims decoded from a bearer token.
	ContextClaimsKey = "token_claims"
	// ContextClientIDKey holds the tenant client id resolved from either a
	// bearer token or an access key.
	ContextClientIDKey = "client_id"
	// ContextAccessKeyKey holds the *models.ServiceAccessKey for requests
	// authenticated with an access key.
	ContextAccessKeyKey = "access_key"
	// ContextUserIDKey holds the end-user id resolved from an X-Refresh-Token
	// header on combined access-key + refresh-token routes.
	ContextUserIDKey = "user_id"
)

// TokenFinder looks up stored refresh-token digests. Satisfied by
// repositories.TokenRepository.
type TokenFinder interface {
	FindActiveByHash(ctx context.Context, userID, clientID, hash, tokenType string) (*models.Token, error)
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": message,
	})
}

// bearerToken extracts the token from an "Authorization: Bearer ..." header.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

// BearerAuthMiddleware authenticates tenant dashboard requests with a JWT.
//
// Access tokens are accepted on signature alone; they are short-lived and the
// check is stateless. Refresh tokens are also accepted, but only after their
// digest is confirmed live in the tokens table, since a refresh token stays
// cryptographically valid for days after logout revokes it.
func BearerAuthMiddleware(codec *auth.TokenCodec, tokens TokenFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			unauthorized(c, "Authorization token required")
			return
		}

		claims, err := codec.Verify(token)
		if err != nil {
			unauthorized(c, "Invalid or expired token")
			return
		}

		switch claims.Type {
		case auth.TokenTypeAccess:
			// stateless
		case auth.TokenTypeRefresh:
			clientID := claims.ClientID
			if clientID == "" {
				// Tenant sessions store the client id in both subject columns.
				clientID = claims.UserID
			}
			stored, err := tokens.FindActiveByHash(c.Request.Context(), claims.UserID, clientID, auth.HashToken(token), models.TokenTypeRefresh)
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
		default:
			unauthorized(c, "Invalid token type")
			return
		}

		c.Set(ContextClaimsKey, claims)
		c.Set(ContextClientIDKey, claims.UserID)
		c.Next()
	}
}

// ClaimsFromContext returns the bearer claims set by BearerAuthMiddleware.
func ClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	v, exists := c.Get(ContextClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}
