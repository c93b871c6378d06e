// jwt.go implements the token codec: HS256-signed access and refresh tokens
// with fixed issuer/audience claims, plus the SHA-256 digest used to persist
// refresh tokens without storing the raw string.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenTypeAccess marks short-lived tokens proving recent authentication.
	TokenTypeAccess = "access"
	// TokenTypeRefresh marks longer-lived tokens used to mint new credentials.
	TokenTypeRefresh = "refresh"

	tokenIssuer   = "auth-service"
	tokenAudience = "client-app"
)

// ErrInvalidToken is the single failure returned by Verify. Bad signature,
// wrong issuer or audience, expiry, and malformed input all collapse into it so
// callers cannot be used as an oracle for why a token was rejected.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the JWT claims structure carried by both token types.
// ClientID is empty for tenant (dashboard) sessions and set to the owning
// tenant for end-user sessions, enabling the cross-tenant replay check.
type Claims struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	ClientID string `json:"clientId,omitempty"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies compact tokens with a shared secret.
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenCodec creates a TokenCodec. Zero TTLs fall back to the contract
// defaults: 15 minutes for access tokens, 7 days for refresh tokens.
func NewTokenCodec(secret string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenCodec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL returns the configured access-token lifetime.
func (tc *TokenCodec) AccessTTL() time.Duration { return tc.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (tc *TokenCodec) RefreshTTL() time.Duration { return tc.refreshTTL }

// SignAccess creates a signed access token for the subject.
func (tc *TokenCodec) SignAccess(userID, email, clientID string) (string, error) {
	return tc.sign(userID, email, clientID, TokenTypeAccess, tc.accessTTL)
}

// SignRefresh creates a signed refresh token for the subject.
func (tc *TokenCodec) SignRefresh(userID, email, clientID string) (string, error) {
	return tc.sign(userID, email, clientID, TokenTypeRefresh, tc.refreshTTL)
}

func (tc *TokenCodec) sign(userID, email, clientID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Email:    email,
		ClientID: clientID,
		Type:     tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tc.secret)
}

// Verify parses and validates a token string, checking signature, issuer,
// audience, and expiry atomically. Every failure is ErrInvalidToken.
func (tc *TokenCodec) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return tc.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashToken returns the hex SHA-256 digest of a token string. The digest is
// deterministic so stored refresh tokens can be looked up, but one-way so a
// database dump never yields a usable credential.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
