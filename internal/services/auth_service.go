// auth_service.go implements the tenant (dashboard) credential lifecycle:
// client registration, login, refresh, and logout. Tenant sessions store the
// client id in both subject columns of the tokens table and carry no clientId
// claim, which is what distinguishes them from end-user sessions.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/service-auth/service-auth/internal/auth"
	"github.com/service-auth/service-auth/internal/db/models"
)

// AuthService handles tenant account authentication.
type AuthService struct {
	clients ClientStore
	tokens  TokenStore
	codec   *auth.TokenCodec
}

// NewAuthService creates a new AuthService.
func NewAuthService(clients ClientStore, tokens TokenStore, codec *auth.TokenCodec) *AuthService {
	return &AuthService{
		clients: clients,
		tokens:  tokens,
		codec:   codec,
	}
}

// RegisterClientInput carries tenant registration fields. The password arrives
// in plaintext and is hashed before anything is stored.
type RegisterClientInput struct {
	FullName      string `json:"full_name" binding:"required"`
	PositionTitle string `json:"position_title" binding:"required"`
	EmailAddress  string `json:"email_address" binding:"required,email"`
	PhoneNo       string `json:"phone_no" binding:"required"`
	Industry      string `json:"industry" binding:"required"`
	Password      string `json:"password" binding:"required,min=8"`
}

// ClientSession is returned by a successful tenant login. Only the access
// token crosses the wire; the refresh token is persisted as a digest and
// retrieved later through the refresh endpoint.
type ClientSession struct {
	Client            *models.Client `json:"client"`
	AccessToken       string         `json:"accessToken"`
	AccessTokenExpiry time.Time      `json:"accessTokenExpiry"`
}

// RefreshResult is returned by a successful token refresh.
type RefreshResult struct {
	RefreshToken       string    `json:"refreshToken"`
	RefreshTokenExpiry time.Time `json:"refreshTokenExpiry"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new tenant account with an unverified email. The email
// address is lowercased so lookups stay case-insensitive.
func (s *AuthService) Register(ctx context.Context, input RegisterClientInput) (*models.Client, error) {
	email := normalizeEmail(input.EmailAddress)

	existing, err := s.clients.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrClientExists
	}

	passwordHash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	client := &models.Client{
		FullName:      strings.TrimSpace(input.FullName),
		PositionTitle: strings.TrimSpace(input.PositionTitle),
		EmailAddress:  email,
		PhoneNo:       strings.TrimSpace(input.PhoneNo),
		Industry:      strings.TrimSpace(input.Industry),
		PasswordHash:  passwordHash,
		EmailVerified: false,
	}

	if err := s.clients.Create(ctx, client); err != nil {
		// The unique constraint catches registrations racing past the
		// existence check above.
		if isDuplicate(err) {
			return nil, ErrClientExists
		}
		return nil, err
	}
	return client, nil
}

// Login authenticates a tenant and opens a session. Unknown email and wrong
// password are indistinguishable to the caller; an unverified email is
// reported separately because the remedy is different.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ClientSession, error) {
	client, err := s.clients.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrInvalidCredentials
	}

	ok, err := auth.VerifyPassword(password, client.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if !client.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	accessToken, err := s.codec.SignAccess(client.ID, client.EmailAddress, "")
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.codec.SignRefresh(client.ID, client.EmailAddress, "")
	if err != nil {
		return nil, err
	}

	// Rotation revokes any refresh token from a previous session so at most
	// one stays active per client.
	if err := s.tokens.Rotate(ctx, &models.Token{
		UserID:    client.ID,
		ClientID:  client.ID,
		TokenType: models.TokenTypeRefresh,
		TokenHash: auth.HashToken(refreshToken),
		ExpiresAt: time.Now().Add(s.codec.RefreshTTL()),
	}); err != nil {
		return nil, err
	}

	return &ClientSession{
		Client:            client,
		AccessToken:       accessToken,
		AccessTokenExpiry: time.Now().Add(s.codec.AccessTTL()),
	}, nil
}

// Refresh exchanges a live access token for a new refresh token, rotating the
// stored digest. The access token proves recent authentication; the caller
// never presents the old refresh token. Every failure collapses into
// ErrInvalidAccessToken.
func (s *AuthService) Refresh(ctx context.Context, accessToken string) (*RefreshResult, error) {
	claims, err := s.codec.Verify(accessToken)
	if err != nil || claims.Type != auth.TokenTypeAccess {
		return nil, ErrInvalidAccessToken
	}

	client, err := s.clients.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrInvalidAccessToken
	}

	refreshToken, err := s.codec.SignRefresh(client.ID, client.EmailAddress, "")
	if err != nil {
		return nil, err
	}

	expiry := time.Now().Add(s.codec.RefreshTTL())
	if err := s.tokens.Rotate(ctx, &models.Token{
		UserID:    client.ID,
		ClientID:  client.ID,
		TokenType: models.TokenTypeRefresh,
		TokenHash: auth.HashToken(refreshToken),
		ExpiresAt: expiry,
	}); err != nil {
		return nil, err
	}

	return &RefreshResult{
		RefreshToken:       refreshToken,
		RefreshTokenExpiry: expiry,
	}, nil
}

// Logout revokes the presented refresh token. Malformed tokens, wrong type
// claims, unknown subjects, and already-revoked digests all collapse into
// ErrInvalidRefreshToken so the endpoint cannot be used to probe token state.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.codec.Verify(refreshToken)
	if err != nil || claims.Type != auth.TokenTypeRefresh {
		return ErrInvalidRefreshToken
	}

	client, err := s.clients.GetByID(ctx, claims.UserID)
	if err != nil {
		return err
	}
	if client == nil {
		return ErrInvalidRefreshToken
	}

	revoked, err := s.tokens.RevokeByHash(ctx, client.ID, client.ID, auth.HashToken(refreshToken), models.TokenTypeRefresh)
	if err != nil {
		return err
	}
	if !revoked {
		return ErrInvalidRefreshToken
	}
	return nil
}
