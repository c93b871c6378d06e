// user_service.go implements the end-user credential lifecycle on behalf of a
// tenant's application. Every operation takes the client id resolved from a
// validated access key, and every lookup is scoped to it, so one tenant can
// never see or act on another tenant's users. Registration and login outcomes
// are written to the audit trail, including failures.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/service-auth/service-auth/internal/auth"
	"github.com/service-auth/service-auth/internal/db/models"
)

// UserService handles end-user authentication within a tenant namespace.
type UserService struct {
	users  UserStore
	tokens TokenStore
	codec  *auth.TokenCodec
	audit  Auditor
}

// NewUserService creates a new UserService.
func NewUserService(users UserStore, tokens TokenStore, codec *auth.TokenCodec, audit Auditor) *UserService {
	return &UserService{
		users:  users,
		tokens: tokens,
		codec:  codec,
		audit:  audit,
	}
}

// RegisterUserInput carries end-user registration fields. CustomFields is
// schema-free: the service stores whatever the tenant's application sends.
type RegisterUserInput struct {
	Email        string         `json:"email" binding:"required,email"`
	Password     string         `json:"password" binding:"required,min=8"`
	Name         *string        `json:"name"`
	CustomFields map[string]any `json:"custom_fields"`
}

// UserSession is returned by successful end-user registration and login.
// As with tenant sessions, only the access token is returned.
type UserSession struct {
	User              *models.ServiceUser `json:"user"`
	AccessToken       string              `json:"accessToken"`
	AccessTokenExpiry time.Time           `json:"accessTokenExpiry"`
}

func (s *UserService) record(ctx context.Context, userID *string, clientID, action, ip, userAgent string) {
	entry := &models.AuditLog{
		UserID:    userID,
		ClientID:  clientID,
		Action:    action,
		IPAddress: ip,
	}
	if userAgent != "" {
		entry.UserAgent = &userAgent
	}
	s.audit.Record(ctx, entry)
}

// Register creates an end-user under the tenant and opens a first session.
// A duplicate email within the tenant is audited as a failed registration.
func (s *UserService) Register(ctx context.Context, clientID string, input RegisterUserInput, ip, userAgent string) (*UserSession, error) {
	email := normalizeEmail(input.Email)

	existing, err := s.users.GetByEmail(ctx, clientID, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.record(ctx, nil, clientID, models.AuditActionRegister, ip, userAgent)
		return nil, ErrUserExists
	}

	passwordHash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	var name *string
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		name = &trimmed
	}

	user := &models.ServiceUser{
		ClientID:      clientID,
		Email:         email,
		PasswordHash:  passwordHash,
		Name:          name,
		CustomFields:  input.CustomFields,
		EmailVerified: false,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if isDuplicate(err) {
			s.record(ctx, nil, clientID, models.AuditActionRegister, ip, userAgent)
			return nil, ErrUserExists
		}
		return nil, err
	}

	session, err := s.openSession(ctx, user, false)
	if err != nil {
		return nil, err
	}

	s.record(ctx, &user.ID, clientID, models.AuditActionRegister, ip, userAgent)
	return session, nil
}

// Login authenticates an end-user within the tenant namespace. Failed
// attempts are audited with a nil user id when the email is unknown, and with
// the user id when the password was wrong, but the caller sees the same error
// either way.
func (s *UserService) Login(ctx context.Context, clientID, email, password, ip, userAgent string) (*UserSession, error) {
	user, err := s.users.GetByEmail(ctx, clientID, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.record(ctx, nil, clientID, models.AuditActionFailedLogin, ip, userAgent)
		return nil, ErrInvalidCredentials
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.record(ctx, &user.ID, clientID, models.AuditActionFailedLogin, ip, userAgent)
		return nil, ErrInvalidCredentials
	}

	session, err := s.openSession(ctx, user, true)
	if err != nil {
		return nil, err
	}

	s.record(ctx, &user.ID, clientID, models.AuditActionLogin, ip, userAgent)
	return session, nil
}

// openSession signs a token pair and persists the refresh digest. Login
// rotates so prior sessions are revoked; registration has nothing to rotate
// and inserts directly.
func (s *UserService) openSession(ctx context.Context, user *models.ServiceUser, rotate bool) (*UserSession, error) {
	accessToken, err := s.codec.SignAccess(user.ID, user.Email, user.ClientID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.codec.SignRefresh(user.ID, user.Email, user.ClientID)
	if err != nil {
		return nil, err
	}

	token := &models.Token{
		UserID:    user.ID,
		ClientID:  user.ClientID,
		TokenType: models.TokenTypeRefresh,
		TokenHash: auth.HashToken(refreshToken),
		ExpiresAt: time.Now().Add(s.codec.RefreshTTL()),
	}

	if rotate {
		err = s.tokens.Rotate(ctx, token)
	} else {
		err = s.tokens.Create(ctx, token)
	}
	if err != nil {
		return nil, err
	}

	return &UserSession{
		User:              user,
		AccessToken:       accessToken,
		AccessTokenExpiry: time.Now().Add(s.codec.AccessTTL()),
	}, nil
}

// Refresh exchanges a live access token for a new refresh token. A token
// minted under one tenant presented under another is rejected with
// ErrTokenClientMismatch; every other rejection collapses into
// ErrInvalidAccessToken.
func (s *UserService) Refresh(ctx context.Context, clientID, accessToken string) (*RefreshResult, error) {
	claims, err := s.codec.Verify(accessToken)
	if err != nil || claims.Type != auth.TokenTypeAccess {
		return nil, ErrInvalidAccessToken
	}
	if claims.ClientID != clientID {
		return nil, ErrTokenClientMismatch
	}

	user, err := s.users.GetByID(ctx, clientID, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidAccessToken
	}

	refreshToken, err := s.codec.SignRefresh(user.ID, user.Email, clientID)
	if err != nil {
		return nil, err
	}

	expiry := time.Now().Add(s.codec.RefreshTTL())
	if err := s.tokens.Rotate(ctx, &models.Token{
		UserID:    user.ID,
		ClientID:  clientID,
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

// Logout revokes the presented refresh token and audits the event. A clientId
// claim naming a different tenant is rejected with ErrTokenClientMismatch;
// every other rejection collapses into ErrInvalidRefreshToken.
func (s *UserService) Logout(ctx context.Context, clientID, refreshToken, ip, userAgent string) error {
	claims, err := s.codec.Verify(refreshToken)
	if err != nil || claims.Type != auth.TokenTypeRefresh {
		return ErrInvalidRefreshToken
	}
	if claims.ClientID != clientID {
		return ErrTokenClientMismatch
	}

	revoked, err := s.tokens.RevokeByHash(ctx, claims.UserID, clientID, auth.HashToken(refreshToken), models.TokenTypeRefresh)
	if err != nil {
		return err
	}
	if !revoked {
		return ErrInvalidRefreshToken
	}

	s.record(ctx, &claims.UserID, clientID, models.AuditActionLogout, ip, userAgent)
	return nil
}

// GetByID retrieves a user profile within the caller's tenant.
func (s *UserService) GetByID(ctx context.Context, clientID, userID string) (*models.ServiceUser, error) {
	user, err := s.users.GetByID(ctx, clientID, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
