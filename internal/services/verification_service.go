// verification_service.go implements email verification for both tenant
// accounts and end-users. Tokens are opaque random strings sent as links; an
// unexpired token for a subject is reused rather than duplicated, and a token
// only verifies while its target email still matches the subject's current
// address.
package services

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/service-auth/service-auth/internal/auth"
	"github.com/service-auth/service-auth/internal/db/models"
)

// VerificationTokenTTL is how long a verification link stays valid.
const VerificationTokenTTL = 24 * time.Hour

// Mailer delivers verification emails. Implementations must be safe for
// concurrent use.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, link, name string) error
}

// VerificationService handles verification token issuance and consumption.
type VerificationService struct {
	clients       ClientStore
	users         UserStore
	verifications VerificationStore
	mailer        Mailer
	baseURL       string
}

// NewVerificationService creates a new VerificationService. baseURL is the
// frontend origin the verification links point at.
func NewVerificationService(clients ClientStore, users UserStore, verifications VerificationStore, mailer Mailer, baseURL string) *VerificationService {
	return &VerificationService{
		clients:       clients,
		users:         users,
		verifications: verifications,
		mailer:        mailer,
		baseURL:       baseURL,
	}
}

// issueToken returns an active token for the subject, reusing an unexpired
// one when present so repeated sends do not invalidate in-flight links.
func (s *VerificationService) issueToken(ctx context.Context, userID, clientID, email, subjectType string) (*models.EmailVerificationToken, error) {
	existing, err := s.verifications.FindActiveBySubject(ctx, userID, clientID, subjectType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	raw, err := auth.VerificationToken()
	if err != nil {
		return nil, err
	}

	token := &models.EmailVerificationToken{
		Token:       raw,
		UserID:      userID,
		ClientID:    clientID,
		Email:       normalizeEmail(email),
		SubjectType: subjectType,
		ExpiresAt:   time.Now().Add(VerificationTokenTTL),
	}
	if err := s.verifications.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// SendClientVerification issues (or reuses) a token for a tenant account and
// emails the verification link.
func (s *VerificationService) SendClientVerification(ctx context.Context, clientID, email, name string) error {
	token, err := s.issueToken(ctx, clientID, clientID, email, models.SubjectTypeClient)
	if err != nil {
		return fmt.Errorf("create verification token: %w", err)
	}

	link := fmt.Sprintf("%s/verify-email?token=%s&type=client", s.baseURL, url.QueryEscape(token.Token))
	if name == "" {
		name = "User"
	}
	return s.mailer.SendVerificationEmail(ctx, email, link, name)
}

// SendUserVerification issues (or reuses) a token for an end-user and emails
// the verification link.
func (s *VerificationService) SendUserVerification(ctx context.Context, clientID, userID, email, name string) error {
	token, err := s.issueToken(ctx, userID, clientID, email, models.SubjectTypeUser)
	if err != nil {
		return fmt.Errorf("create verification token: %w", err)
	}

	link := fmt.Sprintf("%s/verify-email?token=%s&type=user&clientId=%s",
		s.baseURL, url.QueryEscape(token.Token), url.QueryEscape(clientID))
	if name == "" {
		name = "User"
	}
	return s.mailer.SendVerificationEmail(ctx, email, link, name)
}

// VerifyClientToken consumes a tenant verification token, marking the client's
// email verified. Unknown and consumed tokens are indistinguishable; expiry is
// reported separately because the remedy is a resend.
func (s *VerificationService) VerifyClientToken(ctx context.Context, rawToken string) (*models.Client, error) {
	token, err := s.verifications.FindUnusedByToken(ctx, rawToken, models.SubjectTypeClient)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, ErrVerificationTokenInvalid
	}
	if time.Now().After(token.ExpiresAt) {
		return nil, ErrVerificationTokenExpired
	}
	if token.VerifiedAt != nil {
		return nil, ErrEmailAlreadyVerified
	}

	client, err := s.clients.GetByID(ctx, token.UserID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrClientNotFound
	}
	if normalizeEmail(client.EmailAddress) != normalizeEmail(token.Email) {
		return nil, ErrEmailMismatch
	}

	if err := s.verifications.MarkUsed(ctx, token.ID); err != nil {
		return nil, err
	}
	if err := s.clients.MarkEmailVerified(ctx, client.ID); err != nil {
		return nil, err
	}

	client.EmailVerified = true
	return client, nil
}

// VerifyUserToken consumes an end-user verification token within the tenant,
// marking the user's email verified.
func (s *VerificationService) VerifyUserToken(ctx context.Context, rawToken, clientID string) (*models.ServiceUser, error) {
	token, err := s.verifications.FindUnusedByToken(ctx, rawToken, models.SubjectTypeUser)
	if err != nil {
		return nil, err
	}
	if token == nil || token.ClientID != clientID {
		return nil, ErrVerificationTokenInvalid
	}
	if time.Now().After(token.ExpiresAt) {
		return nil, ErrVerificationTokenExpired
	}
	if token.VerifiedAt != nil {
		return nil, ErrEmailAlreadyVerified
	}

	user, err := s.users.GetByID(ctx, clientID, token.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if normalizeEmail(user.Email) != normalizeEmail(token.Email) {
		return nil, ErrEmailMismatch
	}

	if err := s.verifications.MarkUsed(ctx, token.ID); err != nil {
		return nil, err
	}
	if err := s.users.MarkEmailVerified(ctx, clientID, user.ID); err != nil {
		return nil, err
	}

	user.EmailVerified = true
	return user, nil
}

// ResendClientVerification re-sends the verification link for an unverified
// tenant account.
func (s *VerificationService) ResendClientVerification(ctx context.Context, email string) error {
	client, err := s.clients.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if client == nil {
		return ErrClientNotFound
	}
	if client.EmailVerified {
		return ErrEmailAlreadyVerified
	}
	return s.SendClientVerification(ctx, client.ID, client.EmailAddress, client.FullName)
}

// ResendUserVerification re-sends the verification link for an unverified
// end-user within the tenant.
func (s *VerificationService) ResendUserVerification(ctx context.Context, clientID, email string) error {
	user, err := s.users.GetByEmail(ctx, clientID, normalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.EmailVerified {
		return ErrEmailAlreadyVerified
	}

	var name string
	if user.Name != nil {
		name = *user.Name
	}
	return s.SendUserVerification(ctx, clientID, user.ID, user.Email, name)
}
