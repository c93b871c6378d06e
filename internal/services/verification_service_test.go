package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/service-auth/service-auth/internal/db/models"
)

func newVerificationService(t *testing.T) (*VerificationService, *fakeClientStore, *fakeUserStore, *fakeVerificationStore, *fakeMailer) {
	t.Helper()
	clients := newFakeClientStore()
	users := newFakeUserStore()
	verifications := newFakeVerificationStore()
	mailer := &fakeMailer{}
	svc := NewVerificationService(clients, users, verifications, mailer, "https://app.example.com")
	return svc, clients, users, verifications, mailer
}

func seedClient(t *testing.T, clients *fakeClientStore, email string, verified bool) *models.Client {
	t.Helper()
	client := &models.Client{
		FullName:      "John Doe",
		EmailAddress:  email,
		PasswordHash:  "$2a$12$hash",
		EmailVerified: verified,
	}
	if err := clients.Create(context.Background(), client); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return client
}

func seedUser(t *testing.T, users *fakeUserStore, clientID, email string) *models.ServiceUser {
	t.Helper()
	user := &models.ServiceUser{
		ClientID:     clientID,
		Email:        email,
		PasswordHash: "$2a$12$hash",
	}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// ---------------------------------------------------------------------------
// Sending
// ---------------------------------------------------------------------------

func TestSendClientVerification_EmailsLink(t *testing.T) {
	svc, clients, _, verifications, mailer := newVerificationService(t)
	client := seedClient(t, clients, "john@example.com", false)

	if err := svc.SendClientVerification(context.Background(), client.ID, client.EmailAddress, client.FullName); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("sent mails = %d, want 1", len(mailer.sent))
	}
	mail := mailer.sent[0]
	if mail.to != "john@example.com" {
		t.Errorf("to = %s, want john@example.com", mail.to)
	}
	if !strings.Contains(mail.link, "https://app.example.com/verify-email?token=") || !strings.Contains(mail.link, "type=client") {
		t.Errorf("unexpected link: %s", mail.link)
	}

	token, err := verifications.FindActiveBySubject(context.Background(), client.ID, client.ID, models.SubjectTypeClient)
	if err != nil || token == nil {
		t.Fatalf("expected stored token, got %v / %v", token, err)
	}
	if len(token.Token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(token.Token))
	}
}

func TestSendClientVerification_ReusesActiveToken(t *testing.T) {
	svc, clients, _, _, mailer := newVerificationService(t)
	client := seedClient(t, clients, "john@example.com", false)

	if err := svc.SendClientVerification(context.Background(), client.ID, client.EmailAddress, ""); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := svc.SendClientVerification(context.Background(), client.ID, client.EmailAddress, ""); err != nil {
		t.Fatalf("second send: %v", err)
	}

	if len(mailer.sent) != 2 {
		t.Fatalf("sent mails = %d, want 2", len(mailer.sent))
	}
	if mailer.sent[0].link != mailer.sent[1].link {
		t.Error("second send must reuse the still-active token")
	}
}

func TestSendUserVerification_LinkCarriesTenant(t *testing.T) {
	svc, _, users, _, mailer := newVerificationService(t)
	user := seedUser(t, users, tenantA, "alice@example.com")

	if err := svc.SendUserVerification(context.Background(), tenantA, user.ID, user.Email, "Alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent mails = %d, want 1", len(mailer.sent))
	}
	if !strings.Contains(mailer.sent[0].link, "type=user") || !strings.Contains(mailer.sent[0].link, "clientId="+tenantA) {
		t.Errorf("unexpected link: %s", mailer.sent[0].link)
	}
}

// ---------------------------------------------------------------------------
// Verifying
// ---------------------------------------------------------------------------

func TestVerifyClientToken_MarksVerifiedAndConsumes(t *testing.T) {
	svc, clients, _, verifications, _ := newVerificationService(t)
	client := seedClient(t, clients, "john@example.com", false)

	if err := svc.SendClientVerification(context.Background(), client.ID, client.EmailAddress, ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	token, _ := verifications.FindActiveBySubject(context.Background(), client.ID, client.ID, models.SubjectTypeClient)

	verified, err := svc.VerifyClientToken(context.Background(), token.Token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verified.EmailVerified {
		t.Error("client must be marked verified")
	}

	// The token is single-use.
	if _, err := svc.VerifyClientToken(context.Background(), token.Token); err != ErrVerificationTokenInvalid {
		t.Errorf("expected ErrVerificationTokenInvalid on reuse, got %v", err)
	}
}

func TestVerifyClientToken_UnknownToken(t *testing.T) {
	svc, _, _, _, _ := newVerificationService(t)
	if _, err := svc.VerifyClientToken(context.Background(), "deadbeef"); err != ErrVerificationTokenInvalid {
		t.Errorf("expected ErrVerificationTokenInvalid, got %v", err)
	}
}

func TestVerifyClientToken_Expired(t *testing.T) {
	svc, clients, _, verifications, _ := newVerificationService(t)
	client := seedClient(t, clients, "john@example.com", false)

	token := &models.EmailVerificationToken{
		Token:       "deadbeefcafe",
		UserID:      client.ID,
		ClientID:    client.ID,
		Email:       client.EmailAddress,
		SubjectType: models.SubjectTypeClient,
		ExpiresAt:   time.Now().Add(-time.Hour),
	}
	if err := verifications.Create(context.Background(), token); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	if _, err := svc.VerifyClientToken(context.Background(), token.Token); err != ErrVerificationTokenExpired {
		t.Errorf("expected ErrVerificationTokenExpired, got %v", err)
	}
}

func TestVerifyClientToken_EmailMismatch(t *testing.T) {
	svc, clients, _, verifications, _ := newVerificationService(t)
	client := seedClient(t, clients, "john@example.com", false)

	// Token issued for an address the client no longer uses.
	token := &models.EmailVerificationToken{
		Token:       "deadbeefcafe",
		UserID:      client.ID,
		ClientID:    client.ID,
		Email:       "old@example.com",
		SubjectType: models.SubjectTypeClient,
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	if err := verifications.Create(context.Background(), token); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	if _, err := svc.VerifyClientToken(context.Background(), token.Token); err != ErrEmailMismatch {
		t.Errorf("expected ErrEmailMismatch, got %v", err)
	}
}

func TestVerifyUserToken_TenantScoped(t *testing.T) {
	svc, _, users, verifications, _ := newVerificationService(t)
	user := seedUser(t, users, tenantA, "alice@example.com")

	if err := svc.SendUserVerification(context.Background(), tenantA, user.ID, user.Email, ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	token, _ := verifications.FindActiveBySubject(context.Background(), user.ID, tenantA, models.SubjectTypeUser)

	// A tenant cannot consume another tenant's token.
	if _, err := svc.VerifyUserToken(context.Background(), token.Token, tenantB); err != ErrVerificationTokenInvalid {
		t.Errorf("expected ErrVerificationTokenInvalid across tenants, got %v", err)
	}

	verified, err := svc.VerifyUserToken(context.Background(), token.Token, tenantA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verified.EmailVerified {
		t.Error("user must be marked verified")
	}
}

// ---------------------------------------------------------------------------
// Resending
// ---------------------------------------------------------------------------

func TestResendClientVerification(t *testing.T) {
	svc, clients, _, _, mailer := newVerificationService(t)
	seedClient(t, clients, "john@example.com", false)

	if err := svc.ResendClientVerification(context.Background(), "John@Example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Errorf("sent mails = %d, want 1", len(mailer.sent))
	}

	if err := svc.ResendClientVerification(context.Background(), "nobody@example.com"); err != ErrClientNotFound {
		t.Errorf("expected ErrClientNotFound, got %v", err)
	}
}

func TestResendClientVerification_AlreadyVerified(t *testing.T) {
	svc, clients, _, _, _ := newVerificationService(t)
	seedClient(t, clients, "john@example.com", true)

	if err := svc.ResendClientVerification(context.Background(), "john@example.com"); err != ErrEmailAlreadyVerified {
		t.Errorf("expected ErrEmailAlreadyVerified, got %v", err)
	}
}

func TestResendUserVerification(t *testing.T) {
	svc, _, users, _, mailer := newVerificationService(t)
	seedUser(t, users, tenantA, "alice@example.com")

	if err := svc.ResendUserVerification(context.Background(), tenantA, "alice@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Errorf("sent mails = %d, want 1", len(mailer.sent))
	}

	if err := svc.ResendUserVerification(context.Background(), tenantB, "alice@example.com"); err != ErrUserNotFound {
		t.Errorf("expected ErrUserNotFound under the wrong tenant, got %v", err)
	}
}
