package services

import (
	"errors"

	"github.com/service-auth/service-auth/internal/db/repositories"
)

// Sentinel errors returned by the services layer. The messages are the exact
// strings surfaced to API callers, so several deliberately collapse distinct
// failure causes into one: unknown email and wrong password both read
// "Invalid email or password", and every logout failure reads "Invalid refresh
// token". Handlers map these to HTTP statuses without inventing new text.
var (
	// ErrClientExists signals a duplicate tenant registration email.
	ErrClientExists = errors.New("Client with this email already exists")

	// ErrUserExists signals a duplicate end-user email within one tenant.
	// The same email under a different tenant is not a conflict.
	ErrUserExists = errors.New("User with this email already exists")

	// ErrInvalidCredentials covers unknown email and wrong password alike.
	ErrInvalidCredentials = errors.New("Invalid email or password")

	// ErrEmailNotVerified blocks tenant logins until the address is confirmed.
	ErrEmailNotVerified = errors.New("Email not verified. Please verify your email first.")

	// ErrInvalidAccessToken covers every access-token rejection on refresh:
	// bad signature, expiry, wrong type claim, unknown subject.
	ErrInvalidAccessToken = errors.New("Invalid or expired access token")

	// ErrInvalidRefreshToken covers every other logout rejection: malformed
	// token, wrong type claim, unknown subject, unknown digest, already
	// revoked.
	ErrInvalidRefreshToken = errors.New("Invalid refresh token")

	// ErrTokenClientMismatch signals a structurally valid token whose clientId
	// claim does not match the tenant resolved from the access key. Unlike the
	// collapsed rejections above, this one is surfaced distinctly.
	ErrTokenClientMismatch = errors.New("Token client mismatch")

	// ErrClientNotFound signals an unknown tenant id.
	ErrClientNotFound = errors.New("Client not found")

	// ErrUserNotFound signals an unknown user id within the caller's tenant.
	ErrUserNotFound = errors.New("User not found")

	// ErrInvalidAccessKey signals an unknown, inactive, or revoked key id.
	ErrInvalidAccessKey = errors.New("Invalid access key")

	// ErrInvalidAccessKeySecret signals a known key id with a wrong secret.
	ErrInvalidAccessKeySecret = errors.New("Invalid access key secret")

	// ErrAccessKeyNotFound signals a revoke target the caller does not own or
	// that does not exist; the two are indistinguishable on purpose.
	ErrAccessKeyNotFound = errors.New("Access key not found")

	// ErrInvalidEnvironment rejects access key environments other than live
	// and test.
	ErrInvalidEnvironment = errors.New(`Environment must be either "live" or "test"`)

	// ErrInvalidRateLimit rejects non-positive access key rate limits.
	ErrInvalidRateLimit = errors.New("Rate limit must be a positive number")

	// ErrVerificationTokenInvalid covers unknown and already-used
	// verification tokens.
	ErrVerificationTokenInvalid = errors.New("Invalid or expired verification token")

	// ErrVerificationTokenExpired signals a known but expired token.
	ErrVerificationTokenExpired = errors.New("Verification token has expired")

	// ErrEmailAlreadyVerified rejects resend requests for confirmed addresses.
	ErrEmailAlreadyVerified = errors.New("Email is already verified")

	// ErrEmailMismatch rejects a token whose target email no longer matches
	// the subject's current address.
	ErrEmailMismatch = errors.New("Email mismatch")
)

// isDuplicate reports whether a store error is a uniqueness violation, the
// race-safety net behind the services' pre-insert existence checks.
func isDuplicate(err error) bool {
	return errors.Is(err, repositories.ErrDuplicate)
}
