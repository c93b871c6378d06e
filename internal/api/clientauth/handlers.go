// Package clientauth implements the tenant dashboard HTTP handlers: account
// registration, login, token refresh, logout, email verification, and the
// bearer-authenticated profile endpoint. These routes are called by browsers,
// unlike the access-key-gated routes in the sibling serviceauth package which
// are called by tenant backends.
package clientauth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/service-auth/service-auth/internal/api/respond"
	"github.com/service-auth/service-auth/internal/db/models"
	"github.com/service-auth/service-auth/internal/middleware"
	"github.com/service-auth/service-auth/internal/services"
	"github.com/service-auth/service-auth/internal/telemetry"
)

// AuthService is the slice of services.AuthService these handlers consume.
type AuthService interface {
	Register(ctx context.Context, input services.RegisterClientInput) (*models.Client, error)
	Login(ctx context.Context, email, password string) (*services.ClientSession, error)
	Refresh(ctx context.Context, accessToken string) (*services.RefreshResult, error)
	Logout(ctx context.Context, refreshToken string) error
}

// VerificationService is the tenant-side slice of services.VerificationService.
type VerificationService interface {
	ResendClientVerification(ctx context.Context, email string) error
	VerifyClientToken(ctx context.Context, token string) (*models.Client, error)
}

// ClientDirectory resolves tenant profiles for the /me endpoint.
type ClientDirectory interface {
	GetByID(ctx context.Context, id string) (*models.Client, error)
}

// Handlers carries the dependencies for the tenant auth endpoints.
type Handlers struct {
	auth          AuthService
	verifications VerificationService
	clients       ClientDirectory
}

// NewHandlers creates the tenant auth handlers.
func NewHandlers(auth AuthService, verifications VerificationService, clients ClientDirectory) *Handlers {
	return &Handlers{
		auth:          auth,
		verifications: verifications,
		clients:       clients,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type refreshRequest struct {
	AccessToken string `json:"accessToken" binding:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type verifyRequest struct {
	Token string `json:"token" binding:"required,min=32,max=200"`
}

// @Summary      Register tenant account
// @Description  Creates a new tenant (client) account. The email starts unverified; login is blocked until the address is confirmed.
// @Tags         Tenant Auth
// @Accept       json
// @Produce      json
// @Param        body  body  services.RegisterClientInput  true  "Registration fields"
// @Success      201  {object}  respond.Response  "Client registered successfully"
// @Failure      400  {object}  respond.Response  "Validation failed"
// @Failure      409  {object}  respond.Response  "Client with this email already exists"
// @Router       /api/v1/auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var input services.RegisterClientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		telemetry.RegistrationsTotal.WithLabelValues(telemetry.SubjectClient, telemetry.OutcomeFailure).Inc()
		respond.BadRequest(c, "Validation failed")
		return
	}

	client, err := h.auth.Register(c.Request.Context(), input)
	if err != nil {
		telemetry.RegistrationsTotal.WithLabelValues(telemetry.SubjectClient, telemetry.OutcomeFailure).Inc()
		respond.Error(c, err, "Registration failed. Please try again.")
		return
	}

	telemetry.RegistrationsTotal.WithLabelValues(telemetry.SubjectClient, telemetry.OutcomeSuccess).Inc()
	respond.Created(c, "Client registered successfully", client)
}

// @Summary      Tenant login
// @Description  Authenticates a tenant account and returns an access token. The refresh token is stored server-side; retrieve a new one via /refresh.
// @Tags         Tenant Auth
// @Accept       json
// @Produce      json
// @Param        body  body  loginRequest  true  "Credentials"
// @Success      200  {object}  respond.Response  "Login successful"
// @Failure      401  {object}  respond.Response  "Invalid email or password / Email not verified"
// @Router       /api/v1/auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Validation failed")
		return
	}

	session, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		telemetry.LoginsTotal.WithLabelValues(telemetry.SubjectClient, telemetry.OutcomeFailure).Inc()
		respond.AuthError(c, err, "Login failed. Please try again.")
		return
	}

	telemetry.LoginsTotal.WithLabelValues(telemetry.SubjectClient, telemetry.OutcomeSuccess).Inc()
	telemetry.TokensIssuedTotal.WithLabelValues(telemetry.SubjectClient, "access").Inc()
	telemetry.TokensIssuedTotal.WithLabelValues(telemetry.SubjectClient, "refresh").Inc()
	respond.OK(c, "Login successful", session)
}

// @Summary      Refresh tenant tokens
// @Description  Exchanges a live access token for a new refresh token. The previous refresh token is revoked.
// @Tags         Tenant Auth
// @Accept       json
// @Produce      json
// @Param        body  body  refreshRequest  true  "Access token"
// @Success      200  {object}  respond.Response  "Token refreshed successfully"
// @Failure      401  {object}  respond.Response  "Invalid or expired access token"
// @Router       /api/v1/auth/refresh [post]
func (h *Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Access token is required")
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), req.AccessToken)
	if err != nil {
		respond.AuthError(c, err, services.ErrInvalidAccessToken.Error())
		return
	}

	telemetry.TokensIssuedTotal.WithLabelValues(telemetry.SubjectClient, "refresh").Inc()
	respond.OK(c, "Token refreshed successfully", result)
}

// @Summary      Tenant logout
// @Description  Revokes the presented refresh token. Any failure reads the same so token state cannot be probed.
// @Tags         Tenant Auth
// @Accept       json
// @Produce      json
// @Param        body  body  logoutRequest  true  "Refresh token"
// @Success      200  {object}  respond.Response  "Logout successful"
// @Failure      401  {object}  respond.Response  "Invalid refresh token"
// @Router       /api/v1/auth/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Refresh token is required")
		return
	}

	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		respond.AuthError(c, err, services.ErrInvalidRefreshToken.Error())
		return
	}

	telemetry.TokensRevokedTotal.WithLabelValues(telemetry.SubjectClient).Inc()
	respond.OK(c, "Logout successful", nil)
}

// @Summary      Send tenant verification email
// @Description  Re-sends the verification link for an unverified tenant account. An unexpired existing token is reused.
// @Tags         Tenant Auth
// @Accept       json
// @Produce      json
// @Param        body  body  emailRequest  true  "Account email"
// @Success      200  {object}  respond.Response  "Verification email sent"
// @Failure      404  {object}  respond.Response  "Client not found"
// @Router       /api/v1/auth/send-verification-email [post]
func (h *Handlers) SendVerificationEmail(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Validation failed")
		return
	}

	if err := h.verifications.ResendClientVerification(c.Request.Context(), req.Email); err != nil {
		respond.Error(c, err, "Failed to send verification email")
		return
	}

	telemetry.VerificationEmailsSentTotal.Inc()
	respond.OK(c, "Verification email sent successfully. Please check your inbox.", nil)
}

// @Summary      Verify tenant email
// @Description  Consumes a verification token and marks the tenant email verified. Tokens are single-use and expire after 24 hours.
// @Tags         Tenant Auth
// @Accept       json
// @Produce      json
// @Param        body  body  verifyRequest  true  "Verification token"
// @Success      200  {object}  respond.Response  "Email verified successfully"
// @Failure      400  {object}  respond.Response  "Invalid, expired, or reused token"
// @Router       /api/v1/auth/verify-email [post]
func (h *Handlers) VerifyEmail(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Verification token is required")
		return
	}

	client, err := h.verifications.VerifyClientToken(c.Request.Context(), req.Token)
	if err != nil {
		respond.Error(c, err, "Email verification failed")
		return
	}

	respond.OK(c, "Email verified successfully", gin.H{"client": client})
}

// @Summary      Tenant profile
// @Description  Returns the authenticated tenant's account. Requires a bearer token.
// @Tags         Tenant Auth
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  respond.Response  "Profile"
// @Failure      401  {object}  respond.Response  "Unauthorized"
// @Failure      404  {object}  respond.Response  "Client not found"
// @Router       /api/v1/auth/me [get]
func (h *Handlers) Me(c *gin.Context) {
	clientID, ok := middleware.ClientIDFromContext(c)
	if !ok {
		respond.Fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	client, err := h.clients.GetByID(c.Request.Context(), clientID)
	if err != nil {
		slog.Error("profile lookup failed", "client_id", clientID, "error", err)
		respond.Fail(c, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	if client == nil {
		respond.Error(c, services.ErrClientNotFound, "Client not found")
		return
	}

	respond.OK(c, "Profile retrieved successfully", client)
}
