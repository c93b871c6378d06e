// Package serviceauth implements the end-user HTTP handlers exposed to tenant
// backends. Every route here sits behind access-key authentication; the tenant
// id in context scopes each operation to the calling tenant's user namespace.
package serviceauth

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

// UserService is the slice of services.UserService these handlers consume.
type UserService interface {
	Register(ctx context.Context, clientID string, input services.RegisterUserInput, ip, userAgent string) (*services.UserSession, error)
	Login(ctx context.Context, clientID, email, password, ip, userAgent string) (*services.UserSession, error)
	Refresh(ctx context.Context, clientID, accessToken string) (*services.RefreshResult, error)
	Logout(ctx context.Context, clientID, refreshToken, ip, userAgent string) error
	GetByID(ctx context.Context, clientID, userID string) (*models.ServiceUser, error)
}

// VerificationService is the end-user slice of services.VerificationService.
type VerificationService interface {
	ResendUserVerification(ctx context.Context, clientID, email string) error
	VerifyUserToken(ctx context.Context, token, clientID string) (*models.ServiceUser, error)
}

// Handlers carries the dependencies for the end-user endpoints.
type Handlers struct {
	users         UserService
	verifications VerificationService
}

// NewHandlers creates the end-user auth handlers.
func NewHandlers(users UserService, verifications VerificationService) *Handlers {
	return &Handlers{users: users, verifications: verifications}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// The refreshToken field carries the short-lived access token; the endpoint
// answers with a fresh refresh token. The asymmetric naming is part of the
// public contract and kept for client compatibility.
type refreshRequest struct {
	AccessToken string `json:"refreshToken" binding:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type profileRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type verifyRequest struct {
	Token string `json:"token" binding:"required,min=32,max=200"`
}

func tenantID(c *gin.Context) (string, bool) {
	clientID, ok := middleware.ClientIDFromContext(c)
	if !ok {
		respond.Fail(c, http.StatusUnauthorized, "Invalid access key")
	}
	return clientID, ok
}

// @Summary      Register end-user
// @Description  Creates an end-user in the calling tenant's namespace and opens a first session.
// @Tags         End-User Auth
// @Security     AccessKey
// @Accept       json
// @Produce      json
// @Param        body  body  services.RegisterUserInput  true  "Registration fields"
// @Success      201  {object}  respond.Response  "User registered successfully"
// @Failure      409  {object}  respond.Response  "User with this email already exists"
// @Router       /api/v1/service-auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	clientID, ok := tenantID(c)
	if !ok {
		return
	}

	var input services.RegisterUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		telemetry.RegistrationsTotal.WithLabelValues(telemetry.SubjectUser, telemetry.OutcomeFailure).Inc()
		respond.BadRequest(c, "Validation failed")
		return
	}

	session, err := h.users.Register(c.Request.Context(), clientID, input, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		telemetry.RegistrationsTotal.WithLabelValues(telemetry.SubjectUser, telemetry.OutcomeFailure).Inc()
		respond.Error(c, err, "Registration failed. Please try again.")
		return
	}

	telemetry.RegistrationsTotal.WithLabelValues(telemetry.SubjectUser, telemetry.OutcomeSuccess).Inc()
	telemetry.TokensIssuedTotal.WithLabelValues(telemetry.SubjectUser, "access").Inc()
	telemetry.TokensIssuedTotal.WithLabelValues(telemetry.SubjectUser, "refresh").Inc()
	respond.Created(c, "User registered successfully", session)
}

// @Summary      End-user login
// @Description  Authenticates an end-user within the calling tenant's namespace. Unverified emails may log in; verification is the tenant's policy call.
// @Tags         End-User Auth
// @Security     AccessKey
// @Accept       json
// @Produce      json
// @Param        body  body  loginRequest  true  "Credentials"
// @Success      200  {object}  respond.Response  "Login successful"
// @Failure      401  {object}  respond.Response  "Invalid email or password"
// @Router       /api/v1/service-auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	clientID, ok := tenantID(c)
	if !ok {
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Validation failed")
		return
	}

	session, err := h.users.Login(c.Request.Context(), clientID, req.Email, req.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		telemetry.LoginsTotal.WithLabelValues(telemetry.SubjectUser, telemetry.OutcomeFailure).Inc()
		respond.AuthError(c, err, "Login failed. Please check your credentials.")
		return
	}

	telemetry.LoginsTotal.WithLabelValues(telemetry.SubjectUser, telemetry.OutcomeSuccess).Inc()
	telemetry.TokensIssuedTotal.WithLabelValues(telemetry.SubjectUser, "access").Inc()
	telemetry.TokensIssuedTotal.WithLabelValues(telemetry.SubjectUser, "refresh").Inc()
	respond.OK(c, "Login successful", session)
}

// @Summary      Refresh end-user tokens
// @Description  Exchanges a live access token for a new refresh token, revoking the previous one.
// @Tags         End-User Auth
// @Security     AccessKey
// @Accept       json
// @Produce      json
// @Param        body  body  refreshRequest  true  "Access token"
// @Success      200  {object}  respond.Response  "Token refreshed successfully"
// @Failure      401  {object}  respond.Response  "Invalid or expired access token"
// @Router       /api/v1/service-auth/refresh-token [post]
func (h *Handlers) Refresh(c *gin.Context) {
	clientID, ok := tenantID(c)
	if !ok {
		return
	}

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Refresh token is required")
		return
	}

	result, err := h.users.Refresh(c.Request.Context(), clientID, req.AccessToken)
	if err != nil {
		respond.AuthError(c, err, services.ErrInvalidAccessToken.Error())
		return
	}

	telemetry.TokensIssuedTotal.WithLabelValues(telemetry.SubjectUser, "refresh").Inc()
	respond.OK(c, "Token refreshed successfully", result)
}

// @Summary      End-user logout
// @Description  Revokes the presented refresh token and audits the logout. All failures read the same.
// @Tags         End-User Auth
// @Security     AccessKey
// @Accept       json
// @Produce      json
// @Param        body  body  logoutRequest  true  "Refresh token"
// @Success      200  {object}  respond.Response  "Logout successful"
// @Failure      401  {object}  respond.Response  "Invalid refresh token"
// @Router       /api/v1/service-auth/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	clientID, ok := tenantID(c)
	if !ok {
		return
	}

	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Refresh token is required")
		return
	}

	if err := h.users.Logout(c.Request.Context(), clientID, req.RefreshToken, c.ClientIP(), c.Request.UserAgent()); err != nil {
		respond.AuthError(c, err, services.ErrInvalidRefreshToken.Error())
		return
	}

	telemetry.TokensRevokedTotal.WithLabelValues(telemetry.SubjectUser).Inc()
	respond.OK(c, "Logout successful", nil)
}

// @Summary      Fetch end-user profile
// @Description  Looks up an end-user by id within the calling tenant's namespace.
// @Tags         End-User Auth
// @Security     AccessKey
// @Accept       json
// @Produce      json
// @Param        body  body  profileRequest  true  "User id"
// @Success      200  {object}  respond.Response  "User profile retrieved successfully"
// @Failure      404  {object}  respond.Response  "User not found"
// @Router       /api/v1/service-auth/profile [post]
func (h *Handlers) Profile(c *gin.Context) {
	clientID, ok := tenantID(c)
	if !ok {
		return
	}

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "User ID is required")
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), clientID, req.UserID)
	if err != nil {
		respond.Error(c, err, "Failed to retrieve profile")
		return
	}
	if user == nil {
		respond.Error(c, services.ErrUserNotFound, "User not found")
		return
	}

	respond.OK(c, "User profile retrieved successfully", user)
}

// @Summary      Current end-user
// @Description  Returns the end-user owning the refresh token presented via X-Refresh-Token. The token must belong to the calling tenant.
// @Tags         End-User Auth
// @Security     AccessKey
// @Produce      json
// @Success      200  {object}  respond.Response  "User profile retrieved successfully"
// @Failure      401  {object}  respond.Response  "Invalid or revoked refresh token"
// @Router       /api/v1/service-auth/me [get]
func (h *Handlers) Me(c *gin.Context) {
	clientID, ok := tenantID(c)
	if !ok {
		return
	}

	userID, exists := c.Get(middleware.ContextUserIDKey)
	uid, _ := userID.(string)
	if !exists || uid == "" {
		respond.Fail(c, http.StatusUnauthorized, "Invalid or revoked refresh token")
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), clientID, uid)
	if err != nil {
		slog.Error("me lookup failed", "client_id", clientID, "user_id", uid, "error", err)
		respond.Fail(c, http.StatusInternalServerError, "Failed to retrieve profile")
		return
	}
	if user == nil {
		respond.Error(c, services.ErrUserNotFound, "User not found")
		return
	}

	respond.OK(c, "User profile retrieved successfully", user)
}

// @Summary      Send end-user verification email
// @Description  Re-sends the verification link for an unverified end-user in the calling tenant's namespace.
// @Tags         End-User Auth
// @Security     AccessKey
// @Accept       json
// @Produce      json
// @Param        body  body  emailRequest  true  "User email"
// @Success      200  {object}  respond.Response  "Verification email sent"
// @Failure      404  {object}  respond.Response  "User not found"
// @Router       /api/v1/service-auth/send-verification-email [post]
func (h *Handlers) SendVerificationEmail(c *gin.Context) {
	clientID, ok := tenantID(c)
	if !ok {
		return
	}

	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Validation failed")
		return
	}

	if err := h.verifications.ResendUserVerification(c.Request.Context(), clientID, req.Email); err != nil {
		respond.Error(c, err, "Failed to send verification email")
		return
	}

	telemetry.VerificationEmailsSentTotal.Inc()
	respond.OK(c, "Verification email sent successfully. Please check your inbox.", nil)
}

// @Summary      Verify end-user email
// @Description  Consumes a verification token for an end-user. Tokens minted for another tenant's user are rejected.
// @Tags         End-User Auth
// @Security     AccessKey
// @Accept       json
// @Produce      json
// @Param        body  body  verifyRequest  true  "Verification token"
// @Success      200  {object}  respond.Response  "Email verified successfully"
// @Failure      400  {object}  respond.Response  "Invalid, expired, or reused token"
// @Router       /api/v1/service-auth/verify-email [post]
func (h *Handlers) VerifyEmail(c *gin.Context) {
	clientID, ok := tenantID(c)
	if !ok {
		return
	}

	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Verification token is required")
		return
	}

	user, err := h.verifications.VerifyUserToken(c.Request.Context(), req.Token, clientID)
	if err != nil {
		respond.Error(c, err, "Email verification failed")
		return
	}

	respond.OK(c, "Email verified successfully", gin.H{"user": user})
}
