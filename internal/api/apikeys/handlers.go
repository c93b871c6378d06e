// Package apikeys implements the access-key management endpoints used from
// the tenant dashboard. Callers authenticate with a bearer token from the
// tenant login flow; every operation is scoped to the authenticated tenant.
package apikeys

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/service-auth/service-auth/internal/api/respond"
	"github.com/service-auth/service-auth/internal/db/models"
	"github.com/service-auth/service-auth/internal/middleware"
	"github.com/service-auth/service-auth/internal/services"
)

// SecretWarning accompanies every freshly issued key. The plaintext secret
// exists only in that one response.
const SecretWarning = "⚠️ Store your access_key_secret securely. It will not be shown again."

// KeyService is the slice of services.AccessKeyService these handlers consume.
type KeyService interface {
	Issue(ctx context.Context, clientID, environment string, rateLimit int) (*services.IssuedKey, error)
	List(ctx context.Context, clientID string) ([]*models.ServiceAccessKey, error)
	Revoke(ctx context.Context, accessKeyID, clientID string) (*services.RevokedKey, error)
}

// ClientDirectory confirms the authenticated tenant still exists before any
// key operation runs.
type ClientDirectory interface {
	GetByID(ctx context.Context, id string) (*models.Client, error)
}

// Handlers carries the dependencies for the key management endpoints.
type Handlers struct {
	keys    KeyService
	clients ClientDirectory
}

// NewHandlers creates the access-key handlers.
func NewHandlers(keys KeyService, clients ClientDirectory) *Handlers {
	return &Handlers{keys: keys, clients: clients}
}

type createKeyRequest struct {
	Environment string `json:"environment"`
	RateLimit   int    `json:"rate_limit"`
}

type issuedKeyResponse struct {
	*services.IssuedKey
	Warning string `json:"warning"`
}

// requireClient resolves the authenticated tenant and verifies the account
// still exists. A deleted account holding a live token gets a 404.
func (h *Handlers) requireClient(c *gin.Context) (string, bool) {
	clientID, ok := middleware.ClientIDFromContext(c)
	if !ok {
		respond.Fail(c, http.StatusUnauthorized, "Authentication required")
		return "", false
	}

	client, err := h.clients.GetByID(c.Request.Context(), clientID)
	if err != nil {
		slog.Error("client lookup failed", "client_id", clientID, "error", err)
		respond.Fail(c, http.StatusInternalServerError, "Failed to verify account")
		return "", false
	}
	if client == nil {
		respond.Error(c, services.ErrClientNotFound, "Client not found")
		return "", false
	}
	return clientID, true
}

// @Summary      Generate access key
// @Description  Mints a new access key pair for the tenant. The secret appears only in this response.
// @Tags         Access Keys
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  createKeyRequest  false  "Environment and rate limit (both optional)"
// @Success      201  {object}  respond.Response  "API access key generated successfully"
// @Failure      400  {object}  respond.Response  "Invalid environment or rate limit"
// @Router       /api/v1/api-clients [post]
func (h *Handlers) Create(c *gin.Context) {
	clientID, ok := h.requireClient(c)
	if !ok {
		return
	}

	var req createKeyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, "Validation failed")
			return
		}
	}

	issued, err := h.keys.Issue(c.Request.Context(), clientID, req.Environment, req.RateLimit)
	if err != nil {
		respond.Error(c, err, "Failed to generate access key")
		return
	}

	respond.Created(c, "API access key generated successfully", issuedKeyResponse{
		IssuedKey: issued,
		Warning:   SecretWarning,
	})
}

// @Summary      List access keys
// @Description  Lists the tenant's active access keys. Secrets are never included.
// @Tags         Access Keys
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  respond.Response  "API access keys retrieved successfully"
// @Router       /api/v1/api-clients [get]
func (h *Handlers) List(c *gin.Context) {
	clientID, ok := h.requireClient(c)
	if !ok {
		return
	}

	keys, err := h.keys.List(c.Request.Context(), clientID)
	if err != nil {
		respond.Error(c, err, "Failed to retrieve access keys")
		return
	}
	if keys == nil {
		keys = []*models.ServiceAccessKey{}
	}

	respond.OK(c, "API access keys retrieved successfully", gin.H{
		"keys":  keys,
		"count": len(keys),
	})
}

// @Summary      Delete access key
// @Description  Permanently deletes an access key. A key owned by another tenant reports not-found.
// @Tags         Access Keys
// @Security     Bearer
// @Produce      json
// @Param        access_key_id  path  string  true  "Access key id"
// @Success      200  {object}  respond.Response  "API access key permanently deleted successfully"
// @Failure      404  {object}  respond.Response  "Access key not found"
// @Router       /api/v1/api-clients/{access_key_id} [delete]
func (h *Handlers) Delete(c *gin.Context) {
	clientID, ok := h.requireClient(c)
	if !ok {
		return
	}

	accessKeyID := c.Param("access_key_id")
	if accessKeyID == "" {
		respond.BadRequest(c, "Access key ID is required")
		return
	}

	revoked, err := h.keys.Revoke(c.Request.Context(), accessKeyID, clientID)
	if err != nil {
		respond.Error(c, err, "Failed to delete access key")
		return
	}

	respond.OK(c, "API access key permanently deleted successfully", revoked)
}
