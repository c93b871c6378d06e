// Package respond defines the response envelope and the error-to-status
// mapping shared by every handler package. All responses carry the shape
// {success, message, data}; service sentinel errors carry the exact message
// shown to callers, so handlers only decide the status code, and that decision
// lives in one table here.
package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/service-auth/service-auth/internal/services"
)

// Response is the envelope for every API response.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// OK writes a 200 success envelope.
func OK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Message: message, Data: data})
}

// Created writes a 201 success envelope.
func Created(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, Response{Success: true, Message: message, Data: data})
}

// Fail writes a failure envelope with the given status.
func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Success: false, Message: message})
}

// statusByError maps service sentinels to HTTP statuses. Anything unlisted is
// an internal failure.
var statusByError = []struct {
	err    error
	status int
}{
	{services.ErrClientExists, http.StatusConflict},
	{services.ErrUserExists, http.StatusConflict},
	{services.ErrInvalidCredentials, http.StatusUnauthorized},
	{services.ErrEmailNotVerified, http.StatusUnauthorized},
	{services.ErrInvalidAccessToken, http.StatusUnauthorized},
	{services.ErrInvalidRefreshToken, http.StatusUnauthorized},
	{services.ErrTokenClientMismatch, http.StatusUnauthorized},
	{services.ErrInvalidAccessKey, http.StatusUnauthorized},
	{services.ErrInvalidAccessKeySecret, http.StatusUnauthorized},
	{services.ErrClientNotFound, http.StatusNotFound},
	{services.ErrUserNotFound, http.StatusNotFound},
	{services.ErrAccessKeyNotFound, http.StatusNotFound},
	{services.ErrInvalidEnvironment, http.StatusBadRequest},
	{services.ErrInvalidRateLimit, http.StatusBadRequest},
	{services.ErrVerificationTokenInvalid, http.StatusBadRequest},
	{services.ErrVerificationTokenExpired, http.StatusBadRequest},
	{services.ErrEmailAlreadyVerified, http.StatusBadRequest},
	{services.ErrEmailMismatch, http.StatusBadRequest},
}

// Error writes the envelope for a service error. Known sentinels keep their
// own message and mapped status; anything else becomes a 500 with the supplied
// fallback message so internal details never leak.
func Error(c *gin.Context, err error, fallback string) {
	for _, entry := range statusByError {
		if errors.Is(err, entry.err) {
			Fail(c, entry.status, entry.err.Error())
			return
		}
	}
	Fail(c, http.StatusInternalServerError, fallback)
}

// AuthError is like Error but collapses unknown failures into a 401 with the
// fallback message. Login, refresh, and logout endpoints use it so an internal
// failure is indistinguishable from a rejection.
func AuthError(c *gin.Context, err error, fallback string) {
	for _, entry := range statusByError {
		if errors.Is(err, entry.err) {
			Fail(c, entry.status, entry.err.Error())
			return
		}
	}
	Fail(c, http.StatusUnauthorized, fallback)
}

// BadRequest writes a 400 validation failure.
func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, message)
}
