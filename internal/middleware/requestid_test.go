package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestRequestIDGenerated(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		id, exists := c.Get(RequestIDKey)
		if !exists || id == "" {
			t.Error("request id missing from context")
		}
		c.Status(http.StatusOK)
	})

	w := doGet(t, r, "/ping", nil)
	id := w.Header().Get(RequestIDHeader)
	if id == "" {
		t.Fatal("response missing X-Request-ID header")
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("generated request id %q is not a UUID: %v", id, err)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := doGet(t, r, "/ping", map[string]string{RequestIDHeader: "upstream-id-123"})
	if got := w.Header().Get(RequestIDHeader); got != "upstream-id-123" {
		t.Errorf("expected upstream request id to be reused, got %q", got)
	}
}
