package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestSecurityHeadersMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeadersMiddleware(APISecurityHeadersConfig()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := doGet(t, r, "/ping", nil)

	want := map[string]string{
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"X-Frame-Options":           "DENY",
		"X-Content-Type-Options":    "nosniff",
		"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
		"Referrer-Policy":           "no-referrer",
	}
	for header, value := range want {
		if got := w.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}
}

func TestSecurityHeadersDisabledHSTS(t *testing.T) {
	cfg := APISecurityHeadersConfig()
	cfg.EnableHSTS = false

	r := gin.New()
	r.Use(SecurityHeadersMiddleware(cfg))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := doGet(t, r, "/ping", nil)
	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("expected no HSTS header, got %q", got)
	}
}
