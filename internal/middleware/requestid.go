package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the canonical HTTP header used to propagate the request identifier.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key under which the request ID string is stored so
	// that handlers and other middleware can retrieve it without reading the response header.
	RequestIDKey = "request_id"
)

// RequestIDMiddleware assigns every request a correlation id. An inbound
// X-Request-ID (from an upstream proxy or the tenant's backend) is reused
// unchanged; otherwise a fresh UUID v4 is generated. The id is stored in
// gin.Context under RequestIDKey for the request logger and echoed back in
// the response header so callers can quote it when reporting a failed
// authentication call. Registered right after gin.Recovery so every log line,
// including audit-adjacent ones, carries the id.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}
