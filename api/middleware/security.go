package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	strictTransportSecurity = "max-age=31536000; includeSubDomains; preload"

	DefaultMaxBodyBytes int64 = 1 << 20
)

func HSTSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Strict-Transport-Security", strictTransportSecurity)
		c.Next()
	}
}

// BodyLimitMiddleware caps how much of a request body later handlers can read.
func BodyLimitMiddleware(limit int64) gin.HandlerFunc {
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
