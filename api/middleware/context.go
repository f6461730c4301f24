package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/customeros/metricsrelay/internal/utils"
)

const (
	HeaderRequestId = "X-Request-Id"

	requestIdPrefix = "req"
	requestIdSize   = 21
)

// RequestIdMiddleware tags every request with a correlation id, reusing the caller's when present
func RequestIdMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestId := c.GetHeader(HeaderRequestId)
		if requestId == "" {
			requestId = utils.GenerateNanoIDWithPrefix(requestIdPrefix, requestIdSize)
		}
		c.Set("RequestId", requestId)
		c.Header(HeaderRequestId, requestId)
		c.Next()
	}
}

// CustomContextMiddleware adds custom context to all requests
func CustomContextMiddleware(appSource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := utils.WithCustomContextFromGinRequest(c, appSource)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
