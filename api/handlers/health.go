package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/customeros/metricsrelay/api/response"
)

// HealthCheck provides a simple health check endpoint
func HealthCheck(mapper *response.Mapper) gin.HandlerFunc {
	return func(c *gin.Context) {
		mapper.JSON(c, gin.H{
			"status": "ok",
		})
	}
}

// Status is the load balancer check: 200 with an empty body
func Status(c *gin.Context) error {
	return nil
}
