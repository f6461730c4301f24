package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/customeros/metricsrelay/api/response"
	"github.com/customeros/metricsrelay/interfaces"
)

type APIHandlers struct {
	Metrics *MetricsHandler
}

func InitHandlers(relay Dispatcher, analytics interfaces.AnalyticsService, profile interfaces.ProfileService) *APIHandlers {
	return &APIHandlers{
		Metrics: NewMetricsHandler(relay, analytics, profile),
	}
}

// Handle adapts a handler returning an error to gin. The result always goes through the mapper.
func Handle(mapper *response.Mapper, fn func(c *gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		mapper.Write(c, fn(c))
	}
}
