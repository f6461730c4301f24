package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/metricsrelay/api/handlers"
	"github.com/customeros/metricsrelay/api/middleware"
	"github.com/customeros/metricsrelay/api/response"
	"github.com/customeros/metricsrelay/internal/logger"
	"github.com/customeros/metricsrelay/internal/tracing"
	"github.com/customeros/metricsrelay/services"
)

const AppSource = "metricsrelay"

type RouterConfig struct {
	// DocsDir holds the static API docs; empty disables /docs and the / redirect
	DocsDir            string
	FailedRequestDelay time.Duration
	// MaxBodyBytes caps /api request bodies; zero uses middleware.DefaultMaxBodyBytes
	MaxBodyBytes int64
}

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(r *gin.Engine, s *services.Services, cfg RouterConfig, log logger.Logger) {
	if s == nil {
		panic("Services cannot be nil")
	}

	mapper := response.NewMapper(log)

	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		mapper.Abort(c, errors.Errorf("panic: %v", recovered))
	}))
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))
	r.Use(cors.New(corsConfig()))
	r.Use(middleware.HSTSMiddleware())

	apiHandlers := handlers.InitHandlers(s.Relay, s.AnalyticsService, s.ProfileService)

	// Health check and status endpoints (no custom context needed)
	r.GET("/health", handlers.HealthCheck(mapper))
	r.GET("/status", handlers.Handle(mapper, handlers.Status))

	if cfg.DocsDir != "" {
		r.Static("/docs", cfg.DocsDir)
		r.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusFound, "/docs/")
		})
	}

	optionalAuth := middleware.AuthMiddleware(s.AuthVerifier, mapper, true)
	requiredAuth := middleware.AuthMiddleware(s.AuthVerifier, mapper, false)

	api := r.Group("/api")
	api.Use(middleware.BodyLimitMiddleware(cfg.MaxBodyBytes))
	api.Use(middleware.RequestIdMiddleware())
	api.Use(middleware.CustomContextMiddleware(AppSource))
	api.Use(middleware.TracingMiddleware())
	{
		api.POST("/event",
			middleware.FailedRequestThrottle(s.Relay, mapper, cfg.FailedRequestDelay),
			optionalAuth,
			handlers.Handle(mapper, apiHandlers.Metrics.Event),
		)
		api.POST("/identify", requiredAuth, handlers.Handle(mapper, apiHandlers.Metrics.Identify))
		api.POST("/syncProfile", requiredAuth, handlers.Handle(mapper, apiHandlers.Metrics.SyncProfile))
	}
}

func corsConfig() cors.Config {
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AddAllowHeaders("Authorization", middleware.HeaderRequestId)
	config.AddExposeHeaders(middleware.HeaderRequestId)
	return config
}
