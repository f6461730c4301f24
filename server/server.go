package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/customeros/metricsrelay/api"
	"github.com/customeros/metricsrelay/config"
	"github.com/customeros/metricsrelay/internal/cron"
	"github.com/customeros/metricsrelay/internal/logger"
	"github.com/customeros/metricsrelay/internal/repository"
	"github.com/customeros/metricsrelay/internal/tracing"
	"github.com/customeros/metricsrelay/services"
)

type Server struct {
	config       *config.Config
	log          logger.Logger
	httpServer   *http.Server
	router       *gin.Engine
	services     *services.Services
	cronManager  *cron.CronManager
	tracerCloser io.Closer
}

// NewServer wires the application. warehouseDB is nil unless the warehouse sink is enabled.
func NewServer(ctx context.Context, cfg *config.Config, warehouseDB *gorm.DB) (*Server, error) {
	// Initialize logger
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	// Initialize tracing
	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		return nil, errors.Wrap(err, "Could not initialize jaeger tracer")
	}
	opentracing.SetGlobalTracer(tracer)

	var repos *repository.Repositories
	if warehouseDB != nil {
		repos = repository.InitRepositories(warehouseDB)
	}

	// Initialize services
	svcs, err := services.InitServices(ctx, cfg, appLogger, repos)
	if err != nil {
		closer.Close()
		return nil, err
	}

	// Initialize Gin
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger())

	return &Server{
		config:       cfg,
		log:          appLogger,
		router:       router,
		services:     svcs,
		cronManager:  cron.NewCronManager(cfg.CronConfig, appLogger, svcs.AuthCache),
		tracerCloser: closer,
		httpServer: &http.Server{
			Addr:    ":" + cfg.AppConfig.APIPort,
			Handler: router,
		},
	}, nil
}

func (s *Server) Initialize() error {
	// Setup API routes
	api.RegisterRoutes(s.router, s.services, api.RouterConfig{
		DocsDir:            s.config.AppConfig.DocsDir,
		FailedRequestDelay: s.config.AppConfig.FailedRequestDelay,
		MaxBodyBytes:       s.config.AppConfig.MaxBodyBytes,
	}, s.log)

	if err := s.services.StartListeners(s.config, s.log); err != nil {
		return err
	}

	return s.cronManager.StartCron()
}

func (s *Server) recoverWithJaeger(name string) {
	if r := recover(); r != nil {
		// Create a new span for the panic
		span := opentracing.GlobalTracer().StartSpan(
			fmt.Sprintf("panic.%s", name),
		)
		defer span.Finish()

		// Mark span as failed
		ext.Error.Set(span, true)

		// Log panic details
		span.LogKV(
			"event", "panic",
			"process", name,
			"error", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)

		s.log.Errorf("Panic in %s: %v\n%s", name, r, debug.Stack())
	}
}

func (s *Server) wrapGoroutine(name string, fn func()) {
	defer s.recoverWithJaeger(name)
	fn()
}

func (s *Server) Run() error {
	// Initialize server components
	if err := s.Initialize(); err != nil {
		return err
	}

	// Start HTTP server in a goroutine with panic recovery
	go s.wrapGoroutine("http_server", func() {
		s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("HTTP server error: %v", err)
		}
	})
	s.log.Info("Metrics relay is now running. Press Ctrl+C to exit.")

	return s.waitForShutdown()
}

func (s *Server) waitForShutdown() error {
	defer s.recoverWithJaeger("shutdown")

	// Set up signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Wait for termination signal
	<-stop
	s.log.Info("Shutting down...")

	// Create a context with timeout for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.AppConfig.ShutdownTimeout)
	defer shutdownCancel()

	// in-flight requests finish their dispatches before the sinks close
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("HTTP server shutdown error: %v", err)
	} else {
		s.log.Info("HTTP server shut down successfully")
	}

	s.cronManager.Stop()

	if err := s.services.Close(); err != nil {
		s.log.Errorf("Error closing services: %v", err)
	}

	if s.tracerCloser != nil {
		s.tracerCloser.Close()
	}

	// stdout sync errors are expected on some platforms
	_ = s.log.Sync()
	return nil
}
