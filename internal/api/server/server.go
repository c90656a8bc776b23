package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/api/middleware"
	"github.com/feral-file/ff-marketplace/internal/api/rest"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/metrics"
	"github.com/feral-file/ff-marketplace/internal/wallet"
	"github.com/feral-file/ff-marketplace/internal/workflows"
)

// Config holds the server configuration
type Config struct {
	Debug           bool
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxUploadSize   int64
	RefreshInterval time.Duration
	CycleTimeout    time.Duration
	Auth            middleware.AuthConfig
}

// Server wraps the HTTP server
type Server struct {
	config         Config
	provider       wallet.Provider
	minter         workflows.Minter
	lister         workflows.OwnershipLister
	metrics        *metrics.Metrics
	metricsHandler http.Handler
	httpServer     *http.Server
}

// New creates a new API server
func New(
	cfg Config,
	provider wallet.Provider,
	minter workflows.Minter,
	lister workflows.OwnershipLister,
	m *metrics.Metrics,
	metricsHandler http.Handler,
) *Server {
	return &Server{
		config:         cfg,
		provider:       provider,
		minter:         minter,
		lister:         lister,
		metrics:        m,
		metricsHandler: metricsHandler,
	}
}

// Router builds the gin engine with middleware and routes
func (s *Server) Router() *gin.Engine {
	// Set Gin mode based on debug flag
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if s.config.MaxUploadSize > 0 {
		router.MaxMultipartMemory = s.config.MaxUploadSize
	}

	// Setup middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.SetupCORS())

	restHandler := rest.NewHandler(rest.Config{
		MaxUploadSize:   s.config.MaxUploadSize,
		RefreshInterval: s.config.RefreshInterval,
		CycleTimeout:    s.config.CycleTimeout,
	}, s.provider, s.minter, s.lister, s.metrics)

	rest.SetupRoutes(router, restHandler, s.config.Auth, s.metricsHandler)

	return router
}

// Start initializes and starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	logger.InfoCtx(ctx, "Starting API server",
		zap.String("address", addr),
		zap.String("wallet", s.provider.ConnectedAddress()),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.InfoCtx(ctx, "Shutting down API server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}
