package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-marketplace/internal/api/middleware"
	"github.com/feral-file/ff-marketplace/internal/logger"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig, metricsHandler http.Handler) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	mintChain := []gin.HandlerFunc{handler.Mint}
	if authCfg.Enabled() {
		mintChain = append([]gin.HandlerFunc{middleware.Auth(authCfg)}, mintChain...)
	} else {
		logger.Warn("No API keys or JWT public key configured, mint endpoint is unauthenticated")
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Wallet session (public read access)
		v1.GET("/session", handler.GetSession)

		// Minting spends the service wallet's gas (requires authentication when configured)
		v1.POST("/mint", mintChain...)

		// Ownership listing (public read access)
		v1.GET("/owners/:address/tokens", handler.ListOwnedTokens)
		v1.GET("/owners/:address/tokens/watch", handler.WatchOwnedTokens)

		// Token endpoints (public read access)
		v1.GET("/tokens/:id", handler.GetToken)
		v1.GET("/supply", handler.GetSupply)
	}
}
