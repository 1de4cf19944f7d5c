// Package http provides HTTP server implementation and request routing.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"

	"github.com/allisson/authtokens/internal/config"
	"github.com/allisson/authtokens/internal/metrics"
	tokenHTTP "github.com/allisson/authtokens/internal/token/http"
	tokenUsecase "github.com/allisson/authtokens/internal/token/usecase"
)

// apiScope is the scope required on caller tokens for the management
// endpoints. API keys carry it by default.
const apiScope = "api"

// Server represents the API HTTP server.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer creates the API server with all routes registered.
//
// Route layout:
//   - GET  /health, /ready                  liveness and readiness
//   - POST /v1/tokens                       issuance (IP rate limited, unauthenticated)
//   - POST /v1/tokens/:id/rotate            rotation (bearer auth)
//   - DELETE /v1/tokens/:id                 revocation (bearer auth)
//   - DELETE /v1/users/:user_id/tokens      bulk revocation (bearer auth)
//   - GET  /v1/users/:user_id/tokens        listing (bearer auth)
//
// Issuance is called by backend services before they hold a token of their
// own, so it is guarded by the IP rate limiter instead of bearer auth. All
// other routes authenticate with an API key through the lifecycle service
// itself. meterProvider may be nil when metrics are disabled.
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	tokenHandler *tokenHTTP.TokenHandler,
	tokenUseCase tokenUsecase.TokenUseCase,
	meterProvider metric.MeterProvider,
) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(CustomLoggerMiddleware(logger))

	if meterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(meterProvider, cfg.MetricsNamespace))
	}

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	router.GET("/health", HealthHandler)
	router.GET("/ready", ReadinessHandler)

	v1 := router.Group("/v1")

	issue := v1.Group("/tokens")
	if cfg.RateLimitTokenEnabled {
		issue.Use(tokenHTTP.RateLimitMiddleware(
			cfg.RateLimitTokenRequestsPerSec,
			cfg.RateLimitTokenBurst,
			logger,
		))
	}
	issue.POST("", tokenHandler.CreateHandler)

	authenticated := v1.Group("")
	authenticated.Use(tokenHTTP.AuthenticationMiddleware(tokenUseCase, logger))
	authenticated.Use(tokenHTTP.RequireScope(apiScope, logger))
	authenticated.POST("/tokens/:id/rotate", tokenHandler.RotateHandler)
	authenticated.DELETE("/tokens/:id", tokenHandler.RevokeHandler)
	authenticated.DELETE("/users/:user_id/tokens", tokenHandler.RevokeUserTokensHandler)
	authenticated.GET("/users/:user_id/tokens", tokenHandler.ListUserTokensHandler)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
