// Package http provides the API server, its shared middleware and the
// metrics server.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/metagrid/directory/internal/config"
	"github.com/metagrid/directory/internal/metrics"
)

// Server is the API HTTP server wrapping a gin engine.
type Server struct {
	server       *http.Server
	engine       *gin.Engine
	logger       *slog.Logger
	shuttingDown atomic.Bool
}

// NewServer creates the API server with the shared middleware stack:
// request ids, structured request logging, panic recovery, optional CORS
// and optional request metrics. Module routes are attached afterwards via
// Engine().
func NewServer(cfg *config.Config, logger *slog.Logger, meterProvider otelmetric.MeterProvider) *Server {
	engine := gin.New()
	engine.Use(requestid.New())
	engine.Use(CustomLoggerMiddleware(logger))
	engine.Use(gin.Recovery())

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, logger); corsMiddleware != nil {
		engine.Use(corsMiddleware)
	}

	if meterProvider != nil {
		engine.Use(metrics.HTTPMetricsMiddleware(meterProvider, cfg.MetricsNamespace))
	}

	s := &Server{
		engine: engine,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
			Handler:      engine,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	engine.GET("/health", healthHandler)
	engine.GET("/ready", readyHandler(s.shuttingDown.Load))

	return s
}

// Engine returns the router for route registration and tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start runs the server until it is shut down.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shuttingDown.Store(true)
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
