package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/information-sharing-networks/sri-gateway/internal/config"
	"github.com/information-sharing-networks/sri-gateway/internal/logger"
	"github.com/information-sharing-networks/sri-gateway/internal/server/handlers"
	"github.com/information-sharing-networks/sri-gateway/internal/server/middleware"
	"github.com/information-sharing-networks/sri-gateway/internal/services"
	"github.com/information-sharing-networks/sri-gateway/internal/version"
)

type Server struct {
	services *services.Services
	config   *config.ServerEnvironment
	logger   *slog.Logger
	router   *chi.Mux
}

func NewServer(
	svcs *services.Services,
	cfg *config.ServerEnvironment,
	logger *slog.Logger,
) *Server {
	server := &Server{
		services: svcs,
		config:   cfg,
		logger:   logger,
		router:   chi.NewRouter(),
	}

	server.setupMiddleware()
	server.registerRoutes()

	return server
}

// Handler returns the routed handler (used by tests).
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(logger.RequestLogging(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.Timeout(s.config.RequestTimeout))
	s.router.Use(middleware.SecurityHeaders(s.config.Environment))
}

func (s *Server) registerRoutes() {
	s.router.Get("/health/live", handlers.HandleHealth)
	s.router.Get("/health/ready", handlers.HandleReadiness(s.services.Cache))
	s.router.Get("/version", handlers.HandleVersion(version.Get()))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst))
		r.Use(middleware.RequestSizeLimit(s.config.MaxRequestBodyBytes))

		r.Get("/config", handlers.HandleConfig(s.services.Environments, s.services.Cache))
		r.Post("/invoices/emit", handlers.HandleEmit(s.services.Workflow))
		r.Get("/invoices/{accessKey}/status", handlers.HandleStatus(s.services.Workflow))
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
// The idempotency sweeper runs for the lifetime of the server.
func (s *Server) Start(ctx context.Context) error {
	serverAddr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	s.services.Cache.StartSweeper(ctx, s.config.CacheSweepInterval)

	serverErrors := make(chan error, 1)

	go func() {
		health := s.services.Cache.Health()
		s.logger.Info("service listening",
			slog.String("environment", s.config.Environment),
			slog.String("address", serverAddr),
			slog.String("cache_backend", health.Backend),
			slog.Bool("cache_fallback", health.Fallback),
		)

		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.ServerShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("shutting down HTTP server")

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("HTTP server shutdown error",
			slog.String("error", err.Error()))
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// Shutdown releases the idempotency store and database connections.
func (s *Server) Shutdown() {
	s.services.Close()
}
