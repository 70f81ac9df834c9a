package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/spherical/hs-classifier/internal/config"
	"github.com/spherical/hs-classifier/internal/observability"
)

// Server is the HTTP front end with graceful shutdown.
type Server struct {
	srv    *http.Server
	cfg    config.ServerConfig
	logger *observability.Logger
}

// NewServer creates a server for handler using cfg's address and timeouts.
func NewServer(cfg config.ServerConfig, handler http.Handler, logger *observability.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		cfg:    cfg,
		logger: logger.WithOperation("server"),
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Run serves until ctx is cancelled, then drains in-flight requests for at
// most cfg.GracefulShutdown.
func (s *Server) Run(ctx context.Context) error {
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("HTTP server listening")
		serverErrors <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		s.logger.Info().Msg("Shutdown started")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GracefulShutdown)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			_ = s.srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info().Msg("Shutdown complete")
		return nil
	}
}
