package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ternarybob/concierge/internal/app"
	"github.com/ternarybob/concierge/internal/common"
)

// Server exposes the app over HTTP
type Server struct {
	app    *app.App
	router *http.ServeMux
	http   *http.Server
}

// New builds the server from the app's configuration and handlers
func New(application *app.App) *Server {
	s := &Server{app: application}
	s.router = s.setupRoutes()

	cfg := application.Config.Server
	s.http = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           s.withMiddleware(s.router),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Ask requests may wait on the generative fallback
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler with middleware
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Addr is the listen address
func (s *Server) Addr() string {
	return s.http.Addr
}

// Run serves until ctx is cancelled, then drains connections for up to
// server.shutdown_timeout. It returns early if the listener fails.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}
	return s.serve(ctx, listener)
}

func (s *Server) serve(ctx context.Context, listener net.Listener) error {
	serveErr := make(chan error, 1)
	common.SafeGo(s.app.Logger, "http-server", func() {
		serveErr <- s.http.Serve(listener)
	})

	s.app.Logger.Info().
		Str("address", listener.Addr().String()).
		Msg("HTTP server listening")

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	timeout := common.ParseDurationOr(s.app.Config.Server.ShutdownTimeout, 10*time.Second)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.app.Logger.Info().Str("timeout", timeout.String()).Msg("Shutting down HTTP server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.app.Logger.Info().Msg("HTTP server stopped")
	return nil
}
