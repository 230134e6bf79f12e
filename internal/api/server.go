package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/halduskeskus/postiljon/internal/auth"
	"github.com/halduskeskus/postiljon/internal/config"
)

// Server represents the API server
type Server struct {
	config config.ServerConfig
	server *http.Server
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, h *Handlers, authManager *auth.Manager) *Server {
	router := SetupRoutes(h, authManager, cfg.AllowedOrigins)

	return &Server{
		config: cfg,
		server: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.GetHost(), cfg.Port),
			Handler: router,
			// Execute runs include pacing sleeps, so write timeouts
			// must cover a whole run, not a single round trip.
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Minute,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}
