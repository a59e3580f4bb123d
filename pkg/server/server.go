// Package server assembles the platform: storage, services, the auth
// gate, the management API, and the proxy engine, on one HTTP server.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mocknest/mocknest/pkg/admin"
	"github.com/mocknest/mocknest/pkg/auth"
	"github.com/mocknest/mocknest/pkg/config"
	"github.com/mocknest/mocknest/pkg/engine"
	"github.com/mocknest/mocknest/pkg/logging"
	"github.com/mocknest/mocknest/pkg/service"
	"github.com/mocknest/mocknest/pkg/store"
)

// Server hosts the management surface and the proxy on one listener.
type Server struct {
	cfg        *config.Config
	log        *slog.Logger
	handler    http.Handler
	httpServer *http.Server
}

// New opens the configured database and assembles a Server.
func New(cfg *config.Config, log *slog.Logger) (*Server, error) {
	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	return NewWithStore(cfg, st, log)
}

// NewWithStore assembles a Server over an existing store. Tests use
// it with the in-memory store.
func NewWithStore(cfg *config.Config, st store.Store, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = logging.Nop()
	}

	secret, generated, err := cfg.EnsureSecret()
	if err != nil {
		return nil, err
	}
	if generated {
		log.Warn("no jwt secret configured, generated a random one; sessions will not survive a restart")
	}

	authenticator := auth.NewAuthenticator(secret, cfg.TokenTTL())

	groups := service.NewGroupService(st, log)
	projects := service.NewProjectService(st, log)
	endpoints := service.NewEndpointService(st, groups, log)
	variants := service.NewVariantService(st, log)
	users := service.NewUserService(st, log)

	api := admin.NewAPI(projects, endpoints, groups, variants, users, authenticator, log)
	proxy := engine.NewHandler(projects, endpoints, variants, log)
	gate := auth.NewGate(authenticator, users, log)

	mux := http.NewServeMux()
	api.Register(mux)
	proxy.Register(mux)

	s := &Server{
		cfg:     cfg,
		log:     log,
		handler: gate.Wrap(mux),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler exposes the fully wired handler chain, for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("server listening", "addr", s.cfg.Listen)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("server shutting down")
	return s.httpServer.Shutdown(ctx)
}
