// Package server is the operator API: a small HTTP surface for watching a
// run, feeding it captcha codes, and pausing, resuming or stopping it.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/marklens/marklens/internal/config"
	apperrors "github.com/marklens/marklens/internal/errors"
	"github.com/marklens/marklens/internal/observability"
	servermw "github.com/marklens/marklens/internal/server/middleware"
)

// Server represents the operator HTTP server.
type Server struct {
	router     *chi.Mux
	server     *http.Server
	cfg        config.ServerConfig
	controller *Controller
}

// New creates the operator server around a run controller.
func New(cfg config.ServerConfig, controller *Controller) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(servermw.RequestID)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router:     r,
		cfg:        cfg,
		controller: controller,
	}

	s.registerRoutes()

	return s
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.cfg.Addr()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting operator server",
			zap.String("addr", addr))
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down operator server")
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}
