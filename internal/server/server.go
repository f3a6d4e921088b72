// Package server provides the HTTP and websocket API of the fingerspell service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ayusman/fingerspell/internal/logging"
	"github.com/ayusman/fingerspell/internal/metrics"
	"github.com/ayusman/fingerspell/internal/server/api"
	"github.com/ayusman/fingerspell/internal/session"
	"github.com/ayusman/fingerspell/internal/store"
)

// ShutdownTimeout bounds graceful shutdown in Run.
const ShutdownTimeout = 5 * time.Second

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Sessions  *session.Manager
	Metrics   *metrics.Manager
	Logger    logging.Logger
}

// Server represents the HTTP server.
type Server struct {
	config Config
	router *mux.Router
	start  time.Time
	logger logging.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		router: mux.NewRouter(),
		start:  time.Now(),
		logger: config.Logger,
	}
	if s.logger == nil {
		s.logger = logging.Named("server")
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	r := s.router
	if s.config.Metrics != nil {
		r.Use(s.metricsMiddleware)
		r.Handle("/metrics", s.config.Metrics.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	if s.config.Sessions != nil {
		lib := s.config.Sessions.Library()

		letters := api.NewLetterHandler(lib)
		r.HandleFunc("/api/letters", letters.List).Methods(http.MethodGet)
		r.HandleFunc("/api/letters/{letter}", letters.Get).Methods(http.MethodGet)

		stream := NewStreamHandler(s.config.Sessions, s.logger)
		r.Handle("/api/sessions/{id}/stream", stream).Methods(http.MethodGet)

		if s.config.Store != nil {
			sessions := api.NewSessionHandler(s.config.Store, s.config.Sessions)
			r.HandleFunc("/api/sessions", sessions.List).Methods(http.MethodGet)
			r.HandleFunc("/api/sessions", sessions.Create).Methods(http.MethodPost)
			r.HandleFunc("/api/sessions/{id}", sessions.Get).Methods(http.MethodGet)
			r.HandleFunc("/api/sessions/{id}", sessions.Delete).Methods(http.MethodDelete)
			r.HandleFunc("/api/sessions/{id}/detections", sessions.Detections).Methods(http.MethodGet)

			bindings := api.NewBindingHandler(s.config.Store, lib)
			r.HandleFunc("/api/bindings", bindings.List).Methods(http.MethodGet)
			r.HandleFunc("/api/bindings", bindings.Create).Methods(http.MethodPost)
			r.HandleFunc("/api/bindings/{id}", bindings.Get).Methods(http.MethodGet)
			r.HandleFunc("/api/bindings/{id}", bindings.Update).Methods(http.MethodPut)
			r.HandleFunc("/api/bindings/{id}", bindings.Delete).Methods(http.MethodDelete)
		}
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Sessions != nil {
		response["live_sessions"] = s.config.Sessions.Live()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		api.WriteError(w, http.StatusInternalServerError, "Failed to encode response")
	}
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Infow("http server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
