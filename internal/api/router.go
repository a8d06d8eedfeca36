package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nerrad567/docbind/internal/auth"
	"github.com/nerrad567/docbind/internal/database"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(middleware.RequestSize(maxRequestBodySize))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, r, http.StatusNotFound, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Login exists only when tokens can be issued
		if s.authEnabled() {
			r.Post("/auth/login", s.handleLogin)
		}

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/database", func(r chi.Router) {
				r.With(s.requirePermission(auth.PermDatabaseRead)).Get("/", s.handleDatabaseStatus)
				r.With(s.requirePermission(auth.PermDatabaseRead)).Get("/health", s.handleDatabaseHealth)
				r.With(s.requirePermission(auth.PermDatabaseControl)).Post("/connect", s.handleConnect)
				r.With(s.requirePermission(auth.PermDatabaseControl)).Post("/disconnect", s.handleDisconnect)
			})

			r.With(s.requirePermission(auth.PermDatabaseRead)).Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// StatusResponse describes the database and its registry.
type StatusResponse struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Target  string   `json:"target"`
	State   string   `json:"state"`
	Models  []string `json:"models"`
	Plugins []string `json:"plugins"`
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	clients := 0
	if s.hub != nil {
		clients = s.hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"version":           s.version,
		"websocket_clients": clients,
	})
}

// handleDatabaseStatus returns the connection state and registered names.
func (s *Server) handleDatabaseStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

// DatabaseHealthResponse is the body of a healthy GET /database/health.
// Schema is set for stores that migrate their own schema.
type DatabaseHealthResponse struct {
	Status string                 `json:"status"`
	Schema *database.SchemaStatus `json:"schema,omitempty"`
}

// handleDatabaseHealth pings the store. 503 when not connected or unhealthy.
func (s *Server) handleDatabaseHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.HealthCheck(r.Context()); err != nil {
		code := ErrCodeUnavailable
		if errors.Is(err, database.ErrNotConnected) {
			code = ErrCodeNotConnected
		}
		writeError(w, r, http.StatusServiceUnavailable, code, err.Error())
		return
	}

	resp := DatabaseHealthResponse{Status: "ok"}
	schema, ok, err := s.db.Schema(r.Context())
	switch {
	case err != nil:
		s.logger.Warn("schema status unavailable", "error", err)
	case ok:
		resp.Schema = &schema
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleConnect connects the database (joining any attempt in flight).
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if _, err := s.db.Connect(r.Context()); err != nil {
		s.logger.Warn("connect via API failed", "error", err)
		writeError(w, r, http.StatusBadGateway, ErrCodeUpstream, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

// handleDisconnect closes the database connection.
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Disconnect(r.Context()); err != nil {
		s.logger.Warn("disconnect via API failed", "error", err)
		writeError(w, r, http.StatusBadGateway, ErrCodeUpstream, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

// status builds the StatusResponse.
func (s *Server) status() StatusResponse {
	models := s.db.Models()
	plugins := s.db.Plugins()

	resp := StatusResponse{
		ID:      s.db.ID(),
		Name:    s.db.Name(),
		Target:  s.db.Target(),
		State:   s.db.State().String(),
		Models:  make([]string, 0, len(models)),
		Plugins: make([]string, 0, len(plugins)),
	}
	for _, m := range models {
		resp.Models = append(resp.Models, m.Name())
	}
	for _, p := range plugins {
		resp.Plugins = append(resp.Plugins, p.Name())
	}
	return resp
}
