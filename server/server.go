// Package server exposes the chat relay, label extraction and workspace
// persistence over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/spetersoncode/jdcompare/relay"
	"github.com/spetersoncode/jdcompare/store"
)

// Config wires the server to its collaborators.
type Config struct {
	Relay      *relay.Relay
	Providers  relay.Resolver
	Workspaces store.Workspaces

	// ProviderNames is reported by the health endpoint.
	ProviderNames []string

	// AllowedOrigins lists origins permitted by CORS. "*" allows any.
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Server routes API requests.
type Server struct {
	relay      *relay.Relay
	providers  relay.Resolver
	workspaces store.Workspaces
	names      []string
	origins    []string
	logger     *slog.Logger
}

// New creates a Server from cfg.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		relay:      cfg.Relay,
		providers:  cfg.Providers,
		workspaces: cfg.Workspaces,
		names:      cfg.ProviderNames,
		origins:    cfg.AllowedOrigins,
		logger:     logger,
	}
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat/stream", s.handleChatStream)
	mux.HandleFunc("POST /api/v1/labels/extract", s.handleExtractLabels)
	mux.HandleFunc("POST /api/v1/jd-sets", s.handleCreateWorkspace)
	mux.HandleFunc("GET /api/v1/jd-sets/{id}", s.handleGetWorkspace)
	mux.HandleFunc("PUT /api/v1/jd-sets/{id}", s.handleUpdateWorkspace)
	mux.HandleFunc("DELETE /api/v1/jd-sets/{id}", s.handleDeleteWorkspace)
	mux.HandleFunc("PUT /api/v1/jd-sets/{id}/items", s.handleSyncItems)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	return s.corsMiddleware(mux)
}

// corsMiddleware adds CORS headers for the configured frontend origins.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.allowOrigin(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowOrigin(origin string) bool {
	return slices.ContainsFunc(s.origins, func(o string) bool {
		o = strings.TrimSpace(o)
		return o == "*" || strings.EqualFold(o, origin)
	})
}

type healthResponse struct {
	Status    string   `json:"status"`
	Providers []string `json:"providers"`
}

// handleHealth reports liveness and the registered provider names.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	names := s.names
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Providers: names})
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched when allowEmpty is set.
func decodeBody(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// workspaceID parses the {id} path segment, answering 400 when malformed.
func workspaceID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid workspace ID")
		return uuid.Nil, false
	}
	return id, true
}

// storeError maps a store failure to an HTTP response.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Workspace not found")
		return
	}
	s.logger.Error("store operation failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
