// Package console is the HTTP surface of the SCIM admin console: a chi
// router exposing settings, resource CRUD passthrough, server discovery,
// and the request log (REST + websocket stream).
package console

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/scim-tools/scim-console/internal/reqlog"
	"github.com/scim-tools/scim-console/internal/scim"
)

// Server wires the console API around the SCIM client and request log.
type Server struct {
	cfg    Config
	client *scim.Client
	logs   *reqlog.Logger
	auth   *SessionAuth
	hub    *Hub
	router chi.Router
}

// NewServer creates a configured console server.
func NewServer(cfg Config, client *scim.Client, logs *reqlog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		client: client,
		logs:   logs,
		auth:   NewSessionAuth(cfg.AdminToken, cfg.SessionSecret, cfg.sessionTTL()),
		hub:    NewHub(logs),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router.
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(Recovery)
	r.Use(RequestLogger)
	r.Use(SecurityHeaders)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	rateLimiter := NewRateLimiter(100, time.Minute)
	r.Use(rateLimiter.Limit)

	r.Get("/health", s.handleHealth)
	r.Post("/api/session", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Route("/api", func(r chi.Router) {
			r.Get("/settings", s.handleGetSettings)
			r.Put("/settings", s.handleUpdateSettings)

			r.Get("/server-config", s.handleServerConfig)

			r.Route("/logs", func(r chi.Router) {
				r.Get("/", s.handleListLogs)
				r.Delete("/", s.handleClearLogs)
				r.Get("/stats", s.handleLogStats)
				r.Get("/{id}", s.handleGetLog)
				r.Post("/{id}/retry", s.handleRetryLog)
			})

			r.Route("/resources/{type}", func(r chi.Router) {
				r.Get("/", s.handleListResources)
				r.Post("/", s.handleCreateResource)
				r.Get("/{id}", s.handleGetResource)
				r.Put("/{id}", s.handleReplaceResource)
				r.Patch("/{id}", s.handlePatchResource)
				r.Delete("/{id}", s.handleDeleteResource)
			})
		})

		r.Get("/ws/logs", s.hub.ServeWS)
	})

	s.router = r
}

// ================== Health & Session ==================

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Version: s.cfg.Version})
}

type loginRequest struct {
	Token string `json:"token"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Enabled() {
		writeError(w, http.StatusNotFound, "authentication is not enabled")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, expiresAt, ok := s.auth.Login(req.Token)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid admin token")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt})
}

// ================== Settings ==================

type settingsResponse struct {
	Endpoint         string            `json:"endpoint"`
	APIKeyConfigured bool              `json:"apiKeyConfigured"`
	UseProxy         bool              `json:"useProxy"`
	ProxyURL         string            `json:"proxyUrl,omitempty"`
	TimeoutMs        int               `json:"timeoutMs,omitempty"`
	CustomHeaders    map[string]string `json:"customHeaders,omitempty"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cfg := s.client.Config()
	writeJSON(w, http.StatusOK, settingsResponse{
		Endpoint:         cfg.Endpoint,
		APIKeyConfigured: cfg.APIKey != "",
		UseProxy:         cfg.UseProxy,
		ProxyURL:         cfg.ProxyURL,
		TimeoutMs:        cfg.TimeoutMs,
		CustomHeaders:    cfg.CustomHeaders,
	})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var cfg scim.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// An omitted API key keeps the stored one, so the console never has
	// to echo the secret back to the browser.
	if cfg.APIKey == "" {
		cfg.APIKey = s.client.Config().APIKey
	}

	if err := s.client.UpdateConfig(r.Context(), cfg); err != nil {
		s.writeRequestFailure(w, err)
		return
	}
	s.handleGetSettings(w, r)
}

// ================== Discovery ==================

func (s *Server) handleServerConfig(w http.ResponseWriter, r *http.Request) {
	config, err := s.client.GetServerConfig(r.Context())
	if err != nil {
		s.writeRequestFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, config)
}

// ================== Request Logs ==================

type logListResponse struct {
	Logs  []*reqlog.Entry `json:"logs"`
	Total int             `json:"total"`
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := reqlog.FilterOptions{
		Method: q.Get("method"),
		URL:    q.Get("url"),
	}
	if v := q.Get("status"); v != "" {
		if status, err := strconv.Atoi(v); err == nil {
			filters.Status = status
		}
	}
	if v := q.Get("success"); v != "" {
		success := v == "true"
		filters.Success = &success
	}
	if v := q.Get("hasError"); v != "" {
		hasError := v == "true"
		filters.HasError = &hasError
	}

	entries := s.logs.Filtered(filters)
	writeJSON(w, http.StatusOK, logListResponse{Logs: entries, Total: len(entries)})
}

func (s *Server) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	if err := s.logs.Clear(); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear logs")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.logs.Stats())
}

func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.logs.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "log entry not found")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleRetryLog resubmits the original request of a logged exchange.
// The result is a brand new exchange with its own log entry.
func (s *Server) handleRetryLog(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.logs.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "log entry not found")
		return
	}
	if entry.Request == nil {
		writeError(w, http.StatusBadRequest, "log entry does not retain a retryable request")
		return
	}

	spec := entry.Request
	body, err := s.client.Do(r.Context(), spec.Method, spec.Path, spec.Query, spec.Body)
	if err != nil {
		s.writeRequestFailure(w, err)
		return
	}
	if body == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// ================== Resource Passthrough ==================

// listParams are the query parameters forwarded to the SCIM server.
var listParams = []string{"filter", "startIndex", "count", "sortBy", "sortOrder", "attributes", "excludedAttributes"}

func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	params := map[string]string{}
	for _, key := range listParams {
		if v := r.URL.Query().Get(key); v != "" {
			params[key] = v
		}
	}

	resources, err := s.client.ListResources(r.Context(), chi.URLParam(r, "type"), params)
	if err != nil {
		s.writeRequestFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resources": resources,
		"total":     len(resources),
	})
}

func (s *Server) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	attrs, ok := decodeResource(w, r)
	if !ok {
		return
	}
	created, err := s.client.CreateResource(r.Context(), chi.URLParam(r, "type"), attrs)
	if err != nil {
		s.writeRequestFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetResource(w http.ResponseWriter, r *http.Request) {
	resource, err := s.client.GetResource(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "id"))
	if err != nil {
		s.writeRequestFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resource)
}

func (s *Server) handleReplaceResource(w http.ResponseWriter, r *http.Request) {
	attrs, ok := decodeResource(w, r)
	if !ok {
		return
	}
	updated, err := s.client.ReplaceResource(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "id"), attrs)
	if err != nil {
		s.writeRequestFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type patchBody struct {
	Operations []scim.PatchOperation `json:"Operations"`
}

func (s *Server) handlePatchResource(w http.ResponseWriter, r *http.Request) {
	var body patchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid patch body")
		return
	}
	updated, err := s.client.PatchResource(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "id"), body.Operations)
	if err != nil {
		s.writeRequestFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	if err := s.client.DeleteResource(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "id")); err != nil {
		s.writeRequestFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeResource(w http.ResponseWriter, r *http.Request) (scim.Resource, bool) {
	var attrs scim.Resource
	if err := json.NewDecoder(r.Body).Decode(&attrs); err != nil || attrs == nil {
		writeError(w, http.StatusBadRequest, "invalid resource body")
		return nil, false
	}
	return attrs, true
}

// ================== Helpers ==================

// writeRequestFailure maps client errors onto console API responses.
// Validation problems are the caller's fault; upstream HTTP errors keep
// their status; transport failures surface as gateway errors.
func (s *Server) writeRequestFailure(w http.ResponseWriter, err error) {
	var vErr *scim.ValidationError
	if errors.As(err, &vErr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": vErr.Error()})
		return
	}

	var rErr *scim.RequestError
	if errors.As(err, &rErr) {
		status := http.StatusBadGateway
		switch rErr.Kind {
		case scim.KindTimeout:
			status = http.StatusGatewayTimeout
		case scim.KindHTTP:
			if rErr.Status > 0 {
				status = rErr.Status
			}
		}
		writeJSON(w, status, map[string]any{
			"error":     rErr.Message,
			"kind":      rErr.Kind,
			"status":    rErr.Status,
			"details":   rErr.Details,
			"scimError": rErr.SCIM,
		})
		return
	}

	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
