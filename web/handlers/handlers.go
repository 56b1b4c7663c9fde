// Package handlers provides the HTTP API for sessions, personas and providers.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/engine"
	"github.com/alienxp03/arena/internal/persona"
	"github.com/alienxp03/arena/internal/storage"
	"github.com/alienxp03/arena/provider"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	engine      *engine.Engine
	storage     storage.Storage
	registry    *provider.Registry
	healthCache *providerHealthCache
}

// New creates a new Handler.
func New(eng *engine.Engine, store storage.Storage, registry *provider.Registry) *Handler {
	if registry == nil {
		registry = provider.NewRegistry()
	}
	return &Handler{
		engine:      eng,
		storage:     store,
		registry:    registry,
		healthCache: newProviderHealthCache(defaultProviderHealthCachePath(), providerHealthCacheTTL),
	}
}

// Routes returns the API router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.handleAPIHealth)
		r.Get("/modes", h.handleAPIModes)

		r.Get("/personas", h.handleAPIListPersonas)
		r.Post("/personas", h.handleAPISavePersona)

		r.Get("/providers", h.handleAPIProviders)
		r.Get("/providers/health/{name}", h.handleAPIProviderHealth)

		r.Get("/sessions", h.handleAPIListSessions)
		r.Post("/sessions", h.handleAPICreateSession)
		r.Get("/sessions/{id}", h.handleAPIGetSession)
		r.Post("/sessions/{id}/next", h.handleAPINextStage)
		r.Post("/sessions/{id}/rematch", h.handleAPIRematch)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (h *Handler) handleAPIHealth(w http.ResponseWriter, r *http.Request) {
	h.json(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (h *Handler) handleAPIModes(w http.ResponseWriter, r *http.Request) {
	plans := h.engine.Plans()
	result := make([]any, 0)
	for _, mode := range plans.Modes() {
		plan, err := plans.GetPlan(mode)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		result = append(result, plan)
	}
	h.json(w, http.StatusOK, result)
}

func (h *Handler) handleAPIListPersonas(w http.ResponseWriter, r *http.Request) {
	personas, err := h.storage.ListPersonas(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, personas)
}

func (h *Handler) handleAPISavePersona(w http.ResponseWriter, r *http.Request) {
	var p persona.Persona
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.storage.SavePersona(r.Context(), &p); err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusCreated, p)
}

func (h *Handler) handleAPIProviders(w http.ResponseWriter, r *http.Request) {
	names := h.registry.Names()
	result := make([]map[string]any, 0, len(names))
	for _, name := range names {
		p, err := h.registry.Get(name)
		if err != nil {
			continue
		}
		result = append(result, map[string]any{
			"name":      p.Name(),
			"available": p.Available(),
		})
	}
	h.json(w, http.StatusOK, result)
}

func (h *Handler) handleAPIProviderHealth(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, err := h.registry.Get(name)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusNotFound)
		return
	}

	status, cached := h.healthCache.GetFresh(name)
	if !cached {
		if hc, ok := p.(provider.HealthChecker); ok {
			status = hc.HealthCheck(r.Context())
		} else {
			status = provider.HealthStatus{Available: p.Available(), CheckedAt: time.Now()}
		}
		h.healthCache.Set(name, status)
	}

	h.json(w, http.StatusOK, map[string]any{
		"name":          name,
		"available":     status.Available,
		"response_time": status.ResponseTime.Seconds(),
		"error":         status.Error,
		"checked_at":    status.CheckedAt,
		"cached":        cached,
	})
}

func (h *Handler) handleAPIListSessions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	sessions, err := h.engine.ListSessions(r.Context(), limit, offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []*core.SessionSummary{}
	}
	h.json(w, http.StatusOK, sessions)
}

func (h *Handler) handleAPICreateSession(w http.ResponseWriter, r *http.Request) {
	var cfg core.NewSessionConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		h.jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	session, err := h.engine.CreateSession(r.Context(), cfg)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusCreated, session)
}

func (h *Handler) handleAPIGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.engine.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, session)
}

func (h *Handler) handleAPINextStage(w http.ResponseWriter, r *http.Request) {
	session, err := h.engine.Advance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, session)
}

func (h *Handler) handleAPIRematch(w http.ResponseWriter, r *http.Request) {
	session, err := h.engine.Rematch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusCreated, session)
}

// Helpers

func (h *Handler) json(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, code int) {
	h.json(w, code, map[string]string{"error": message})
}

// fail maps domain errors to HTTP status codes.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	h.jsonError(w, err.Error(), code)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
