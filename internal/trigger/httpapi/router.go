// Package httpapi is the thin admin HTTP surface for internal/trigger,
// following the teacher's internal/server chi+cors wiring (spec §1 keeps
// the real authentication mechanism and HTTP admin surface itself out of
// scope; this router only carries the operator-token presence check and
// status-code mapping §6 specifies).
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"novasynth/internal/config"
	"novasynth/internal/lock"
	"novasynth/internal/logger"
	"novasynth/internal/pipeline"
	"novasynth/internal/trigger"
)

// Router wraps a trigger.Trigger with the admin HTTP surface.
type Router struct {
	trig   *trigger.Trigger
	mux    *chi.Mux
	server *http.Server
}

// New builds a Router bound to trig, configured per cfg.
func New(trig *trigger.Trigger, cfg config.Server) *Router {
	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(chimw.Logger)
	mux.Use(chimw.Recoverer)
	mux.Use(chimw.Timeout(60 * time.Second))
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Operator-Token"},
	}))

	r := &Router{trig: trig, mux: mux}
	r.routes()
	r.server = &http.Server{
		Addr:         cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return r
}

func (r *Router) routes() {
	r.mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.mux.Post("/api/pipeline/start", r.handleStart)
	r.mux.Post("/api/pipeline/stop", r.handleStop)
	r.mux.Get("/api/pipeline/status", r.handleStatus)
	r.mux.Get("/api/pipeline/logs", r.handleLogs)
	r.mux.Post("/api/blacklist", r.handleBlacklistAdd)
	r.mux.Delete("/api/blacklist", r.handleBlacklistClear)
	r.mux.Get("/api/sources/health", r.handleHealthReport)
	r.mux.Post("/api/sources/discover", r.handleDiscover)
}

// Start runs the admin HTTP server, blocking until it exits or errors.
func (r *Router) Start() error {
	logger.Get().Info("trigger httpapi: listening", "addr", r.server.Addr)
	if err := r.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Mux exposes the underlying chi.Mux for tests (httptest.NewServer).
func (r *Router) Mux() *chi.Mux {
	return r.mux
}

func operatorToken(req *http.Request) string {
	return req.Header.Get("X-Operator-Token")
}

func (r *Router) handleStart(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Mode                 string   `json:"mode"`
		Sources              []string `json:"sources"`
		Topics               []string `json:"topics"`
		MaxArticlesPerSource int      `json:"max_articles_per_source"`
	}
	if req.ContentLength != 0 {
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	mode := pipeline.ModeScrape
	if body.Mode != "" {
		mode = pipeline.Mode(body.Mode)
	}
	err := r.trig.Start(operatorToken(req), pipeline.RunRequest{
		Mode:                 mode,
		Sources:              body.Sources,
		Topics:               body.Topics,
		MaxArticlesPerSource: body.MaxArticlesPerSource,
	})
	if err != nil {
		respondTriggerError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (r *Router) handleStop(w http.ResponseWriter, req *http.Request) {
	if err := r.trig.Stop(operatorToken(req)); err != nil {
		respondTriggerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
}

func (r *Router) handleStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, r.trig.Status())
}

func (r *Router) handleLogs(w http.ResponseWriter, req *http.Request) {
	limit := parseIntDefault(req.URL.Query().Get("limit"), 100)
	offset := parseIntDefault(req.URL.Query().Get("offset"), 0)
	respondJSON(w, http.StatusOK, r.trig.Logs(limit, offset))
}

func (r *Router) handleBlacklistAdd(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Domain string `json:"domain"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Domain == "" {
		respondError(w, http.StatusBadRequest, "domain is required")
		return
	}
	if err := r.trig.Blacklist(req.Context(), operatorToken(req), body.Domain, body.Reason); err != nil {
		respondTriggerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "blacklisted"})
}

func (r *Router) handleBlacklistClear(w http.ResponseWriter, req *http.Request) {
	domain := req.URL.Query().Get("domain")
	if err := r.trig.ClearBlacklist(req.Context(), operatorToken(req), domain); err != nil {
		respondTriggerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (r *Router) handleHealthReport(w http.ResponseWriter, req *http.Request) {
	report, err := r.trig.HealthReport(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (r *Router) handleDiscover(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Domain string `json:"domain"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Domain == "" {
		respondError(w, http.StatusBadRequest, "domain is required")
		return
	}
	if err := r.trig.Discover(req.Context(), operatorToken(req), body.Domain, body.Reason); err != nil {
		respondTriggerError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "discovery scheduled"})
}

func respondTriggerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lock.ErrPipelineBusy):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, trigger.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, trigger.ErrTokenNotConfigured):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
