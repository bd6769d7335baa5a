package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/verdano/clausemap/internal/command"
	"github.com/verdano/clausemap/internal/gateway"
	"github.com/verdano/clausemap/internal/lookup"
	"github.com/verdano/clausemap/internal/match"
)

// Handler holds dependencies for HTTP handlers. Crosswalk, cache and
// query log stats are optional and reported as absent when nil.
type Handler struct {
	engine    *match.Engine
	lookup    *lookup.Service
	crosswalk command.EquivalentsFinder
	cache     command.CacheStats
	queryLog  command.LogStats
	restGW    *gateway.RESTAdapter
	gw        *gateway.Gateway
	reload    func() error
	startedAt time.Time
	logger    *zap.Logger
}

// NewHandler creates a new API handler. reload may be nil when the
// catalog source does not support reloading.
func NewHandler(
	engine *match.Engine,
	svc *lookup.Service,
	crosswalk command.EquivalentsFinder,
	cache command.CacheStats,
	queryLog command.LogStats,
	restGW *gateway.RESTAdapter,
	gw *gateway.Gateway,
	reload func() error,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		engine:    engine,
		lookup:    svc,
		crosswalk: crosswalk,
		cache:     cache,
		queryLog:  queryLog,
		restGW:    restGW,
		gw:        gw,
		reload:    reload,
		startedAt: time.Now(),
		logger:    logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Get("/metrics", h.metrics)
		r.Post("/match", h.matchQuery)
		r.Get("/frameworks", h.listFrameworks)
		r.Get("/clauses/{id}", h.getClause)
		r.Get("/crosswalk/{id}", h.getCrosswalk)
		r.Get("/stats", h.stats)
		r.Post("/reload", h.reloadCatalog)
		r.Get("/gateway/status", h.gatewayStatus)
		if h.restGW != nil {
			r.Mount("/gateway/rest", h.restGW.Routes())
		}
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	status := "ok"
	code := http.StatusOK
	if snap.Len() == 0 {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status":  status,
		"clauses": snap.Len(),
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// metrics emits a small plain-text metrics page.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "clausemap_clauses %d\n", snap.Len())
	fmt.Fprintf(w, "clausemap_frameworks %d\n", len(snap.Frameworks()))
	fmt.Fprintf(w, "clausemap_uptime_seconds %d\n", int(time.Since(h.startedAt).Seconds()))
	if h.cache != nil {
		hits, misses := h.cache.Stats()
		fmt.Fprintf(w, "clausemap_cache_hits %d\n", hits)
		fmt.Fprintf(w, "clausemap_cache_misses %d\n", misses)
	}
	if h.queryLog != nil {
		flushed, pending, dropped := h.queryLog.Stats()
		fmt.Fprintf(w, "clausemap_querylog_flushed %d\n", flushed)
		fmt.Fprintf(w, "clausemap_querylog_pending %d\n", pending)
		fmt.Fprintf(w, "clausemap_querylog_dropped %d\n", dropped)
	}
}

type matchRequest struct {
	Query      string   `json:"query"`
	Frameworks []string `json:"frameworks,omitempty"`
	UserID     string   `json:"user_id,omitempty"`
}

func (h *Handler) matchQuery(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	// Unknown framework tags are not an error: they contribute no
	// candidates, and a catalog reload may introduce them later.
	resp := h.lookup.Lookup(r.Context(), "api", req.UserID, req.Query, req.Frameworks)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listFrameworks(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	type frameworkInfo struct {
		Name    string `json:"name"`
		Clauses int    `json:"clauses"`
	}
	out := make([]frameworkInfo, 0, len(snap.Frameworks()))
	for _, f := range snap.Frameworks() {
		out = append(out, frameworkInfo{Name: f, Clauses: len(snap.ByFramework(f))})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getClause(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	clause, ok := h.engine.Snapshot().ByID(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "clause not found"})
		return
	}
	writeJSON(w, http.StatusOK, clause)
}

func (h *Handler) getCrosswalk(w http.ResponseWriter, r *http.Request) {
	if h.crosswalk == nil {
		writeJSON(w, http.StatusServiceUnavailable,
			map[string]string{"error": "crosswalk backend not configured"})
		return
	}
	id := chi.URLParam(r, "id")
	if _, ok := h.engine.Snapshot().ByID(id); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "clause not found"})
		return
	}
	eqs, err := h.crosswalk.Equivalents(r.Context(), id)
	if err != nil {
		h.logger.Error("crosswalk lookup failed", zap.String("clause", id), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "crosswalk lookup failed"})
		return
	}
	writeJSON(w, http.StatusOK, eqs)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	out := map[string]interface{}{
		"clauses":    snap.Len(),
		"frameworks": snap.Frameworks(),
		"uptime":     time.Since(h.startedAt).Round(time.Second).String(),
	}
	if h.cache != nil {
		hits, misses := h.cache.Stats()
		out["cache"] = map[string]uint64{"hits": hits, "misses": misses}
	}
	if h.queryLog != nil {
		flushed, pending, dropped := h.queryLog.Stats()
		out["query_log"] = map[string]uint64{
			"flushed": flushed, "pending": pending, "dropped": dropped,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) reloadCatalog(w http.ResponseWriter, r *http.Request) {
	if h.reload == nil {
		writeJSON(w, http.StatusServiceUnavailable,
			map[string]string{"error": "catalog reload not supported"})
		return
	}
	if err := h.reload(); err != nil {
		h.logger.Error("catalog reload failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "reloaded",
		"clauses": h.engine.Snapshot().Len(),
	})
}

func (h *Handler) gatewayStatus(w http.ResponseWriter, r *http.Request) {
	if h.gw == nil {
		writeJSON(w, http.StatusServiceUnavailable,
			map[string]string{"error": "gateway not initialized"})
		return
	}
	writeJSON(w, http.StatusOK, h.gw.StatusAll())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
