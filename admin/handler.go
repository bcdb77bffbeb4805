package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/jonwraymond/breakercache/cache"
	"github.com/jonwraymond/breakercache/eventlog"
	"github.com/jonwraymond/breakercache/observe"
	"github.com/jonwraymond/breakercache/resilience"
)

// Config wires the admin API to the breaker.
type Config struct {
	Registry *resilience.Registry
	Layer    *cache.Layer
	// Logs answers recent-event queries. Optional.
	Logs   eventlog.RecentReader
	Logger observe.Logger
	Token  TokenConfig
}

// Handler serves the admin API.
type Handler struct {
	registry *resilience.Registry
	layer    *cache.Layer
	logs     eventlog.RecentReader
	logger   observe.Logger
	mux      *http.ServeMux
	handler  http.Handler
}

// NewHandler builds the admin routes.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Registry == nil {
		return nil, ErrNilRegistry
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NoopLogger()
	}
	h := &Handler{
		registry: cfg.Registry,
		layer:    cfg.Layer,
		logs:     cfg.Logs,
		logger:   cfg.Logger,
		mux:      http.NewServeMux(),
	}
	h.handler = NewTokenGuard(cfg.Token).Middleware(h.mux)

	h.mux.HandleFunc("GET /circuits", h.listCircuits)
	h.mux.HandleFunc("DELETE /circuits", h.clearAll)
	h.mux.HandleFunc("POST /circuits:open-all", h.openAll)
	h.mux.HandleFunc("POST /circuits:close-all", h.closeAll)
	h.mux.HandleFunc("GET /circuits/{key}", h.getCircuit)
	h.mux.HandleFunc("DELETE /circuits/{key}", h.clearCircuit)
	h.mux.HandleFunc("POST /circuits/{key}/open", h.openCircuit)
	h.mux.HandleFunc("POST /circuits/{key}/close", h.closeCircuit)
	h.mux.HandleFunc("GET /circuits/{key}/logs", h.recentLogs)
	h.mux.HandleFunc("GET /cache/stats", h.cacheStats)
	h.mux.HandleFunc("POST /cache/flush", h.flushCache)
	h.mux.HandleFunc("GET /maintenance", h.getMaintenance)
	h.mux.HandleFunc("PUT /maintenance", h.setMaintenance)
	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) listCircuits(w http.ResponseWriter, r *http.Request) {
	models, err := h.registry.AllCircuits(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "list circuits", err)
		return
	}
	writeJSON(w, http.StatusOK, models)
}

func (h *Handler) getCircuit(w http.ResponseWriter, r *http.Request) {
	m, err := h.registry.Circuit(r.Context(), r.PathValue("key"))
	if err != nil {
		h.fail(r.Context(), w, "get circuit", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) openCircuit(w http.ResponseWriter, r *http.Request) {
	h.audit(r, "open circuit")
	m, err := h.registry.OpenCircuit(r.Context(), r.PathValue("key"))
	if err != nil {
		h.fail(r.Context(), w, "open circuit", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) closeCircuit(w http.ResponseWriter, r *http.Request) {
	h.audit(r, "close circuit")
	m, err := h.registry.CloseCircuit(r.Context(), r.PathValue("key"))
	if err != nil {
		h.fail(r.Context(), w, "close circuit", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) clearCircuit(w http.ResponseWriter, r *http.Request) {
	h.audit(r, "clear circuit")
	if err := h.registry.ClearCircuit(r.Context(), r.PathValue("key")); err != nil {
		h.fail(r.Context(), w, "clear circuit", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearAll(w http.ResponseWriter, r *http.Request) {
	h.audit(r, "clear all circuits")
	if err := h.registry.ClearAll(r.Context()); err != nil {
		h.fail(r.Context(), w, "clear all circuits", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkResponse struct {
	Changed int `json:"changed"`
}

func (h *Handler) openAll(w http.ResponseWriter, r *http.Request) {
	h.audit(r, "open all circuits")
	n, err := h.registry.OpenAll(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "open all circuits", err)
		return
	}
	writeJSON(w, http.StatusOK, bulkResponse{Changed: n})
}

func (h *Handler) closeAll(w http.ResponseWriter, r *http.Request) {
	h.audit(r, "close all circuits")
	n, err := h.registry.CloseAll(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "close all circuits", err)
		return
	}
	writeJSON(w, http.StatusOK, bulkResponse{Changed: n})
}

func (h *Handler) recentLogs(w http.ResponseWriter, r *http.Request) {
	if h.logs == nil {
		writeError(w, http.StatusNotImplemented, errors.New("admin: no event log reader configured"))
		return
	}
	n := eventlog.DefaultRecent
	if s := r.URL.Query().Get("n"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("admin: n must be a positive integer"))
			return
		}
		n = v
	}
	env := ""
	if h.layer != nil {
		env = h.layer.Environment()
	}
	envs, err := h.logs.Recent(r.Context(), r.PathValue("key"), env, n)
	if err != nil {
		h.fail(r.Context(), w, "recent logs", err)
		return
	}
	if envs == nil {
		envs = []eventlog.Envelope{}
	}
	writeJSON(w, http.StatusOK, envs)
}

func (h *Handler) cacheStats(w http.ResponseWriter, r *http.Request) {
	if h.layer == nil {
		writeError(w, http.StatusNotImplemented, errors.New("admin: no cache layer configured"))
		return
	}
	stats, err := h.layer.Stats(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "cache stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) flushCache(w http.ResponseWriter, r *http.Request) {
	if h.layer == nil {
		writeError(w, http.StatusNotImplemented, errors.New("admin: no cache layer configured"))
		return
	}
	h.audit(r, "flush cache")
	if err := h.layer.FlushAll(r.Context()); err != nil {
		h.fail(r.Context(), w, "flush cache", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type maintenanceBody struct {
	Enabled  bool     `json:"enabled"`
	Prefixes []string `json:"prefixes,omitempty"`
}

func (h *Handler) getMaintenance(w http.ResponseWriter, _ *http.Request) {
	on, prefixes := h.registry.Maintenance()
	writeJSON(w, http.StatusOK, maintenanceBody{Enabled: on, Prefixes: prefixes})
}

func (h *Handler) setMaintenance(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Enabled == nil {
		writeError(w, http.StatusBadRequest, errors.New(`admin: body must be {"enabled": bool}`))
		return
	}
	h.audit(r, "set maintenance", observe.Field{Key: "enabled", Value: *body.Enabled})
	h.registry.SetMaintenance(*body.Enabled)
	h.getMaintenance(w, r)
}

func (h *Handler) audit(r *http.Request, action string, fields ...observe.Field) {
	fields = append(fields, observe.Field{Key: "action", Value: action})
	if key := r.PathValue("key"); key != "" {
		fields = append(fields, observe.Field{Key: "circuit.key", Value: key})
	}
	if id := IdentityFromContext(r.Context()); id != nil {
		fields = append(fields, observe.Field{Key: "principal", Value: id.Principal})
	}
	h.logger.Info(r.Context(), "admin action", fields...)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error(ctx, "admin "+op+" failed", observe.Field{Key: "error", Value: err})
	}
	writeError(w, code, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, resilience.ErrUnknownCircuit):
		return http.StatusNotFound
	case errors.Is(err, resilience.ErrEmptyMethodKey):
		return http.StatusBadRequest
	case errors.Is(err, resilience.ErrNoCircuitDefinition):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
