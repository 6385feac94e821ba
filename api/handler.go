// Package api provides the HTTP API subscribers use to manage their REST
// hook subscriptions, plus an endpoint for firing raw events.
//
// The caller is identified by the X-Hook-Owner header. Authentication is
// left to a fronting proxy or middleware that sets it.
//
// POST /events/{name} delivers only to the caller's own subscriptions. An
// event configured with the "+" marker is the exception: any caller who
// fires it reaches every owner's subscriptions.
package api

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/xraph/resthook"
)

// OwnerHeader names the request header that carries the caller's identity.
const OwnerHeader = "X-Hook-Owner"

// Handler is the root HTTP handler for the subscription API.
type Handler struct {
	hooks  *resthook.Hooks
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewHandler creates a new API handler.
func NewHandler(hooks *resthook.Hooks, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		hooks:  hooks,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	// Subscriptions
	h.mux.HandleFunc("POST /subscriptions", h.createSubscription)
	h.mux.HandleFunc("GET /subscriptions", h.listSubscriptions)
	h.mux.HandleFunc("GET /subscriptions/{id}", h.getSubscription)
	h.mux.HandleFunc("PUT /subscriptions/{id}", h.updateSubscription)
	h.mux.HandleFunc("DELETE /subscriptions/{id}", h.deleteSubscription)

	// Events
	h.mux.HandleFunc("GET /events", h.listEvents)
	h.mux.HandleFunc("POST /events/{name}", h.fireEvent)

	// Stats
	h.mux.HandleFunc("GET /stats", h.getStats)
	h.mux.HandleFunc("GET /healthz", h.getHealth)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.withMiddleware(h.mux).ServeHTTP(w, r)
}

func (h *Handler) withMiddleware(next http.Handler) http.Handler {
	return h.panicRecovery(h.logging(next))
}

func (h *Handler) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		h.logger.Info("api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (h *Handler) panicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("panic recovered",
					"error", rec,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// owner returns the caller identity, writing a 401 when it is missing.
func owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	o := r.Header.Get(OwnerHeader)
	if o == "" {
		writeError(w, http.StatusUnauthorized, OwnerHeader+" header is required")
		return "", false
	}
	return o, true
}

// JSON helpers.

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best effort
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryParam returns a query parameter value, or empty string if not present.
func queryParam(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

// queryInt returns a non-negative query parameter as int or a default value.
func queryInt(r *http.Request, key string, defaultVal int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
