package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazyhaar/causa-registry/pkg/kit"
	"github.com/hazyhaar/causa-registry/pkg/lookup"
)

// Options configures NewRouter.
type Options struct {
	Logger *slog.Logger
	// Registry backs /metrics. A fresh registry is used when nil.
	Registry *prometheus.Registry
	// Metrics are registered on Registry when nil. Pass them to keep
	// counters across router rebuilds.
	Metrics *Metrics
}

// NewRouter returns an http.Handler with all lookup API routes.
func NewRouter(svc *lookup.Service, opts Options) (http.Handler, error) {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := opts.Metrics
	if metrics == nil {
		var err error
		if metrics, err = NewMetrics(reg); err != nil {
			return nil, err
		}
	}

	h := &handler{
		ep:  newEndpoints(svc, Middleware(opts.Logger, metrics)),
		svc: svc,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/resolve/batch", methodNotAllowed) // prevent GET on batch
	mux.HandleFunc("POST /v1/resolve/batch", h.handleResolveBatch)
	mux.HandleFunc("GET /v1/resolve/{label}", h.handleResolve)
	mux.HandleFunc("GET /v1/mapping/stats", h.handleStats)
	mux.HandleFunc("GET /v1/health", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	return securityHeaders(cors(withRequestID(mux))), nil
}

// Middleware returns the per-endpoint middleware shared by HTTP and MCP:
// logging outermost, then metrics.
func Middleware(logger *slog.Logger, metrics *Metrics) func(name string) kit.Middleware {
	return func(name string) kit.Middleware {
		if metrics == nil {
			return kit.Logging(logger, name)
		}
		return kit.Chain(kit.Logging(logger, name), metrics.Middleware(name))
	}
}

type handler struct {
	ep  endpoints
	svc *lookup.Service
}

// --- resolve single label ---

func (h *handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	label := r.PathValue("label")
	if label == "" {
		writeError(w, http.StatusBadRequest, "missing label")
		return
	}

	resp, err := h.ep.resolve(r.Context(), &resolveReq{Label: label})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- resolve batch ---

type httpBatchRequest struct {
	Labels []string `json:"labels"`
}

func (h *handler) handleResolveBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024) // 64 KiB max
	var req httpBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.ep.batch(r.Context(), &batchReq{Labels: req.Labels})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- mapping stats ---

func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	resp, err := h.ep.stats(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- health ---

type healthResponse struct {
	Status  string `json:"status"`
	Records int    `json:"records"`
	Live    bool   `json:"live"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := h.svc.Stats()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Records: st.Records,
		Live:    st.Live,
	})
}

// --- helpers ---

func statusFor(err error) int {
	if errors.Is(err, lookup.ErrEmptyLabel) || errors.Is(err, lookup.ErrBatchTooLarge) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// withRequestID propagates the caller's X-Request-ID to the endpoints.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Request-ID"); id != "" {
			r = r.WithContext(kit.WithRequestID(r.Context(), id))
			w.Header().Set("X-Request-ID", id)
		}
		next.ServeHTTP(w, r)
	})
}

// securityHeaders sets the headers a JSON API needs; the API serves no
// documents, so any framing or sniffing is refused.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
