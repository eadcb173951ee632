// AngelaMos | 2026
// handler.go

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

const probeTimeout = 3 * time.Second

type Checker interface {
	Ping(ctx context.Context) error
}

type dependency struct {
	name    string
	checker Checker
}

// Handler serves liveness and readiness. Readiness pings every backing
// store in parallel: postgres holds identity, redis rate limits and
// revoked tokens, mongo the entitlement and commerce documents.
type Handler struct {
	deps     []dependency
	ready    atomic.Bool
	draining atomic.Bool
}

func NewHandler(db, redis, mongo Checker) *Handler {
	h := &Handler{deps: []dependency{
		{"database", db},
		{"redis", redis},
		{"mongo", mongo},
	}}
	h.ready.Store(true)
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/livez", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// SetShutdown fails both probes so the load balancer drains the pod.
func (h *Handler) SetShutdown(shutdown bool) {
	h.draining.Store(shutdown)
}

func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	if h.draining.Load() {
		writeProbe(w, http.StatusServiceUnavailable, StatusResponse{Status: "shutting_down"})
		return
	}
	writeProbe(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	switch {
	case h.draining.Load():
		writeProbe(w, http.StatusServiceUnavailable, StatusResponse{Status: "shutting_down"})
		return
	case !h.ready.Load():
		writeProbe(w, http.StatusServiceUnavailable, StatusResponse{Status: "not_ready"})
		return
	}

	checks := h.probe(r.Context())

	resp := ReadinessResponse{Status: "ok", Checks: checks}
	code := http.StatusOK
	for _, c := range checks {
		if !c.Healthy {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			break
		}
	}
	writeProbe(w, code, resp)
}

// probe pings every dependency concurrently, keeping registration order
// in the result.
func (h *Handler) probe(ctx context.Context) []HealthCheck {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out := make([]HealthCheck, len(h.deps))
	var wg sync.WaitGroup
	for i, dep := range h.deps {
		wg.Go(func() {
			out[i] = ping(ctx, dep)
		})
	}
	wg.Wait()
	return out
}

func ping(ctx context.Context, dep dependency) HealthCheck {
	check := HealthCheck{Name: dep.name}
	if dep.checker == nil {
		check.Message = "not configured"
		return check
	}

	start := time.Now()
	err := dep.checker.Ping(ctx)
	check.Latency = time.Since(start).Round(time.Microsecond).String()

	if err != nil {
		check.Message = "ping failed"
		return check
	}
	check.Healthy = true
	return check
}

func writeProbe(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // probe client may be gone
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ReadinessResponse struct {
	Status string        `json:"status"`
	Checks []HealthCheck `json:"checks"`
}

type HealthCheck struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}
