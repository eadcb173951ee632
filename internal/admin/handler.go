// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"net/http"
	"runtime"
	"sync"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/denemeapp/kpss-backend/internal/core"
)

// Backend is one store the operator dashboard reports on. Stats may be
// nil when the store has nothing beyond reachability to show.
type Backend struct {
	Name  string
	Ping  func(ctx context.Context) error
	Stats func(ctx context.Context) (any, error)
}

type Handler struct {
	backends []Backend
	byName   map[string]Backend
}

func NewHandler(backends ...Backend) *Handler {
	h := &Handler{
		backends: backends,
		byName:   make(map[string]Backend, len(backends)),
	}
	for _, b := range backends {
		h.byName[b.Name] = b
	}
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router, authenticator, adminOnly func(http.Handler) http.Handler) {
	r.Route("/admin/stats", func(r chi.Router) {
		r.Use(authenticator, adminOnly)
		r.Get("/", h.overview)
		r.Get("/runtime", h.runtimeStats)
		r.Get("/{backend}", h.backendStats)
	})
}

// overview probes every backend concurrently. A failing probe marks the
// backend unhealthy but never fails the response.
func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	resp := SystemStatsResponse{
		Backends: make(map[string]BackendStatus, len(h.backends)),
		Runtime:  readRuntimeStats(),
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, b := range h.backends {
		g.Go(func() error {
			status := probe(r.Context(), b)
			mu.Lock()
			resp.Backends[b.Name] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // probes never return errors

	core.OK(w, resp)
}

func probe(ctx context.Context, b Backend) BackendStatus {
	status := BackendStatus{Healthy: b.Ping != nil && b.Ping(ctx) == nil}
	if b.Stats != nil {
		if stats, err := b.Stats(ctx); err == nil {
			status.Stats = stats
		}
	}
	return status
}

func (h *Handler) backendStats(w http.ResponseWriter, r *http.Request) {
	b, ok := h.byName[chi.URLParam(r, "backend")]
	if !ok {
		core.NotFound(w, "backend")
		return
	}
	if b.Stats == nil {
		core.JSONError(w, core.NotFoundError(b.Name+" stats"))
		return
	}

	stats, err := b.Stats(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, stats)
}

func (h *Handler) runtimeStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, readRuntimeStats())
}

func readRuntimeStats() RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		HeapAlloc:    mem.HeapAlloc,
		Sys:          mem.Sys,
		NumGC:        mem.NumGC,
	}
}
