// AngelaMos | 2026
// handler.go

package order

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/middleware"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.With(authenticator).Get("/orders", h.ListMyOrders)
}

func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = min(n, maxListLimit)
		}
	}

	orders, err := h.repo.ListByUser(r.Context(), userID, limit)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, orders)
}
