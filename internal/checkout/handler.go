// AngelaMos | 2026
// handler.go

package checkout

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/denemeapp/kpss-backend/internal/auth"
	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/middleware"
)

// Directory resolves the buyer profile for the authenticated user.
type Directory interface {
	GetByID(ctx context.Context, id string) (*auth.UserInfo, error)
}

type CreateCheckoutRequest struct {
	PlanID string `json:"plan_id" validate:"required,max=64"`
}

type Handler struct {
	service   *Service
	directory Directory
	validator *validator.Validate
}

func NewHandler(service *Service, directory Directory) *Handler {
	return &Handler{
		service:   service,
		directory: directory,
		validator: core.NewValidator(),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.With(authenticator).Post("/checkout", h.CreateCheckout)
}

func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	var req CreateCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	session, err := h.service.CreateCheckout(r.Context(), h.buyer(r.Context(), userID), req.PlanID)
	if err != nil {
		if IsProviderFailure(err) {
			core.JSONError(w, core.NewAppError(
				err,
				"payment provider unavailable",
				http.StatusBadGateway,
				"PROVIDER_ERROR",
			))
			return
		}
		core.WriteError(w, err, "plan")
		return
	}

	core.Created(w, session)
}

func (h *Handler) buyer(ctx context.Context, userID string) Buyer {
	buyer := Buyer{UserID: userID}
	if h.directory == nil {
		return buyer
	}

	info, err := h.directory.GetByID(ctx, userID)
	if err != nil {
		slog.Warn("buyer profile lookup failed",
			"user_id", userID,
			"error", err,
		)
		return buyer
	}

	buyer.Email = info.Email
	buyer.Name = info.Name
	return buyer
}
