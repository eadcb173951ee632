// AngelaMos | 2026
// handler.go

package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/entitlement"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: entitlement.NewValidator(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/plans", h.ListPlans)
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/plans", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.ListAllPlans)
		r.Post("/", h.CreatePlan)
		r.Get("/{planID}", h.GetPlan)
		r.Put("/{planID}", h.UpdatePlan)
		r.Post("/{planID}/activate", h.setActive(true))
		r.Post("/{planID}/deactivate", h.setActive(false))
		r.Delete("/{planID}", h.DeletePlan)
	})
}

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListActive(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, plans)
}

func (h *Handler) ListAllPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListAll(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, plans)
}

func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.service.GetPlan(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		core.WriteError(w, err, "plan")
		return
	}
	core.OK(w, plan)
}

func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	plan, err := h.service.CreatePlan(r.Context(), req)
	if err != nil {
		core.WriteError(w, err, "plan")
		return
	}

	core.Created(w, plan)
}

func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req UpdatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	plan, err := h.service.UpdatePlan(r.Context(), chi.URLParam(r, "planID"), req)
	if err != nil {
		core.WriteError(w, err, "plan")
		return
	}

	core.OK(w, plan)
}

func (h *Handler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plan, err := h.service.SetActive(r.Context(), chi.URLParam(r, "planID"), active)
		if err != nil {
			core.WriteError(w, err, "plan")
			return
		}
		core.OK(w, plan)
	}
}

func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePlan(r.Context(), chi.URLParam(r, "planID")); err != nil {
		core.WriteError(w, err, "plan")
		return
	}
	core.NoContent(w)
}
