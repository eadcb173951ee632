// AngelaMos | 2026
// handler.go

package entitlement

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: NewValidator(),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.With(authenticator).Get("/me/packages", h.GetMyPackages)
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/users/packages", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Post("/add", h.AddPackage)
		r.Post("/extend", h.ExtendPackage)
		r.Post("/remove", h.RemovePackage)
		r.Get("/list", h.ListPackages)
	})
}

func (h *Handler) AddPackage(w http.ResponseWriter, r *http.Request) {
	var req AddPackageRequest
	if !h.decode(w, r, &req) {
		return
	}

	res := h.service.AddPackage(
		r.Context(),
		req.UserID,
		PackageType(req.PackageType),
		req.DurationHours,
	)
	writeResult(w, res)
}

func (h *Handler) ExtendPackage(w http.ResponseWriter, r *http.Request) {
	var req ExtendPackageRequest
	if !h.decode(w, r, &req) {
		return
	}

	res := h.service.ExtendPackage(
		r.Context(),
		req.UserID,
		PackageType(req.PackageType),
		req.AdditionalHours,
	)
	writeResult(w, res)
}

func (h *Handler) RemovePackage(w http.ResponseWriter, r *http.Request) {
	var req RemovePackageRequest
	if !h.decode(w, r, &req) {
		return
	}

	res := h.service.RemovePackage(
		r.Context(),
		req.UserID,
		PackageType(req.PackageType),
	)
	writeResult(w, res)
}

func (h *Handler) ListPackages(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		core.BadRequest(w, "user_id is required")
		return
	}

	listing, err := h.service.ListPackages(r.Context(), userID)
	if err != nil {
		core.WriteError(w, err, "user")
		return
	}

	core.OK(w, listing)
}

func (h *Handler) GetMyPackages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	listing, err := h.service.ListPackages(r.Context(), userID)
	if err != nil {
		core.WriteError(w, err, "user")
		return
	}

	core.OK(w, listing)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}

	return true
}

func writeResult(w http.ResponseWriter, res Result) {
	if res.Success {
		core.OK(w, res)
		return
	}

	if core.StatusFromError(res.Err) == http.StatusBadRequest {
		core.BadRequest(w, res.Message)
		return
	}

	core.InternalServerError(w, res.Err)
}
