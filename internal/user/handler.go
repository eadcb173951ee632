// AngelaMos | 2026
// handler.go

package user

import (
	"encoding/json"
	"net/http"
	"strconv"

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
		validator: core.NewValidator(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router, authenticator func(http.Handler) http.Handler) {
	r.Route("/users/me", func(r chi.Router) {
		r.Use(authenticator)
		r.Get("/", h.getSelf)
		r.Put("/", h.updateSelf)
		r.Delete("/", h.deleteSelf)
	})
}

func (h *Handler) RegisterAdminRoutes(r chi.Router, authenticator, adminOnly func(http.Handler) http.Handler) {
	r.Route("/admin/users", func(r chi.Router) {
		r.Use(authenticator, adminOnly)
		r.Get("/", h.list)
		r.Get("/{userID}", h.get)
		r.Put("/{userID}", h.update)
		r.Delete("/{userID}", h.deleteUser)
	})
}

func (h *Handler) getSelf(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, middleware.GetUserID(r.Context()))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, chi.URLParam(r, "userID"))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request, id string) {
	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		core.WriteError(w, err, "user")
		return
	}
	core.OK(w, newUserResponse(u))
}

func (h *Handler) updateSelf(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, middleware.GetUserID(r.Context()))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, chi.URLParam(r, "userID"))
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, id string) {
	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	u, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		core.WriteError(w, err, "user")
		return
	}
	core.OK(w, newUserResponse(u))
}

func (h *Handler) deleteSelf(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetUserID(r.Context())
	h.remove(w, r, id, id)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, middleware.GetUserID(r.Context()), chi.URLParam(r, "userID"))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request, requesterID, targetID string) {
	if err := h.service.Delete(r.Context(), requesterID, targetID); err != nil {
		core.WriteError(w, err, "user")
		return
	}
	core.NoContent(w)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Page:     queryInt(q.Get("page")),
		PageSize: queryInt(q.Get("page_size")),
		Search:   q.Get("search"),
		Admin:    queryBool(q.Get("admin")),
		Premium:  queryBool(q.Get("premium")),
	}.normalized()

	users, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	out := make([]UserResponse, len(users))
	for i := range users {
		out[i] = newUserResponse(&users[i])
	}
	core.Paginated(w, out, filter.Page, filter.PageSize, total)
}

// queryInt returns 0 for absent or malformed values so normalization
// applies the defaults.
func queryInt(raw string) int {
	n, _ := strconv.Atoi(raw)
	return n
}

func queryBool(raw string) *bool {
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &b
}
