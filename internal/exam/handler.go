// AngelaMos | 2026
// handler.go

package exam

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/entitlement"
	"github.com/denemeapp/kpss-backend/internal/middleware"
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

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Get("/exams", h.ListExams)
	r.With(authenticator).Get("/exams/{examID}", h.GetExam)
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/exams", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.ListAllExams)
		r.Post("/", h.CreateExam)
		r.Post("/batch-delete", h.BatchDelete)
		r.Get("/{examID}", h.GetExam)
		r.Put("/{examID}", h.UpdateExam)
		r.Delete("/{examID}", h.DeleteExam)
	})
}

func (h *Handler) ListExams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	exams, err := h.service.ListPublic(r.Context(), q.Get("subject"), q.Get("package_type"))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, exams)
}

func (h *Handler) GetExam(w http.ResponseWriter, r *http.Request) {
	viewer := Viewer{
		UserID: middleware.GetUserID(r.Context()),
		Admin:  middleware.IsAdmin(r.Context()),
	}

	exam, err := h.service.GetForViewer(r.Context(), viewer, chi.URLParam(r, "examID"))
	if err != nil {
		core.WriteError(w, err, "exam")
		return
	}
	core.OK(w, exam)
}

func (h *Handler) ListAllExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.service.ListAll(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, exams)
}

func (h *Handler) CreateExam(w http.ResponseWriter, r *http.Request) {
	var in ExamInput
	if !h.decode(w, r, &in) {
		return
	}

	exam, err := h.service.Create(r.Context(), in)
	if err != nil {
		core.WriteError(w, err, "exam")
		return
	}
	core.Created(w, exam)
}

func (h *Handler) UpdateExam(w http.ResponseWriter, r *http.Request) {
	var in ExamInput
	if !h.decode(w, r, &in) {
		return
	}

	exam, err := h.service.Update(r.Context(), chi.URLParam(r, "examID"), in)
	if err != nil {
		core.WriteError(w, err, "exam")
		return
	}
	core.OK(w, exam)
}

func (h *Handler) DeleteExam(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "examID")); err != nil {
		core.WriteError(w, err, "exam")
		return
	}
	core.NoContent(w)
}

func (h *Handler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	var req BatchDeleteRequest
	if !h.decode(w, r, &req) {
		return
	}

	n, err := h.service.DeleteMany(r.Context(), req.IDs)
	if err != nil {
		core.WriteError(w, err, "exam")
		return
	}
	core.OK(w, BatchDeleteResponse{Deleted: n})
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
