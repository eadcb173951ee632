// AngelaMos | 2026
// handler.go

package library

import (
	"mime"
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
	r.Get("/library", h.ListDocuments)
	r.With(authenticator).Get("/library/{docID}/download", h.Download)
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/library", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Post("/", h.Upload)
		r.Delete("/{docID}", h.DeleteDocument)
	})
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.List(r.Context(), r.URL.Query().Get("subject"))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, docs)
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	viewer := Viewer{
		UserID: middleware.GetUserID(r.Context()),
		Admin:  middleware.IsAdmin(r.Context()),
	}

	dl, err := h.service.DownloadURL(r.Context(), viewer, chi.URLParam(r, "docID"))
	if err != nil {
		core.WriteError(w, err, "document")
		return
	}
	core.OK(w, dl)
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		core.BadRequest(w, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		core.BadRequest(w, "file is required")
		return
	}
	defer file.Close() //nolint:errcheck // read-only upload part

	mediaType, _, err := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if err != nil || mediaType != pdfContentType {
		core.BadRequest(w, "file must be application/pdf")
		return
	}

	in := UploadInput{
		Title:       r.FormValue("title"),
		Subject:     r.FormValue("subject"),
		PackageType: r.FormValue("package_type"),
	}
	if err := h.validator.Struct(in); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	doc, err := h.service.Upload(r.Context(), in, file, header.Size)
	if err != nil {
		core.WriteError(w, err, "document")
		return
	}
	core.Created(w, doc)
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "docID")); err != nil {
		core.WriteError(w, err, "document")
		return
	}
	core.NoContent(w)
}
