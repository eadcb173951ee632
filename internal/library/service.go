// AngelaMos | 2026
// service.go

package library

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/entitlement"
)

const (
	MaxUploadBytes = 50 << 20

	pdfContentType = "application/pdf"
	objectPrefix   = "library/"
)

var pdfMagic = []byte("%PDF-")

type AccessChecker interface {
	HasAccess(ctx context.Context, userID string, p entitlement.PackageType) (bool, error)
}

type Viewer struct {
	UserID string
	Admin  bool
}

type Service struct {
	repo   Repository
	store  ObjectStore
	access AccessChecker
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewService(
	repo Repository,
	store ObjectStore,
	access AccessChecker,
	presignTTL time.Duration,
	logger *slog.Logger,
) *Service {
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	return &Service{
		repo:   repo,
		store:  store,
		access: access,
		ttl:    presignTTL,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) List(ctx context.Context, subject string) ([]Document, error) {
	return s.repo.List(ctx, subject)
}

// DownloadURL presigns a short-lived link to the document body once the
// viewer holds the document's package.
func (s *Service) DownloadURL(ctx context.Context, viewer Viewer, id string) (*Download, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !viewer.Admin {
		if viewer.UserID == "" {
			return nil, fmt.Errorf("download document: %w", core.ErrUnauthorized)
		}
		ok, err := s.access.HasAccess(ctx, viewer.UserID, doc.PackageType)
		if err != nil {
			return nil, fmt.Errorf("download document: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("package %s not active: %w", doc.PackageType, core.ErrForbidden)
		}
	}

	url, err := s.store.PresignGet(ctx, doc.ObjectKey, s.ttl)
	if err != nil {
		return nil, err
	}

	return &Download{URL: url, ExpiresAt: s.now().Add(s.ttl)}, nil
}

// Upload stores a PDF body and records its metadata. The body must start
// with the PDF magic bytes regardless of the declared content type.
func (s *Service) Upload(
	ctx context.Context,
	in UploadInput,
	body io.Reader,
	size int64,
) (*Document, error) {
	if size <= 0 || size > MaxUploadBytes {
		return nil, fmt.Errorf("upload document: size %d out of range: %w", size, core.ErrInvalidInput)
	}

	head := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(body, head); err != nil || !bytes.Equal(head, pdfMagic) {
		return nil, fmt.Errorf("upload document: not a pdf: %w", core.ErrInvalidInput)
	}

	id := uuid.New().String()
	doc := &Document{
		ID:          id,
		Title:       in.Title,
		Subject:     in.Subject,
		PackageType: entitlement.PackageType(in.PackageType),
		ObjectKey:   objectPrefix + id + ".pdf",
		SizeBytes:   size,
		CreatedAt:   s.now(),
	}

	full := io.MultiReader(bytes.NewReader(head), body)
	if err := s.store.Put(ctx, doc.ObjectKey, full, size, pdfContentType); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		if delErr := s.store.Delete(ctx, doc.ObjectKey); delErr != nil {
			s.logger.Warn("orphaned library object",
				"key", doc.ObjectKey,
				"error", delErr,
			)
		}
		return nil, err
	}

	s.logger.Info("library document uploaded",
		"document_id", doc.ID,
		"package_type", doc.PackageType,
		"size_bytes", size,
	)
	return doc, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, doc.ObjectKey); err != nil {
		s.logger.Warn("library object not removed",
			"document_id", id,
			"key", doc.ObjectKey,
			"error", err,
		)
	}
	return nil
}
