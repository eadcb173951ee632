// AngelaMos | 2026
// service.go

package exam

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/entitlement"
)

// AccessChecker answers whether a user may open content of a package.
type AccessChecker interface {
	HasAccess(ctx context.Context, userID string, p entitlement.PackageType) (bool, error)
}

// Viewer identifies the caller of a content read.
type Viewer struct {
	UserID string
	Admin  bool
}

type Service struct {
	repo   Repository
	access AccessChecker
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, access AccessChecker, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		access: access,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) ListPublic(ctx context.Context, subject, packageType string) ([]Summary, error) {
	exams, err := s.repo.List(ctx, ListParams{
		ActiveOnly:  true,
		Subject:     subject,
		PackageType: packageType,
	})
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(exams))
	for i := range exams {
		out = append(out, exams[i].Summary())
	}
	return out, nil
}

// GetForViewer returns the full exam, answers included, once the viewer is
// entitled to its package. Admins bypass the check and see inactive exams.
func (s *Service) GetForViewer(ctx context.Context, viewer Viewer, id string) (*Exam, error) {
	exam, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if viewer.Admin {
		return exam, nil
	}
	if !exam.Active {
		return nil, fmt.Errorf("get exam: %w", core.ErrNotFound)
	}
	if viewer.UserID == "" {
		return nil, fmt.Errorf("get exam: %w", core.ErrUnauthorized)
	}

	ok, err := s.access.HasAccess(ctx, viewer.UserID, exam.PackageType)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("package %s not active: %w", exam.PackageType, core.ErrForbidden)
	}

	return exam, nil
}

func (s *Service) ListAll(ctx context.Context) ([]Exam, error) {
	return s.repo.List(ctx, ListParams{})
}

func (s *Service) Create(ctx context.Context, in ExamInput) (*Exam, error) {
	now := s.now()
	exam := fromInput(uuid.New().String(), in)
	exam.CreatedAt = now
	exam.UpdatedAt = now

	if err := exam.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, exam); err != nil {
		return nil, err
	}

	s.logger.Info("exam created",
		"exam_id", exam.ID,
		"variant", exam.Variant,
		"questions", len(exam.Questions),
	)
	return exam, nil
}

func (s *Service) Update(ctx context.Context, id string, in ExamInput) (*Exam, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	exam := fromInput(id, in)
	if in.Active == nil {
		exam.Active = existing.Active
	}
	exam.CreatedAt = existing.CreatedAt
	exam.UpdatedAt = s.now()

	if err := exam.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Replace(ctx, exam); err != nil {
		return nil, err
	}
	return exam, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("delete exams: ids required: %w", core.ErrInvalidInput)
	}

	n, err := s.repo.DeleteMany(ctx, ids)
	if err != nil {
		return 0, err
	}

	s.logger.Info("exams deleted", "requested", len(ids), "deleted", n)
	return n, nil
}

func fromInput(id string, in ExamInput) *Exam {
	active := true
	if in.Active != nil {
		active = *in.Active
	}

	questions := make([]Question, 0, len(in.Questions))
	for i, q := range in.Questions {
		qid := q.ID
		if qid == "" {
			qid = fmt.Sprintf("q%d", i+1)
		}
		questions = append(questions, Question{
			ID:          qid,
			Prompt:      q.Prompt,
			Options:     q.Options,
			Answer:      q.Answer,
			Pairs:       q.Pairs,
			Explanation: q.Explanation,
		})
	}

	return &Exam{
		ID:              id,
		Title:           in.Title,
		Subject:         in.Subject,
		Variant:         Variant(in.Variant),
		PackageType:     entitlement.PackageType(in.PackageType),
		DurationMinutes: in.DurationMinutes,
		Questions:       questions,
		Active:          active,
	}
}
