// AngelaMos | 2026
// service.go

package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/entitlement"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) GetPlan(ctx context.Context, id string) (*Plan, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("get plan: id required: %w", core.ErrInvalidInput)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListActive(ctx context.Context) ([]Plan, error) {
	return s.repo.List(ctx, true)
}

func (s *Service) ListAll(ctx context.Context) ([]Plan, error) {
	return s.repo.List(ctx, false)
}

func (s *Service) CreatePlan(ctx context.Context, req CreatePlanRequest) (*Plan, error) {
	key := entitlement.PackageType(req.Key)
	if !key.IsValid() {
		return nil, fmt.Errorf("unknown package type %q: %w", req.Key, core.ErrInvalidInput)
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.New().String()
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := s.now()
	plan := &Plan{
		ID:              id,
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		Currency:        strings.ToUpper(req.Currency),
		PeriodMonths:    req.PeriodMonths,
		Key:             key,
		ProviderPriceID: req.ProviderPriceID,
		Active:          active,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, err
	}

	s.logger.Info("plan created",
		"plan_id", plan.ID,
		"key", plan.Key,
		"price", plan.Price,
	)

	return plan, nil
}

func (s *Service) UpdatePlan(
	ctx context.Context,
	id string,
	req UpdatePlanRequest,
) (*Plan, error) {
	plan, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		plan.Name = *req.Name
	}
	if req.Description != nil {
		plan.Description = *req.Description
	}
	if req.Price != nil {
		plan.Price = *req.Price
	}
	if req.Currency != nil {
		plan.Currency = strings.ToUpper(*req.Currency)
	}
	if req.PeriodMonths != nil {
		plan.PeriodMonths = *req.PeriodMonths
	}
	if req.Key != nil {
		key := entitlement.PackageType(*req.Key)
		if !key.IsValid() {
			return nil, fmt.Errorf("unknown package type %q: %w", *req.Key, core.ErrInvalidInput)
		}
		plan.Key = key
	}
	if req.ProviderPriceID != nil {
		plan.ProviderPriceID = *req.ProviderPriceID
	}
	plan.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, plan); err != nil {
		return nil, err
	}

	return plan, nil
}

func (s *Service) SetActive(ctx context.Context, id string, active bool) (*Plan, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}

	s.logger.Info("plan availability changed",
		"plan_id", id,
		"active", active,
	)

	return s.repo.GetByID(ctx, id)
}

// DeletePlan removes the plan document. Orders keep their own copy of the
// plan's key, price and period so reconciliation does not depend on it.
func (s *Service) DeletePlan(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("plan deleted", "plan_id", id)
	return nil
}
