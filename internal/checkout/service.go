// AngelaMos | 2026
// service.go

package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/denemeapp/kpss-backend/internal/catalog"
	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/metrics"
	"github.com/denemeapp/kpss-backend/internal/order"
	"github.com/denemeapp/kpss-backend/internal/payment"
)

type Buyer struct {
	UserID string
	Email  string
	Name   string
}

type Session struct {
	OrderID     string `json:"order_id"`
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
}

type Service struct {
	plans       catalog.Repository
	orders      order.Repository
	provider    payment.Provider
	callbackURL string
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(
	plans catalog.Repository,
	orders order.Repository,
	provider payment.Provider,
	callbackURL string,
	logger *slog.Logger,
) *Service {
	return &Service{
		plans:       plans,
		orders:      orders,
		provider:    provider,
		callbackURL: callbackURL,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateCheckout records a pending order for the plan and opens a hosted
// checkout for it. Nothing is granted here; the payment webhook does that.
func (s *Service) CreateCheckout(
	ctx context.Context,
	buyer Buyer,
	planID string,
) (*Session, error) {
	if strings.TrimSpace(buyer.UserID) == "" {
		return nil, fmt.Errorf("create checkout: %w", core.ErrUnauthorized)
	}

	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		record("unknown", "rejected")
		return nil, fmt.Errorf("create checkout: %w", err)
	}
	if !plan.Active {
		record(string(plan.Key), "rejected")
		return nil, fmt.Errorf("plan %s is not available: %w", plan.ID, core.ErrInvalidInput)
	}

	o := &order.Order{
		ID:           uuid.New().String(),
		UserID:       buyer.UserID,
		PlanID:       plan.ID,
		PlanKey:      plan.Key,
		Amount:       plan.Price,
		Currency:     plan.Currency,
		PeriodMonths: plan.PeriodMonths,
		Provider:     s.provider.Name(),
		Status:       order.StatusPending,
		CreatedAt:    s.now(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		record(string(plan.Key), "error")
		return nil, fmt.Errorf("create checkout: %w", err)
	}

	session, err := s.provider.CreateCheckout(ctx, payment.CheckoutRequest{
		OrderID:     o.ID,
		UserID:      buyer.UserID,
		Email:       buyer.Email,
		PriceID:     plan.ProviderPriceID,
		Amount:      plan.Price,
		Currency:    plan.Currency,
		Description: plan.Name,
		SuccessURL:  s.callbackURL,
	})
	if err != nil {
		s.logger.Error("provider checkout failed",
			"order_id", o.ID,
			"plan_id", plan.ID,
			"provider", s.provider.Name(),
			"error", err,
		)
		record(string(plan.Key), "error")
		return nil, fmt.Errorf("create checkout: %w", err)
	}

	if err := s.orders.SetProviderRef(ctx, o.ID, session.SessionID); err != nil {
		record(string(plan.Key), "error")
		return nil, fmt.Errorf("create checkout: %w", err)
	}

	s.logger.Info("checkout created",
		"order_id", o.ID,
		"user_id", buyer.UserID,
		"plan_id", plan.ID,
		"session_id", session.SessionID,
	)
	record(string(plan.Key), "ok")

	return &Session{
		OrderID:     o.ID,
		CheckoutURL: session.URL,
		SessionID:   session.SessionID,
	}, nil
}

func record(planKey, outcome string) {
	metrics.CheckoutsTotal.WithLabelValues(planKey, outcome).Inc()
}

// IsProviderFailure reports whether err came from the payment provider.
func IsProviderFailure(err error) bool {
	return errors.Is(err, core.ErrProviderError)
}
