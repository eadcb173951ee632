// AngelaMos | 2026
// reconciler.go

package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/docstore"
	"github.com/denemeapp/kpss-backend/internal/entitlement"
	"github.com/denemeapp/kpss-backend/internal/metrics"
	"github.com/denemeapp/kpss-backend/internal/order"
)

const tracerName = "github.com/denemeapp/kpss-backend/internal/webhook"

type Outcome struct {
	OrderID     string                  `json:"order_id"`
	UserID      string                  `json:"user_id"`
	PackageType entitlement.PackageType `json:"package_type"`
	ExpiresAt   *time.Time              `json:"expires_at,omitempty"`
	AlreadyPaid bool                    `json:"already_paid"`
}

type Reconciler struct {
	orders       order.Repository
	entitlements entitlement.Store
	tx           docstore.Transactor
	claims       entitlement.ClaimsSyncer
	logger       *slog.Logger
	now          func() time.Time
}

func NewReconciler(
	orders order.Repository,
	entitlements entitlement.Store,
	tx docstore.Transactor,
	claims entitlement.ClaimsSyncer,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		orders:       orders,
		entitlements: entitlements,
		tx:           tx,
		claims:       claims,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile marks the order paid and grants its package in one transaction.
// An order that is already paid is left untouched, so provider retries are
// safe. Claims are synced and sessions revoked only after commit.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	orderID, providerRef string,
) (*Outcome, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "webhook.reconcile")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("reconcile: order id required: %w", core.ErrInvalidInput)
	}

	var outcome Outcome
	err := r.tx.InTx(ctx, func(ctx context.Context) error {
		outcome = Outcome{OrderID: orderID}

		o, err := r.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		outcome.UserID = o.UserID
		outcome.PackageType = o.PlanKey

		if o.IsPaid() {
			outcome.AlreadyPaid = true
			return nil
		}
		if !o.PlanKey.IsValid() {
			return fmt.Errorf("order %s has unknown plan key %q: %w", o.ID, o.PlanKey, core.ErrInvalidState)
		}

		now := r.now()
		expiresAt := now.AddDate(0, o.PeriodMonths, 0)

		if providerRef == "" {
			providerRef = o.ProviderRef
		}
		if err := r.orders.MarkPaid(ctx, o.ID, providerRef, now); err != nil {
			if errors.Is(err, core.ErrInvalidState) {
				outcome.AlreadyPaid = true
				return nil
			}
			return err
		}

		if err := r.entitlements.Grant(ctx, o.UserID, o.PlanKey, expiresAt); err != nil {
			return err
		}

		outcome.ExpiresAt = &expiresAt
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile failed")
		r.logger.Error("order reconciliation failed",
			"order_id", orderID,
			"error", err,
		)
		return nil, fmt.Errorf("reconcile order %s: %w", orderID, err)
	}

	if outcome.AlreadyPaid {
		span.AddEvent("order.already_paid")
		r.logger.Info("webhook replay ignored",
			"order_id", orderID,
			"user_id", outcome.UserID,
		)
		return &outcome, nil
	}

	span.AddEvent("order.paid", traceAttrs(outcome)...)
	metrics.PackageMutationsTotal.WithLabelValues("grant", string(outcome.PackageType), "ok").Inc()
	r.logger.Info("order paid",
		"order_id", orderID,
		"user_id", outcome.UserID,
		"package_type", outcome.PackageType,
		"expires_at", outcome.ExpiresAt,
	)

	if r.claims != nil {
		if err := r.claims.SyncClaims(ctx, outcome.UserID, true); err != nil {
			span.AddEvent("claims.sync_failed")
			r.logger.Error("claims sync failed after payment",
				"order_id", orderID,
				"user_id", outcome.UserID,
				"error", err,
			)
		} else {
			span.AddEvent("claims.synced")
		}
	}

	return &outcome, nil
}

func traceAttrs(o Outcome) []trace.EventOption {
	return []trace.EventOption{trace.WithAttributes(
		attribute.String("user.id", o.UserID),
		attribute.String("package.type", string(o.PackageType)),
	)}
}
