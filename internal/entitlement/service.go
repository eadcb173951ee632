// AngelaMos | 2026
// service.go

package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/docstore"
	"github.com/denemeapp/kpss-backend/internal/metrics"
)

// ClaimsSyncer projects the entitlement record into identity claims.
type ClaimsSyncer interface {
	SyncClaims(ctx context.Context, userID string, revoke bool) error
}

// RevokePolicy decides which mutations force the user's sessions to end once
// claims have been rewritten.
type RevokePolicy struct {
	OnAdd    bool
	OnExtend bool
	OnRemove bool
}

func DefaultRevokePolicy(revokeOnExtend bool) RevokePolicy {
	return RevokePolicy{
		OnAdd:    true,
		OnExtend: revokeOnExtend,
		OnRemove: true,
	}
}

type Service struct {
	store  Store
	tx     docstore.Transactor
	claims ClaimsSyncer
	policy RevokePolicy
	logger *slog.Logger
	now    func() time.Time
}

func NewService(
	store Store,
	tx docstore.Transactor,
	claims ClaimsSyncer,
	policy RevokePolicy,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:  store,
		tx:     tx,
		claims: claims,
		policy: policy,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) GetRecord(ctx context.Context, userID string) (*Record, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("get record: user id required: %w", core.ErrInvalidInput)
	}
	return s.store.Get(ctx, userID)
}

// AddPackage always sets expiry to now+duration, even when that shortens an
// active grant. Use ExtendPackage to add time on top of an existing grant.
func (s *Service) AddPackage(
	ctx context.Context,
	userID string,
	p PackageType,
	durationHours int,
) Result {
	return observe("add", p, s.addPackage(ctx, userID, p, durationHours))
}

func (s *Service) addPackage(
	ctx context.Context,
	userID string,
	p PackageType,
	durationHours int,
) Result {
	if err := validateMutation(userID, p); err != nil {
		return failure(err, err.Error())
	}
	if err := validateHours("duration_hours", durationHours); err != nil {
		return failure(err, err.Error())
	}

	expiresAt := s.now().Add(time.Duration(durationHours) * time.Hour)

	if err := s.store.Grant(ctx, userID, p, expiresAt); err != nil {
		s.logger.Error("add package failed",
			"user_id", userID,
			"package_type", p,
			"error", err,
		)
		return failure(err, "failed to add package")
	}

	s.logger.Info("package added",
		"user_id", userID,
		"package_type", p,
		"expires_at", expiresAt,
	)

	return s.complete(ctx, userID, p, s.policy.OnAdd,
		fmt.Sprintf("package %s active until %s", p, expiresAt.Format(time.RFC3339)))
}

// ExtendPackage adds time on top of max(current expiry, now) so expiry never
// moves backward and a lapsed grant restarts from now.
func (s *Service) ExtendPackage(
	ctx context.Context,
	userID string,
	p PackageType,
	additionalHours int,
) Result {
	return observe("extend", p, s.extendPackage(ctx, userID, p, additionalHours))
}

func (s *Service) extendPackage(
	ctx context.Context,
	userID string,
	p PackageType,
	additionalHours int,
) Result {
	if err := validateMutation(userID, p); err != nil {
		return failure(err, err.Error())
	}
	if err := validateHours("additional_hours", additionalHours); err != nil {
		return failure(err, err.Error())
	}

	var expiresAt time.Time
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		record, err := s.store.Get(ctx, userID)
		if err != nil {
			return err
		}

		expiresAt = ExtendFrom(record.Expiry(p), s.now(), additionalHours)
		return s.store.Grant(ctx, userID, p, expiresAt)
	})
	if err != nil {
		s.logger.Error("extend package failed",
			"user_id", userID,
			"package_type", p,
			"error", err,
		)
		return failure(err, "failed to extend package")
	}

	s.logger.Info("package extended",
		"user_id", userID,
		"package_type", p,
		"expires_at", expiresAt,
	)

	return s.complete(ctx, userID, p, s.policy.OnExtend,
		fmt.Sprintf("package %s extended until %s", p, expiresAt.Format(time.RFC3339)))
}

// RemovePackage clears ownership but keeps the expiry date as history. A user
// without a record is left without one.
func (s *Service) RemovePackage(
	ctx context.Context,
	userID string,
	p PackageType,
) Result {
	return observe("remove", p, s.removePackage(ctx, userID, p))
}

func (s *Service) removePackage(
	ctx context.Context,
	userID string,
	p PackageType,
) Result {
	if err := validateMutation(userID, p); err != nil {
		return failure(err, err.Error())
	}

	if err := s.store.Revoke(ctx, userID, p); err != nil {
		s.logger.Error("remove package failed",
			"user_id", userID,
			"package_type", p,
			"error", err,
		)
		return failure(err, "failed to remove package")
	}

	s.logger.Info("package removed",
		"user_id", userID,
		"package_type", p,
	)

	return s.complete(ctx, userID, p, s.policy.OnRemove,
		fmt.Sprintf("package %s removed", p))
}

func (s *Service) ListPackages(ctx context.Context, userID string) (*Listing, error) {
	record, err := s.GetRecord(ctx, userID)
	if err != nil {
		return nil, err
	}
	return BuildListing(record, s.now()), nil
}

// HasAccess reports whether the user may use content of package p. An active
// full bundle covers every package.
func (s *Service) HasAccess(
	ctx context.Context,
	userID string,
	p PackageType,
) (bool, error) {
	record, err := s.GetRecord(ctx, userID)
	if err != nil {
		return false, err
	}

	now := s.now()
	return record.IsActive(p, now) || record.IsActive(PackageFullBundle, now), nil
}

func (s *Service) complete(
	ctx context.Context,
	userID string,
	p PackageType,
	revoke bool,
	message string,
) Result {
	if p.IsFullBundle() && s.claims != nil {
		if err := s.claims.SyncClaims(ctx, userID, revoke); err != nil {
			s.logger.Error("claims sync failed after package mutation",
				"user_id", userID,
				"package_type", p,
				"error", err,
			)
		}
	}

	record, err := s.store.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("reload entitlement record failed",
			"user_id", userID,
			"error", err,
		)
		return Result{Success: true, Message: message}
	}

	return Result{Success: true, Message: message, Record: record}
}

// ExtendFrom returns max(current, now) + hours.
func ExtendFrom(current *time.Time, now time.Time, hours int) time.Time {
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	return base.Add(time.Duration(hours) * time.Hour)
}

// MaxGrantHours caps a single grant or extension at ten years. The request
// DTOs carry the same bound in their validate tags.
const MaxGrantHours = 87600

func validateHours(field string, hours int) error {
	if hours <= 0 {
		return fmt.Errorf("%s must be positive: %w", field, core.ErrInvalidInput)
	}
	if hours > MaxGrantHours {
		return fmt.Errorf("%s must be at most %d: %w", field, MaxGrantHours, core.ErrInvalidInput)
	}
	return nil
}

func validateMutation(userID string, p PackageType) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user_id is required: %w", core.ErrInvalidInput)
	}
	if !p.IsValid() {
		return fmt.Errorf("unknown package type %q: %w", p, core.ErrInvalidInput)
	}
	return nil
}

func observe(op string, p PackageType, res Result) Result {
	outcome := "ok"
	if !res.Success {
		outcome = "error"
		if core.StatusFromError(res.Err) < 500 {
			outcome = "rejected"
		}
	}

	label := string(p)
	if !p.IsValid() {
		label = "unknown"
	}

	metrics.PackageMutationsTotal.WithLabelValues(op, label, outcome).Inc()
	return res
}

func failure(err error, message string) Result {
	return Result{Success: false, Message: message, Err: err}
}
