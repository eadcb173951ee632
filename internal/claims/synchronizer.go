// AngelaMos | 2026
// synchronizer.go

package claims

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/entitlement"
	"github.com/denemeapp/kpss-backend/internal/metrics"
)

const (
	KeyAdmin      = "admin"
	KeyPremium    = "premium"
	KeyPremiumExp = "premiumExp"

	maxAttempts = 3
)

// ErrClaimsConflict is returned by SetCustomClaims when the stored version no
// longer matches the version the caller read.
var ErrClaimsConflict = core.ErrConflict

// IdentityProvider is the claim store of the identity provider.
// SetCustomClaims replaces the whole claim object.
type IdentityProvider interface {
	GetCustomClaims(
		ctx context.Context,
		userID string,
	) (map[string]any, int64, error)
	SetCustomClaims(
		ctx context.Context,
		userID string,
		claims map[string]any,
		expectedVersion int64,
	) error
	RevokeSessions(ctx context.Context, userID string) error
}

type Options struct {
	Revoke bool
}

type Synchronizer struct {
	store  entitlement.Store
	idp    IdentityProvider
	logger *slog.Logger
	now    func() time.Time
}

func NewSynchronizer(
	store entitlement.Store,
	idp IdentityProvider,
	logger *slog.Logger,
) *Synchronizer {
	return &Synchronizer{
		store:  store,
		idp:    idp,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Sync recomputes premium and premiumExp from a fresh read of the
// entitlement record and merges them over the current claims. Every other
// claim, admin included, is carried over untouched.
func (s *Synchronizer) Sync(ctx context.Context, userID string, opts Options) error {
	record, err := s.store.Get(ctx, userID)
	if err != nil {
		metrics.ClaimsSyncTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("sync claims: load entitlements: %w", err)
	}

	premium, premiumExp := PremiumFromRecord(record, s.now())

	if err := s.mergeWithRetry(ctx, userID, func(current map[string]any) {
		current[KeyPremium] = premium
		if premiumExp != nil {
			current[KeyPremiumExp] = *premiumExp
		} else {
			delete(current, KeyPremiumExp)
		}
	}); err != nil {
		metrics.ClaimsSyncTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("sync claims: %w", err)
	}

	if opts.Revoke {
		if err := s.idp.RevokeSessions(ctx, userID); err != nil {
			metrics.ClaimsSyncTotal.WithLabelValues("revoke_error").Inc()
			return fmt.Errorf("sync claims: revoke sessions: %w", err)
		}
	}

	metrics.ClaimsSyncTotal.WithLabelValues("ok").Inc()
	s.logger.Info("claims synchronized",
		"user_id", userID,
		"premium", premium,
		"revoked", opts.Revoke,
	)

	return nil
}

// SyncClaims adapts Sync to entitlement.ClaimsSyncer.
func (s *Synchronizer) SyncClaims(ctx context.Context, userID string, revoke bool) error {
	return s.Sync(ctx, userID, Options{Revoke: revoke})
}

// GrantAdmin merges admin:true into the claims and revokes sessions so the
// next token carries it. Only the bootstrap command calls this.
func (s *Synchronizer) GrantAdmin(ctx context.Context, userID string) error {
	if err := s.mergeWithRetry(ctx, userID, func(current map[string]any) {
		current[KeyAdmin] = true
	}); err != nil {
		return fmt.Errorf("grant admin: %w", err)
	}

	if err := s.idp.RevokeSessions(ctx, userID); err != nil {
		return fmt.Errorf("grant admin: revoke sessions: %w", err)
	}

	s.logger.Info("admin claim granted", "user_id", userID)
	return nil
}

func (s *Synchronizer) mergeWithRetry(
	ctx context.Context,
	userID string,
	apply func(current map[string]any),
) error {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		current, version, err := s.idp.GetCustomClaims(ctx, userID)
		if err != nil {
			return fmt.Errorf("read claims: %w", err)
		}

		merged := make(map[string]any, len(current)+2)
		maps.Copy(merged, current)
		apply(merged)

		err = s.idp.SetCustomClaims(ctx, userID, merged, version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrClaimsConflict) {
			return fmt.Errorf("write claims: %w", err)
		}

		lastErr = err
		s.logger.Warn("claims write conflict, retrying",
			"user_id", userID,
			"attempt", attempt,
		)
	}

	return fmt.Errorf("write claims after %d attempts: %w", maxAttempts, lastErr)
}

// PremiumFromRecord returns whether the full bundle is active and its expiry
// as unix seconds, nil when no expiry is recorded.
func PremiumFromRecord(record *entitlement.Record, now time.Time) (bool, *int64) {
	status := entitlement.ComputeStatus(record, entitlement.PackageFullBundle, now)

	var exp *int64
	if status.ExpiryDate != nil {
		unix := status.ExpiryDate.Unix()
		exp = &unix
	}

	return status.State() == entitlement.StateActive, exp
}
