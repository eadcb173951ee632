// AngelaMos | 2026
// context.go

package middleware

import (
	"context"
	"time"
)

const claimsKey contextKey = "access_claims"

const (
	TierFree    = "free"
	TierPremium = "premium"
	TierAdmin   = "admin"
)

func WithClaims(ctx context.Context, claims *AccessTokenClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func GetClaims(ctx context.Context) *AccessTokenClaims {
	claims, _ := ctx.Value(claimsKey).(*AccessTokenClaims)
	return claims
}

func GetUserID(ctx context.Context) string {
	if claims := GetClaims(ctx); claims != nil {
		return claims.UserID
	}
	return ""
}

func IsAdmin(ctx context.Context) bool {
	claims := GetClaims(ctx)
	return claims != nil && claims.Admin
}

// GetUserTier derives the rate limit tier from the verified claims. It is
// empty for anonymous requests.
func GetUserTier(ctx context.Context) string {
	claims := GetClaims(ctx)
	switch {
	case claims == nil:
		return ""
	case claims.Admin:
		return TierAdmin
	case claims.PremiumActive(time.Now()):
		return TierPremium
	default:
		return TierFree
	}
}
