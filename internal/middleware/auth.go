// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/denemeapp/kpss-backend/internal/core"
)

type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*AccessTokenClaims, error)
}

// AccessTokenClaims is the decoded view of an access token. Admin, Premium
// and PremiumExp mirror the identity provider's custom claims at issue time.
type AccessTokenClaims struct {
	UserID       string
	TokenID      string
	TokenVersion int
	Admin        bool
	Premium      bool
	PremiumExp   *time.Time
	ExpiresAt    time.Time
}

// PremiumActive reports whether the premium claim is still within its expiry.
func (c *AccessTokenClaims) PremiumActive(now time.Time) bool {
	if c == nil || !c.Premium {
		return false
	}
	return c.PremiumExp == nil || c.PremiumExp.After(now)
}

var errMissingToken = errors.New("missing bearer token")

// bearer returns the token from "Authorization: Bearer <token>".
func bearer(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", errMissingToken
	}
	return token, nil
}

func authenticate(verifier TokenVerifier, r *http.Request) (*AccessTokenClaims, error) {
	token, err := bearer(r)
	if err != nil {
		return nil, err
	}
	return verifier.VerifyAccessToken(r.Context(), token)
}

// Authenticator rejects requests without a valid access token.
func Authenticator(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(verifier, r)
			if err != nil {
				core.JSONError(w, authFailure(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuth attaches claims when a valid token is present and lets
// anonymous or badly authenticated requests through untouched.
func OptionalAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, err := authenticate(verifier, r); err == nil {
				r = r.WithContext(WithClaims(r.Context(), claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin admits only tokens carrying admin:true. A request without
// verified claims gets 401, a non-admin token gets 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r.Context())
		switch {
		case claims == nil:
			core.JSONError(w, core.UnauthorizedError(""))
		case !claims.Admin:
			core.JSONError(w, core.ForbiddenError("admin privileges required"))
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func authFailure(err error) *core.AppError {
	if appErr, ok := core.AsAppError(err); ok {
		return appErr
	}
	switch {
	case errors.Is(err, errMissingToken):
		return core.UnauthorizedError("missing authorization token")
	case errors.Is(err, core.ErrTokenExpired):
		return core.TokenExpiredError()
	case errors.Is(err, core.ErrTokenRevoked):
		return core.TokenRevokedError()
	default:
		return core.TokenInvalidError()
	}
}
