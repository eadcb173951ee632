// AngelaMos | 2026
// tokens.go

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/middleware"
)

const (
	claimType         = "type"
	claimTokenVersion = "token_version"
	claimAdmin        = "admin"
	claimPremium      = "premium"
	claimPremiumExp   = "premiumExp"

	accessTokenType = "access"
)

type AccessTokenClaims struct {
	UserID       string
	TokenVersion int
	Custom       map[string]any
}

// registered claims a custom claim can never shadow
var reservedClaims = map[string]bool{
	jwt.IssuerKey:     true,
	jwt.SubjectKey:    true,
	jwt.AudienceKey:   true,
	jwt.ExpirationKey: true,
	jwt.NotBeforeKey:  true,
	jwt.IssuedAtKey:   true,
	jwt.JwtIDKey:      true,
	claimType:         true,
	claimTokenVersion: true,
}

func (m *JWTManager) AccessTokenTTL() time.Duration {
	return m.config.AccessTokenExpire
}

// CreateAccessToken signs a token carrying the identity provider's custom
// claims at the top level next to the registered ones.
func (m *JWTManager) CreateAccessToken(claims AccessTokenClaims) (string, error) {
	now := time.Now()

	b := jwt.NewBuilder().
		JwtID(uuid.NewString()).
		Issuer(m.config.Issuer).
		Audience([]string{m.config.Audience}).
		Subject(claims.UserID).
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(m.config.AccessTokenExpire)).
		Claim(claimTokenVersion, claims.TokenVersion).
		Claim(claimType, accessTokenType)

	for name, value := range claims.Custom {
		if !reservedClaims[name] {
			b = b.Claim(name, value)
		}
	}

	token, err := b.Build()
	if err != nil {
		return "", fmt.Errorf("build access token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256(), m.signing))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return string(signed), nil
}

// VerifyAccessToken checks the signature and registered claims. Revocation
// is the service's job.
func (m *JWTManager) VerifyAccessToken(
	_ context.Context,
	raw string,
) (*middleware.AccessTokenClaims, error) {
	token, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKey(jwa.ES256(), m.verify),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", core.ErrTokenInvalid)
	}

	if exp, ok := token.Expiration(); ok && !time.Now().Before(exp) {
		return nil, fmt.Errorf("access token: %w", core.ErrTokenExpired)
	}

	err = jwt.Validate(token,
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
	)
	if err != nil {
		return nil, fmt.Errorf("validate access token: %w", core.ErrTokenInvalid)
	}

	return decodeAccessClaims(token)
}

func decodeAccessClaims(token jwt.Token) (*middleware.AccessTokenClaims, error) {
	var kind string
	if token.Get(claimType, &kind) != nil || kind != accessTokenType {
		return nil, fmt.Errorf("access token type %q: %w", kind, core.ErrTokenInvalid)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf("access token subject: %w", core.ErrTokenInvalid)
	}

	// JSON numbers decode as float64
	var version float64
	if token.Get(claimTokenVersion, &version) != nil {
		return nil, fmt.Errorf("access token version: %w", core.ErrTokenInvalid)
	}

	out := &middleware.AccessTokenClaims{
		UserID:       subject,
		TokenVersion: int(version),
	}
	out.TokenID, _ = token.JwtID()
	out.ExpiresAt, _ = token.Expiration()

	_ = token.Get(claimAdmin, &out.Admin)     //nolint:errcheck // optional claim
	_ = token.Get(claimPremium, &out.Premium) //nolint:errcheck // optional claim

	var premiumExp float64
	if token.Get(claimPremiumExp, &premiumExp) == nil {
		exp := time.Unix(int64(premiumExp), 0).UTC()
		out.PremiumExp = &exp
	}

	return out, nil
}

type refreshToken struct {
	plain     string
	hash      string
	familyID  string
	expiresAt time.Time
}

// newRefreshToken mints an opaque token. An empty familyID starts a new
// rotation family.
func (m *JWTManager) newRefreshToken(familyID string) (*refreshToken, error) {
	plain, err := core.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if familyID == "" {
		familyID = uuid.NewString()
	}
	return &refreshToken{
		plain:     plain,
		hash:      core.HashToken(plain),
		familyID:  familyID,
		expiresAt: time.Now().Add(m.config.RefreshTokenExpire),
	}, nil
}
