// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrEmailExists        = errors.New("email already exists")
)

// UserInfo is the identity record the auth service needs from the user
// store. CustomClaims are copied into every issued access token.
type UserInfo struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CustomClaims map[string]any
	TokenVersion int
	CreatedAt    time.Time
}

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(ctx context.Context, email, passwordHash, name string) (*UserInfo, error)
	IncrementTokenVersion(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	GetCustomClaims(ctx context.Context, userID string) (map[string]any, int64, error)
	SetCustomClaims(
		ctx context.Context,
		userID string,
		claims map[string]any,
		expectedVersion int64,
	) error
}

// Client identifies where a session was opened from.
type Client struct {
	UserAgent string
	IPAddress string
}

type Service struct {
	sessions  SessionStore
	jwt       *JWTManager
	users     UserProvider
	blacklist *Blacklist
	now       func() time.Time
}

func NewService(
	sessions SessionStore,
	jwt *JWTManager,
	users UserProvider,
	redisClient *redis.Client,
) *Service {
	return &Service{
		sessions:  sessions,
		jwt:       jwt,
		users:     users,
		blacklist: NewBlacklist(redisClient),
		now:       time.Now,
	}
}

func (s *Service) Login(ctx context.Context, req LoginRequest, client Client) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	switch {
	case errors.Is(err, core.ErrNotFound):
		// burn the same argon2 cost as a real check so unknown emails
		// are not distinguishable by latency
		_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil) //nolint:errcheck // always fails
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("login: %w", err)
	}

	ok, upgraded, err := core.VerifyPasswordTimingSafe(req.Password, &user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if upgraded != "" {
		if err := s.users.UpdatePassword(ctx, user.ID, upgraded); err != nil {
			slog.WarnContext(ctx, "password rehash failed", "user_id", user.ID, "error", err)
		}
	}

	return s.openSession(ctx, user, client, "")
}

func (s *Service) Register(ctx context.Context, req RegisterRequest, client Client) (*AuthResponse, error) {
	hash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	user, err := s.users.Create(ctx, req.Email, hash, req.Name)
	if errors.Is(err, core.ErrDuplicateKey) {
		return nil, ErrEmailExists
	}
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	return s.openSession(ctx, user, client, "")
}

// Refresh rotates a refresh token. Replaying an already rotated token
// revokes its whole family.
func (s *Service) Refresh(ctx context.Context, token string, client Client) (*AuthResponse, error) {
	session, err := s.sessions.ByHash(ctx, core.HashToken(token))
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
	}
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	switch session.State(s.now()) {
	case SessionRotated:
		if err := s.sessions.RevokeFamily(ctx, session.FamilyID); err != nil {
			slog.ErrorContext(ctx, "revoke reused session family failed",
				"family_id", session.FamilyID,
				"error", err,
			)
		}
		slog.WarnContext(ctx, "refresh token reuse", "user_id", session.UserID)
		return nil, ErrTokenReuse
	case SessionRevoked:
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
	case SessionExpired:
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	resp, err := s.openSession(ctx, user, client, session.FamilyID)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Rotate(ctx, session.ID, resp.sessionID); err != nil {
		// a concurrent refresh won the race; treat this one as a replay
		if errors.Is(err, core.ErrConflict) {
			_ = s.sessions.RevokeFamily(ctx, session.FamilyID) //nolint:errcheck // already failing
			return nil, ErrTokenReuse
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}

	return resp, nil
}

// Logout revokes the caller's refresh token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token, userID string) error {
	session, err := s.sessions.ByHash(ctx, core.HashToken(token))
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if session.UserID != userID {
		return fmt.Errorf("logout: %w", core.ErrForbidden)
	}

	if err := s.sessions.Revoke(ctx, session.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// LogoutAll revokes every refresh token and bumps the token version so
// outstanding access tokens stop verifying.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := s.sessions.RevokeUser(ctx, userID); err != nil {
		return fmt.Errorf("logout all: %w", err)
	}
	if err := s.users.IncrementTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("logout all: %w", err)
	}
	return nil
}

// RevokeSessions lets entitlement changes force a fresh token.
func (s *Service) RevokeSessions(ctx context.Context, userID string) error {
	return s.LogoutAll(ctx, userID)
}

func (s *Service) GetCustomClaims(ctx context.Context, userID string) (map[string]any, int64, error) {
	return s.users.GetCustomClaims(ctx, userID)
}

func (s *Service) SetCustomClaims(
	ctx context.Context,
	userID string,
	claims map[string]any,
	expectedVersion int64,
) error {
	return s.users.SetCustomClaims(ctx, userID, claims, expectedVersion)
}

// VerifyAccessToken validates the JWT, then rejects blacklisted tokens and
// tokens issued before the user's last revocation. A blacklist outage is
// logged and does not fail the request.
func (s *Service) VerifyAccessToken(ctx context.Context, token string) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.VerifyAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.blacklist.Contains(ctx, claims.TokenID)
	if err != nil {
		slog.WarnContext(ctx, "blacklist lookup failed", "error", err)
	}
	if revoked {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if claims.TokenVersion < user.TokenVersion {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	return claims, nil
}

func (s *Service) RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error {
	return s.blacklist.Add(ctx, jti, expiresAt)
}

func (s *Service) GetActiveSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	sessions, err := s.sessions.Active(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	out := make([]SessionInfo, len(sessions))
	for i := range sessions {
		out[i] = sessions[i].info()
	}
	return out, nil
}

func (s *Service) RevokeSession(ctx context.Context, userID, sessionID string) error {
	session, err := s.sessions.ByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if session.UserID != userID {
		return fmt.Errorf("revoke session: %w", core.ErrForbidden)
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// ChangePassword replaces the hash and signs the user out everywhere.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	ok, err := core.VerifyPassword(current, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := core.HashPassword(next)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	return s.LogoutAll(ctx, userID)
}

func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return newUserResponse(user), nil
}

// openSession issues an access token and stores a new refresh token in
// familyID, or in a new family when familyID is empty.
func (s *Service) openSession(
	ctx context.Context,
	user *UserInfo,
	client Client,
	familyID string,
) (*AuthResponse, error) {
	access, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:       user.ID,
		TokenVersion: user.TokenVersion,
		Custom:       user.CustomClaims,
	})
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	refresh, err := s.jwt.newRefreshToken(familyID)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	session := &Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: refresh.hash,
		FamilyID:  refresh.familyID,
		ExpiresAt: refresh.expiresAt,
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
	}
	if err := s.sessions.Insert(ctx, session); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	ttl := s.jwt.AccessTokenTTL()
	return &AuthResponse{
		User: *newUserResponse(user),
		Tokens: TokenResponse{
			AccessToken:  access,
			RefreshToken: refresh.plain,
			TokenType:    "Bearer",
			ExpiresIn:    int(ttl.Seconds()),
			ExpiresAt:    s.now().Add(ttl),
		},
		sessionID: session.ID,
	}, nil
}
