// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/denemeapp/kpss-backend/internal/auth"
	"github.com/denemeapp/kpss-backend/internal/core"
)

// Service is the identity store behind auth and the claims synchronizer.
// Emails are matched case-insensitively by storing them lowercased.
type Service struct {
	repo Repository
}

var _ auth.UserProvider = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(ctx context.Context, id string) (*auth.UserInfo, error) {
	return s.info(s.repo.GetByID(ctx, id))
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*auth.UserInfo, error) {
	return s.info(s.repo.GetByEmail(ctx, normalizeEmail(email)))
}

func (s *Service) Create(ctx context.Context, email, passwordHash, name string) (*auth.UserInfo, error) {
	u := &User{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(name),
		CustomClaims: CustomClaims{},
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.info(u, nil)
}

func (s *Service) info(u *User, err error) (*auth.UserInfo, error) {
	if err != nil {
		return nil, err
	}
	return &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		CustomClaims: cloneClaims(u.CustomClaims),
		TokenVersion: u.TokenVersion,
		CreatedAt:    u.CreatedAt,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) IncrementTokenVersion(ctx context.Context, userID string) error {
	return s.repo.IncrementTokenVersion(ctx, userID)
}

func (s *Service) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) GetCustomClaims(ctx context.Context, userID string) (map[string]any, int64, error) {
	claims, version, err := s.repo.GetClaims(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return claims, version, nil
}

func (s *Service) SetCustomClaims(
	ctx context.Context,
	userID string,
	claims map[string]any,
	expectedVersion int64,
) error {
	return s.repo.SetClaims(ctx, userID, claims, expectedVersion)
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id string, req UpdateUserRequest) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name == nil {
		return u, nil
	}

	u.Name = strings.TrimSpace(*req.Name)
	if err := s.repo.Rename(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	return s.repo.List(ctx, filter)
}

// Delete soft deletes targetID on behalf of requesterID. Users may always
// delete themselves; deleting someone else takes an admin, and admins can
// only be removed by themselves.
func (s *Service) Delete(ctx context.Context, requesterID, targetID string) error {
	if requesterID != targetID {
		requester, err := s.repo.GetByID(ctx, requesterID)
		if err != nil {
			return err
		}
		if !requester.CustomClaims.Admin() {
			return fmt.Errorf("delete user: %w", core.ErrForbidden)
		}

		target, err := s.repo.GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		if target.CustomClaims.Admin() {
			return fmt.Errorf("delete admin %s: %w", targetID, core.ErrForbidden)
		}
	}

	return s.repo.SoftDelete(ctx, targetID)
}
