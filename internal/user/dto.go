// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

type UpdateUserRequest struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
}

type UserResponse struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Admin      bool       `json:"admin"`
	Premium    bool       `json:"premium"`
	PremiumExp *time.Time `json:"premium_exp,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func newUserResponse(u *User) UserResponse {
	premium, exp := u.CustomClaims.Premium()
	return UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Admin:      u.CustomClaims.Admin(),
		Premium:    premium,
		PremiumExp: exp,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// ListFilter narrows the admin user listing. Nil flags match everyone.
type ListFilter struct {
	Page     int
	PageSize int
	Search   string
	Admin    *bool
	Premium  *bool
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (f ListFilter) normalized() ListFilter {
	f.Page = max(f.Page, 1)
	if f.PageSize < 1 {
		f.PageSize = defaultPageSize
	}
	f.PageSize = min(f.PageSize, maxPageSize)
	return f
}

func (f ListFilter) offset() int {
	return (f.Page - 1) * f.PageSize
}
