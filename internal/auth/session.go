// AngelaMos | 2026
// session.go

package auth

import (
	"time"
)

// Session is one refresh token in a rotation family. Rotating a session
// marks it used and points it at its successor; presenting a used token
// again is treated as theft of the whole family.
type Session struct {
	ID           string     `db:"id"`
	UserID       string     `db:"user_id"`
	TokenHash    string     `db:"token_hash"`
	FamilyID     string     `db:"family_id"`
	ExpiresAt    time.Time  `db:"expires_at"`
	CreatedAt    time.Time  `db:"created_at"`
	IsUsed       bool       `db:"is_used"`
	UsedAt       *time.Time `db:"used_at"`
	RevokedAt    *time.Time `db:"revoked_at"`
	ReplacedByID *string    `db:"replaced_by_id"`
	UserAgent    string     `db:"user_agent"`
	IPAddress    string     `db:"ip_address"`
}

type SessionState int

const (
	SessionActive SessionState = iota
	SessionRotated
	SessionRevoked
	SessionExpired
)

func (s SessionState) String() string {
	switch s {
	case SessionActive:
		return "active"
	case SessionRotated:
		return "rotated"
	case SessionRevoked:
		return "revoked"
	case SessionExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// State resolves the session at now. Rotation wins over revocation so a
// replayed token in an already revoked family is still reported as reuse.
func (s *Session) State(now time.Time) SessionState {
	switch {
	case s.IsUsed:
		return SessionRotated
	case s.RevokedAt != nil:
		return SessionRevoked
	case !now.Before(s.ExpiresAt):
		return SessionExpired
	default:
		return SessionActive
	}
}

func (s *Session) info() SessionInfo {
	return SessionInfo{
		ID:        s.ID,
		UserAgent: s.UserAgent,
		IPAddress: s.IPAddress,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
}
