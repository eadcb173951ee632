// AngelaMos | 2026
// store.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/denemeapp/kpss-backend/internal/core"
)

type SessionStore interface {
	Insert(ctx context.Context, session *Session) error
	ByHash(ctx context.Context, tokenHash string) (*Session, error)
	ByID(ctx context.Context, id string) (*Session, error)
	// Rotate marks an unused session as used by its successor. It returns
	// core.ErrConflict when the session was already rotated.
	Rotate(ctx context.Context, id, successorID string) error
	Revoke(ctx context.Context, id string) error
	RevokeFamily(ctx context.Context, familyID string) error
	RevokeUser(ctx context.Context, userID string) error
	Active(ctx context.Context, userID string) ([]Session, error)
}

const sessionColumns = `
	id, user_id, token_hash, family_id, expires_at, created_at,
	is_used, used_at, revoked_at, replaced_by_id, user_agent, ip_address`

type pgSessionStore struct {
	db core.DBTX
}

func NewSessionStore(db core.DBTX) SessionStore {
	return &pgSessionStore{db: db}
}

func (p *pgSessionStore) Insert(ctx context.Context, session *Session) error {
	const query = `
		INSERT INTO refresh_tokens (
			id, user_id, token_hash, family_id, expires_at, user_agent, ip_address
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := p.db.GetContext(ctx, &session.CreatedAt, query,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.FamilyID,
		session.ExpiresAt,
		session.UserAgent,
		session.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (p *pgSessionStore) ByHash(ctx context.Context, tokenHash string) (*Session, error) {
	return p.one(ctx, "token_hash", tokenHash)
}

func (p *pgSessionStore) ByID(ctx context.Context, id string) (*Session, error) {
	return p.one(ctx, "id", id)
}

// one loads a single session by a trusted column name.
func (p *pgSessionStore) one(ctx context.Context, column, value string) (*Session, error) {
	query := `SELECT` + sessionColumns + ` FROM refresh_tokens WHERE ` + column + ` = $1`

	var session Session
	err := p.db.GetContext(ctx, &session, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session by %s: %w", column, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("session by %s: %w", column, err)
	}
	return &session, nil
}

func (p *pgSessionStore) Rotate(ctx context.Context, id, successorID string) error {
	const query = `
		UPDATE refresh_tokens
		SET is_used = true, used_at = NOW(), replaced_by_id = $2
		WHERE id = $1 AND is_used = false`

	result, err := p.db.ExecContext(ctx, query, id, successorID)
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	return requireRow(result, "rotate session", core.ErrConflict)
}

func (p *pgSessionStore) Revoke(ctx context.Context, id string) error {
	const query = `
		UPDATE refresh_tokens SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL`

	result, err := p.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return requireRow(result, "revoke session", core.ErrNotFound)
}

func (p *pgSessionStore) RevokeFamily(ctx context.Context, familyID string) error {
	const query = `
		UPDATE refresh_tokens SET revoked_at = NOW()
		WHERE family_id = $1 AND revoked_at IS NULL`

	if _, err := p.db.ExecContext(ctx, query, familyID); err != nil {
		return fmt.Errorf("revoke session family: %w", err)
	}
	return nil
}

func (p *pgSessionStore) RevokeUser(ctx context.Context, userID string) error {
	const query = `
		UPDATE refresh_tokens SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL`

	if _, err := p.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("revoke user sessions: %w", err)
	}
	return nil
}

func (p *pgSessionStore) Active(ctx context.Context, userID string) ([]Session, error) {
	query := `SELECT` + sessionColumns + `
		FROM refresh_tokens
		WHERE user_id = $1
			AND revoked_at IS NULL
			AND is_used = false
			AND expires_at > NOW()
		ORDER BY created_at DESC`

	var sessions []Session
	if err := p.db.SelectContext(ctx, &sessions, query, userID); err != nil {
		return nil, fmt.Errorf("active sessions: %w", err)
	}
	return sessions, nil
}

func requireRow(result sql.Result, op string, missing error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, missing)
	}
	return nil
}
