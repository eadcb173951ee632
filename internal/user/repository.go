// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/denemeapp/kpss-backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Rename(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	IncrementTokenVersion(ctx context.Context, id string) error
	GetClaims(ctx context.Context, id string) (CustomClaims, int64, error)
	// SetClaims replaces the claim object only while claims_version still
	// equals expectedVersion, returning core.ErrConflict otherwise.
	SetClaims(ctx context.Context, id string, claims CustomClaims, expectedVersion int64) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]User, int, error)
}

const (
	userColumns = `id, email, password_hash, name, custom_claims, claims_version,
		token_version, created_at, updated_at, deleted_at`
	liveUser = `deleted_at IS NULL`

	pgUniqueViolation = "23505"
)

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, user *User) error {
	const query = `
		INSERT INTO users (id, email, password_hash, name, custom_claims)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at, token_version, claims_version`

	err := r.db.QueryRowxContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, user.CustomClaims,
	).Scan(&user.CreatedAt, &user.UpdatedAt, &user.TokenVersion, &user.ClaimsVersion)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *repository) getBy(ctx context.Context, column, value string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1 AND ` + liveUser

	var user User
	err := r.db.GetContext(ctx, &user, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user by %s: %w", column, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("user by %s: %w", column, err)
	}
	return &user, nil
}

func (r *repository) Rename(ctx context.Context, user *User) error {
	const query = `
		UPDATE users SET name = $2, updated_at = NOW()
		WHERE id = $1 AND ` + liveUser + `
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &user.UpdatedAt, query, user.ID, user.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("rename user: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("rename user: %w", err)
	}
	return nil
}

func (r *repository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.updateOne(ctx, "update password",
		`password_hash = $2`, id, passwordHash)
}

func (r *repository) IncrementTokenVersion(ctx context.Context, id string) error {
	return r.updateOne(ctx, "bump token version",
		`token_version = token_version + 1`, id)
}

// SoftDelete also bumps token_version so tokens already issued stop
// verifying even before the account lookup fails.
func (r *repository) SoftDelete(ctx context.Context, id string) error {
	return r.updateOne(ctx, "delete user",
		`deleted_at = NOW(), token_version = token_version + 1`, id)
}

// updateOne applies set to a single live user, mapping zero affected rows
// to core.ErrNotFound.
func (r *repository) updateOne(ctx context.Context, op, set string, id string, args ...any) error {
	query := `UPDATE users SET ` + set + `, updated_at = NOW() WHERE id = $1 AND ` + liveUser

	result, err := r.db.ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}

func (r *repository) GetClaims(ctx context.Context, id string) (CustomClaims, int64, error) {
	const query = `SELECT custom_claims, claims_version FROM users WHERE id = $1 AND ` + liveUser

	var (
		claims  CustomClaims
		version int64
	)
	err := r.db.QueryRowxContext(ctx, query, id).Scan(&claims, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("get claims: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("get claims: %w", err)
	}
	return claims, version, nil
}

func (r *repository) SetClaims(
	ctx context.Context,
	id string,
	claims CustomClaims,
	expectedVersion int64,
) error {
	const query = `
		UPDATE users
		SET custom_claims = $2, claims_version = claims_version + 1, updated_at = NOW()
		WHERE id = $1 AND claims_version = $3 AND ` + liveUser

	result, err := r.db.ExecContext(ctx, query, id, claims, expectedVersion)
	if err != nil {
		return fmt.Errorf("set claims: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set claims: %w", err)
	}
	if n > 0 {
		return nil
	}

	// distinguish a missing user from a stale version
	if _, _, err := r.GetClaims(ctx, id); err != nil {
		return fmt.Errorf("set claims: %w", err)
	}
	return fmt.Errorf("set claims: version %d is stale: %w", expectedVersion, core.ErrConflict)
}

// where accumulates positional predicates for the admin listing.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(w.args))))
}

func (w *where) String() string {
	return strings.Join(w.clauses, " AND ")
}

func filterClauses(f ListFilter) *where {
	w := &where{clauses: []string{liveUser}}
	if f.Search != "" {
		w.add(`(email ILIKE ? OR name ILIKE ?)`, "%"+likeEscaper.Replace(f.Search)+"%")
	}
	if f.Admin != nil {
		w.add(`COALESCE((custom_claims->>'admin')::boolean, false) = ?`, *f.Admin)
	}
	if f.Premium != nil {
		w.add(`COALESCE((custom_claims->>'premium')::boolean, false) = ?`, *f.Premium)
	}
	return w
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *repository) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	filter = filter.normalized()
	w := filterClauses(filter)

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users WHERE `+w.String(), w.args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	n := len(w.args)
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		userColumns, w, n+1, n+2)
	args := append(w.args, filter.PageSize, filter.offset())

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}
