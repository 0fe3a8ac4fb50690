package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Obyedullah7/Advanced-Backend/internal/user/entity"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("username or email already taken")
)

const uniqueViolation = "23505"

const userColumns = `id, username, email, full_name, avatar, cover_image, password_hash, refresh_token, created_at, updated_at`

// profileColumns never include password_hash or refresh_token.
const profileColumns = `id, username, email, full_name, avatar, cover_image, created_at, updated_at`

// UserRepo provides data access for the users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL UNIQUE,
  full_name TEXT NOT NULL,
  avatar TEXT NOT NULL,
  cover_image TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL,
  refresh_token TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_full_name ON users(full_name);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new user row. u.ID must be set by the caller; timestamps
// are filled from the database.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	const q = `INSERT INTO users (id, username, email, full_name, avatar, cover_image, password_hash)
		  VALUES (:id, :username, :email, :full_name, :avatar, :cover_image, :password_hash)
		  RETURNING created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, q, u)
	if err != nil {
		return mapWriteErr("create user", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return mapWriteErr("create user", err)
		}
		return errors.New("create user: no row returned")
	}
	return rows.Scan(&u.CreatedAt, &u.UpdatedAt)
}

// GetByID fetches a full user row, including secrets.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var u entity.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id=$1`, id); err != nil {
		return nil, mapReadErr("get user", err)
	}
	return &u, nil
}

// GetProfileByID fetches the public projection of a user.
func (r *UserRepo) GetProfileByID(ctx context.Context, id string) (*entity.Profile, error) {
	var p entity.Profile
	if err := r.db.GetContext(ctx, &p, `SELECT `+profileColumns+` FROM users WHERE id=$1`, id); err != nil {
		return nil, mapReadErr("get profile", err)
	}
	return &p, nil
}

// FindByUsernameOrEmail returns the first user whose username or email
// matches. Empty arguments are ignored.
func (r *UserRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users
		WHERE ($1 <> '' AND username=$1) OR ($2 <> '' AND email=$2)
		LIMIT 1`
	var u entity.User
	if err := r.db.GetContext(ctx, &u, q, username, email); err != nil {
		return nil, mapReadErr("find user", err)
	}
	return &u, nil
}

// SetRefreshToken overwrites only the stored refresh credential.
func (r *UserRepo) SetRefreshToken(ctx context.Context, id, token string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET refresh_token=$2, updated_at=NOW() WHERE id=$1`, id, token)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	return requireRow(res, "set refresh token")
}

// SwapRefreshToken replaces the stored refresh credential only if it still
// equals old. It reports whether the swap happened.
func (r *UserRepo) SwapRefreshToken(ctx context.Context, id, old, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token=$3, updated_at=NOW() WHERE id=$1 AND refresh_token=$2`, id, old, token)
	if err != nil {
		return false, fmt.Errorf("swap refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("swap refresh token: %w", err)
	}
	return n == 1, nil
}

// ClearRefreshToken removes the stored refresh credential. Clearing an
// already empty credential is not an error.
func (r *UserRepo) ClearRefreshToken(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET refresh_token=NULL, updated_at=NOW() WHERE id=$1`, id); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// UpdatePassword stores a new password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireRow(res, "update password")
}

// UpdateAccountDetails sets full name and email and returns the new profile.
func (r *UserRepo) UpdateAccountDetails(ctx context.Context, id, fullName, email string) (*entity.Profile, error) {
	const q = `UPDATE users SET full_name=$2, email=$3, updated_at=NOW() WHERE id=$1 RETURNING ` + profileColumns
	var p entity.Profile
	if err := r.db.GetContext(ctx, &p, q, id, fullName, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, mapWriteErr("update account", err)
	}
	return &p, nil
}

func (r *UserRepo) UpdateAvatar(ctx context.Context, id, url string) (*entity.Profile, error) {
	return r.updateImage(ctx, `UPDATE users SET avatar=$2, updated_at=NOW() WHERE id=$1 RETURNING `+profileColumns, id, url)
}

func (r *UserRepo) UpdateCoverImage(ctx context.Context, id, url string) (*entity.Profile, error) {
	return r.updateImage(ctx, `UPDATE users SET cover_image=$2, updated_at=NOW() WHERE id=$1 RETURNING `+profileColumns, id, url)
}

func (r *UserRepo) updateImage(ctx context.Context, q, id, url string) (*entity.Profile, error) {
	var p entity.Profile
	if err := r.db.GetContext(ctx, &p, q, id, url); err != nil {
		return nil, mapReadErr("update image", err)
	}
	return &p, nil
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func mapReadErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func mapWriteErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return fmt.Errorf("%s: %w", op, err)
}
