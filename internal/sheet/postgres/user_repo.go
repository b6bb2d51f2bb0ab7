// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/sheetvault/sheetvault/internal/sheet"
)

const userColumns = `id, name, email, is_master, password_hash, created_at`

// UserRepository implements sheet.UserRepository using PostgreSQL.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create persists a new user. A taken email yields sheet.ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *sheet.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID.String(), user.Name, sheet.NormalizeEmail(user.Email), user.IsMaster, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("USER_EXISTS").With("email", user.Email).Wrap(sheet.ErrDuplicate)
		}
		return oops.Code("USER_CREATE_FAILED").With("id", user.ID.String()).Wrap(err)
	}
	return nil
}

// Get retrieves a user by ID.
func (r *UserRepository) Get(ctx context.Context, id ulid.ULID) (*sheet.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(sheet.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").With("id", id.String()).Wrap(err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email. Matching ignores case.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*sheet.User, error) {
	normalized := sheet.NormalizeEmail(email)
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, normalized)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("email", normalized).Wrap(sheet.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").With("email", normalized).Wrap(err)
	}
	return user, nil
}

// ExistsByEmail reports whether email is registered.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`,
		sheet.NormalizeEmail(email)).Scan(&exists)
	if err != nil {
		return false, oops.Code("USER_QUERY_FAILED").With("email", email).Wrap(err)
	}
	return exists, nil
}

func scanUser(row rowScanner) (*sheet.User, error) {
	var (
		idStr string
		u     sheet.User
	)
	if err := row.Scan(&idStr, &u.Name, &u.Email, &u.IsMaster, &u.PasswordHash, &u.CreatedAt); err != nil {
		//nolint:wrapcheck // callers attach codes and match pgx.ErrNoRows
		return nil, err
	}
	id, err := parseULID(idStr, "id")
	if err != nil {
		return nil, err
	}
	u.ID = id
	return &u, nil
}

// Compile-time interface check.
var _ sheet.UserRepository = (*UserRepository)(nil)
