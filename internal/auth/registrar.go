// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/sheetvault/sheetvault/internal/sheet"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 8

// RegisterRequest carries the fields of a new account.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	IsMaster bool
}

// Registrar creates users and resolves them by email.
type Registrar struct {
	users  sheet.UserRepository
	hasher PasswordHasher
	now    func() time.Time
}

// NewRegistrar creates a Registrar. A nil hasher selects argon2id defaults.
func NewRegistrar(users sheet.UserRepository, hasher PasswordHasher) (*Registrar, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("user repository is required")
	}
	if hasher == nil {
		hasher = NewArgon2idHasher()
	}
	return &Registrar{users: users, hasher: hasher, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Register validates the request, rejects taken emails and stores the user
// with a hashed password.
func (r *Registrar) Register(ctx context.Context, req RegisterRequest) (*sheet.User, error) {
	user := &sheet.User{
		ID:        ulid.Make(),
		Name:      req.Name,
		Email:     sheet.NormalizeEmail(req.Email),
		IsMaster:  req.IsMaster,
		CreatedAt: r.now(),
	}
	if err := user.Validate(); err != nil {
		return nil, oops.Code("USER_INVALID").With("field", fieldOf(err)).Wrap(err)
	}
	if len(req.Password) < MinPasswordLength {
		return nil, oops.Code("USER_INVALID").With("field", "password").
			Errorf("password must be at least %d characters", MinPasswordLength)
	}

	exists, err := r.users.ExistsByEmail(ctx, user.Email)
	if err != nil {
		return nil, oops.Code("USER_REGISTER_FAILED").With("email", user.Email).Wrap(err)
	}
	if exists {
		return nil, oops.Code("USER_EXISTS").With("email", user.Email).Wrap(sheet.ErrDuplicate)
	}

	hash, err := r.hasher.Hash(req.Password)
	if err != nil {
		return nil, oops.Code("USER_REGISTER_FAILED").With("email", user.Email).Wrap(err)
	}
	user.PasswordHash = hash

	// The repository maps a racing unique violation to USER_EXISTS.
	if err := r.users.Create(ctx, user); err != nil {
		return nil, oops.Wrapf(err, "register user %s", user.Email)
	}

	slog.InfoContext(ctx, "user registered",
		"user_id", user.ID.String(),
		"role", string(user.Role()))
	return user, nil
}

// Lookup resolves the acting user by email.
func (r *Registrar) Lookup(ctx context.Context, email string) (*sheet.User, error) {
	user, err := r.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, oops.Wrapf(err, "lookup user %s", sheet.NormalizeEmail(email))
	}
	return user, nil
}

func fieldOf(err error) string {
	var verr *sheet.ValidationError
	if errors.As(err, &verr) {
		return verr.Field
	}
	return ""
}
