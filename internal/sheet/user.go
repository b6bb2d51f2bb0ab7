// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

// Package sheet holds the character-sheet domain model: users, characters and
// their point pools.
package sheet

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Role is the table role a user plays.
type Role string

// Roles derived from User.IsMaster.
const (
	RolePlayer Role = "player"
	RoleMaster Role = "master"
)

// User is a registered account. Users are immutable once registered.
type User struct {
	ID           ulid.ULID
	Name         string
	Email        string
	IsMaster     bool
	PasswordHash string
	CreatedAt    time.Time
}

// Role returns RoleMaster for game runners and RolePlayer otherwise.
func (u *User) Role() Role {
	if u.IsMaster {
		return RoleMaster
	}
	return RolePlayer
}

// Validate checks that the user has the fields required for registration.
func (u *User) Validate() error {
	if u.ID.IsZero() {
		return &ValidationError{Field: "id", Message: "cannot be zero"}
	}
	if err := ValidateUserName(u.Name); err != nil {
		return err
	}
	return ValidateEmail(u.Email)
}
