// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

package sheet

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// CharacterRepository persists character sheets.
type CharacterRepository interface {
	// Get loads a character and its modifiers.
	// Returns ErrNotFound if the character does not exist.
	Get(ctx context.Context, id ulid.ULID) (*Character, error)

	// Create persists a new character.
	Create(ctx context.Context, char *Character) error

	// Update saves name, flags and both point sets.
	// Returns ErrNotFound if the character does not exist.
	Update(ctx context.Context, char *Character) error

	// SaveMod appends a modifier to a character, stamping it as updated at at.
	SaveMod(ctx context.Context, characterID ulid.ULID, mod Mod, at time.Time) error

	// Listing queries. Results are ordered by name, then ID.
	FindOwnCharacters(ctx context.Context, userID ulid.ULID) ([]*Character, error)
	FindPrivateCharactersControlledByOthers(ctx context.Context, userID ulid.ULID) ([]*Character, error)
	FindCharactersWithoutController(ctx context.Context, userID ulid.ULID) ([]*Character, error)
	FindKnownOwnerlessCharacters(ctx context.Context) ([]*Character, error)
}

// UserRepository persists registered users.
type UserRepository interface {
	// Create persists a new user. Returns ErrDuplicate if the email is taken.
	Create(ctx context.Context, user *User) error

	// Get returns ErrNotFound if the user does not exist.
	Get(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail looks a user up by normalized email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// ExistsByEmail reports whether the email is already registered.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
