// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

// Package accesstest provides test helpers for access control.
package accesstest

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/sheetvault/sheetvault/internal/access"
	"github.com/sheetvault/sheetvault/internal/sheet"
)

// MockCharacterSource is a testify mock of access.CharacterSource.
type MockCharacterSource struct {
	mock.Mock
}

// FindOwnCharacters implements access.CharacterSource.
func (m *MockCharacterSource) FindOwnCharacters(ctx context.Context, userID ulid.ULID) ([]*sheet.Character, error) {
	args := m.Called(ctx, userID)
	return characters(args, 0), args.Error(1)
}

// FindPrivateCharactersControlledByOthers implements access.CharacterSource.
func (m *MockCharacterSource) FindPrivateCharactersControlledByOthers(ctx context.Context, userID ulid.ULID) ([]*sheet.Character, error) {
	args := m.Called(ctx, userID)
	return characters(args, 0), args.Error(1)
}

// FindCharactersWithoutController implements access.CharacterSource.
func (m *MockCharacterSource) FindCharactersWithoutController(ctx context.Context, userID ulid.ULID) ([]*sheet.Character, error) {
	args := m.Called(ctx, userID)
	return characters(args, 0), args.Error(1)
}

// FindKnownOwnerlessCharacters implements access.CharacterSource.
func (m *MockCharacterSource) FindKnownOwnerlessCharacters(ctx context.Context) ([]*sheet.Character, error) {
	args := m.Called(ctx)
	return characters(args, 0), args.Error(1)
}

func characters(args mock.Arguments, i int) []*sheet.Character {
	if v := args.Get(i); v != nil {
		return v.([]*sheet.Character)
	}
	return nil
}

// StaticSource is a CharacterSource over an in-memory slice. It applies the
// same filters as the PostgreSQL repository.
type StaticSource struct {
	Characters []*sheet.Character
}

func (s *StaticSource) filter(keep func(*sheet.Character) bool) []*sheet.Character {
	var out []*sheet.Character
	for _, c := range s.Characters {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// FindOwnCharacters implements access.CharacterSource.
func (s *StaticSource) FindOwnCharacters(_ context.Context, userID ulid.ULID) ([]*sheet.Character, error) {
	return s.filter(func(c *sheet.Character) bool { return c.IsControlledBy(userID) }), nil
}

// FindPrivateCharactersControlledByOthers implements access.CharacterSource.
func (s *StaticSource) FindPrivateCharactersControlledByOthers(_ context.Context, userID ulid.ULID) ([]*sheet.Character, error) {
	return s.filter(func(c *sheet.Character) bool {
		return !c.IsOwnerless() && !c.IsControlledBy(userID) && !c.IsKnown
	}), nil
}

// FindCharactersWithoutController implements access.CharacterSource.
func (s *StaticSource) FindCharactersWithoutController(_ context.Context, userID ulid.ULID) ([]*sheet.Character, error) {
	return s.filter(func(c *sheet.Character) bool { return !c.IsControlledBy(userID) }), nil
}

// FindKnownOwnerlessCharacters implements access.CharacterSource.
func (s *StaticSource) FindKnownOwnerlessCharacters(_ context.Context) ([]*sheet.Character, error) {
	return s.filter(func(c *sheet.Character) bool { return c.IsOwnerless() && c.IsKnown }), nil
}

// NewPlayer returns a non-master user with a fresh ID.
func NewPlayer(name string) *sheet.User {
	return &sheet.User{ID: ulid.Make(), Name: name, Email: name + "@example.com"}
}

// NewMaster returns a master user with a fresh ID.
func NewMaster(name string) *sheet.User {
	u := NewPlayer(name)
	u.IsMaster = true
	return u
}

// CharacterOf returns a character controlled by owner. A nil owner yields an
// ownerless character.
func CharacterOf(owner *sheet.User, name string, known bool) *sheet.Character {
	c := &sheet.Character{ID: ulid.Make(), Name: name, IsKnown: known, Edit: true}
	if owner != nil {
		id := owner.ID
		c.ControlUserID = &id
	}
	return c
}

// Verify interfaces are satisfied.
var (
	_ access.CharacterSource = (*MockCharacterSource)(nil)
	_ access.CharacterSource = (*StaticSource)(nil)
)
