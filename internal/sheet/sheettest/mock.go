// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

// Package sheettest provides testify mocks for the sheet repositories.
package sheettest

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/sheetvault/sheetvault/internal/sheet"
)

// MockCharacterRepository is a mock implementation of sheet.CharacterRepository.
type MockCharacterRepository struct {
	mock.Mock
}

// Get returns the configured character. A func(ctx, id) *sheet.Character
// return value is called per invocation so concurrent callers get copies.
func (m *MockCharacterRepository) Get(ctx context.Context, id ulid.ULID) (*sheet.Character, error) {
	args := m.Called(ctx, id)
	switch v := args.Get(0).(type) {
	case func(context.Context, ulid.ULID) *sheet.Character:
		return v(ctx, id), args.Error(1)
	case *sheet.Character:
		return v, args.Error(1)
	default:
		return nil, args.Error(1)
	}
}

func (m *MockCharacterRepository) Create(ctx context.Context, char *sheet.Character) error {
	return m.Called(ctx, char).Error(0)
}

func (m *MockCharacterRepository) Update(ctx context.Context, char *sheet.Character) error {
	return m.Called(ctx, char).Error(0)
}

func (m *MockCharacterRepository) SaveMod(ctx context.Context, characterID ulid.ULID, mod sheet.Mod, at time.Time) error {
	return m.Called(ctx, characterID, mod, at).Error(0)
}

func (m *MockCharacterRepository) FindOwnCharacters(ctx context.Context, userID ulid.ULID) ([]*sheet.Character, error) {
	args := m.Called(ctx, userID)
	return list(args), args.Error(1)
}

func (m *MockCharacterRepository) FindPrivateCharactersControlledByOthers(ctx context.Context, userID ulid.ULID) ([]*sheet.Character, error) {
	args := m.Called(ctx, userID)
	return list(args), args.Error(1)
}

func (m *MockCharacterRepository) FindCharactersWithoutController(ctx context.Context, userID ulid.ULID) ([]*sheet.Character, error) {
	args := m.Called(ctx, userID)
	return list(args), args.Error(1)
}

func (m *MockCharacterRepository) FindKnownOwnerlessCharacters(ctx context.Context) ([]*sheet.Character, error) {
	args := m.Called(ctx)
	return list(args), args.Error(1)
}

func list(args mock.Arguments) []*sheet.Character {
	if v := args.Get(0); v != nil {
		return v.([]*sheet.Character)
	}
	return nil
}

// MockUserRepository is a mock implementation of sheet.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *sheet.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Get(ctx context.Context, id ulid.ULID) (*sheet.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sheet.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*sheet.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sheet.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

var (
	_ sheet.CharacterRepository = (*MockCharacterRepository)(nil)
	_ sheet.UserRepository      = (*MockUserRepository)(nil)
)
