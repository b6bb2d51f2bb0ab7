// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

package access

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/sheetvault/sheetvault/internal/sheet"
)

// CharacterSource provides the listing queries the composer draws from.
// Each query returns characters in its own stable order.
type CharacterSource interface {
	FindOwnCharacters(ctx context.Context, userID ulid.ULID) ([]*sheet.Character, error)
	FindPrivateCharactersControlledByOthers(ctx context.Context, userID ulid.ULID) ([]*sheet.Character, error)
	FindCharactersWithoutController(ctx context.Context, userID ulid.ULID) ([]*sheet.Character, error)
	FindKnownOwnerlessCharacters(ctx context.Context) ([]*sheet.Character, error)
}

// Source names reported in errors.
const (
	SourceOwn               = "own"
	SourcePrivateOfOthers   = "private_controlled_by_others"
	SourceWithoutController = "without_controller"
	SourceKnownOwnerless    = "known_ownerless"
)

// VisibilityComposer builds a user's home listing.
//
// Masters see: private characters controlled by others, then characters
// without this master as controller.
// Players see: their own characters, private characters controlled by
// others, then known ownerless characters.
//
// Sources are concatenated in that order without deduplication. A character
// returned by two sources appears twice.
type VisibilityComposer struct {
	source CharacterSource
}

// NewVisibilityComposer creates a composer over source.
func NewVisibilityComposer(source CharacterSource) *VisibilityComposer {
	return &VisibilityComposer{source: source}
}

type sourceQuery struct {
	name  string
	fetch func(ctx context.Context) ([]*sheet.Character, error)
}

// ListVisibleCharacters returns the characters visible to user. The result
// is never nil. The first failing source aborts the listing.
func (v *VisibilityComposer) ListVisibleCharacters(ctx context.Context, user *sheet.User) ([]*sheet.Character, error) {
	if user == nil {
		return nil, oops.In("access").Code("VISIBILITY_NO_USER").Errorf("listing requires a user")
	}

	var queries []sourceQuery
	switch user.Role() {
	case sheet.RoleMaster:
		queries = v.masterQueries(user.ID)
	case sheet.RolePlayer:
		queries = v.playerQueries(user.ID)
	}

	result := make([]*sheet.Character, 0)
	for _, q := range queries {
		chars, err := q.fetch(ctx)
		if err != nil {
			return nil, oops.In("access").
				Code("VISIBILITY_SOURCE_FAILED").
				With("source", q.name).
				With("user_id", user.ID.String()).
				With("role", string(user.Role())).
				Wrap(err)
		}
		result = append(result, chars...)
	}
	return result, nil
}

func (v *VisibilityComposer) masterQueries(id ulid.ULID) []sourceQuery {
	return []sourceQuery{
		{SourcePrivateOfOthers, func(ctx context.Context) ([]*sheet.Character, error) {
			return v.source.FindPrivateCharactersControlledByOthers(ctx, id)
		}},
		{SourceWithoutController, func(ctx context.Context) ([]*sheet.Character, error) {
			return v.source.FindCharactersWithoutController(ctx, id)
		}},
	}
}

func (v *VisibilityComposer) playerQueries(id ulid.ULID) []sourceQuery {
	return []sourceQuery{
		{SourceOwn, func(ctx context.Context) ([]*sheet.Character, error) {
			return v.source.FindOwnCharacters(ctx, id)
		}},
		{SourcePrivateOfOthers, func(ctx context.Context) ([]*sheet.Character, error) {
			return v.source.FindPrivateCharactersControlledByOthers(ctx, id)
		}},
		{SourceKnownOwnerless, func(ctx context.Context) ([]*sheet.Character, error) {
			return v.source.FindKnownOwnerlessCharacters(ctx)
		}},
	}
}
