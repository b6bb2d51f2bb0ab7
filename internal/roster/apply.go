// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

package roster

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/sheetvault/sheetvault/internal/auth"
	"github.com/sheetvault/sheetvault/internal/character"
	"github.com/sheetvault/sheetvault/internal/sheet"
)

// Registrar registers and resolves users.
type Registrar interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*sheet.User, error)
	Lookup(ctx context.Context, email string) (*sheet.User, error)
}

// CharacterCreator creates characters on behalf of a user.
type CharacterCreator interface {
	Create(ctx context.Context, user *sheet.User, req character.NewCharacter) (*sheet.Character, error)
}

// Result counts what Apply did.
type Result struct {
	UsersCreated      int
	UsersSkipped      int
	CharactersCreated int
}

// Apply registers the roster's users, skipping emails that already exist,
// then creates its characters. Each character is created by its controller;
// ownerless ones are created by the first roster user whose stored account is
// a master, so a roster master flag on an existing player account is ignored.
// Characters are not deduplicated, so applying a roster twice creates them twice.
func Apply(ctx context.Context, r *Roster, users Registrar, chars CharacterCreator) (Result, error) {
	var res Result
	byEmail := make(map[string]*sheet.User, len(r.Users))

	for _, entry := range r.Users {
		email := sheet.NormalizeEmail(entry.Email)
		user, err := users.Register(ctx, auth.RegisterRequest{
			Name:     entry.Name,
			Email:    email,
			Password: entry.Password,
			IsMaster: entry.Master,
		})
		switch {
		case err == nil:
			res.UsersCreated++
		case errors.Is(err, sheet.ErrDuplicate):
			if user, err = users.Lookup(ctx, email); err != nil {
				return res, oops.Code("ROSTER_APPLY_FAILED").With("email", email).Wrap(err)
			}
			res.UsersSkipped++
			slog.InfoContext(ctx, "roster user already registered", "email", email)
		default:
			return res, oops.Code("ROSTER_APPLY_FAILED").With("email", email).Wrap(err)
		}
		byEmail[email] = user
	}

	master := firstResolvedMaster(r, byEmail)

	for i, entry := range r.Characters {
		actor, ownerless, err := resolveActor(ctx, entry, byEmail, master, users)
		if err != nil {
			return res, oops.Code("ROSTER_APPLY_FAILED").With("index", i).With("character", entry.Name).Wrap(err)
		}
		if _, err := chars.Create(ctx, actor, character.NewCharacter{
			Name:      entry.Name,
			IsKnown:   entry.Known,
			Ownerless: ownerless,
			Base:      entry.Points,
		}); err != nil {
			return res, oops.Code("ROSTER_APPLY_FAILED").With("index", i).With("character", entry.Name).Wrap(err)
		}
		res.CharactersCreated++
	}
	return res, nil
}

func firstResolvedMaster(r *Roster, byEmail map[string]*sheet.User) *sheet.User {
	for _, entry := range r.Users {
		if u := byEmail[sheet.NormalizeEmail(entry.Email)]; u != nil && u.IsMaster {
			return u
		}
	}
	return nil
}

func resolveActor(ctx context.Context, entry CharacterEntry, byEmail map[string]*sheet.User, master *sheet.User, users Registrar) (*sheet.User, bool, error) {
	if entry.Controller == "" {
		if master == nil {
			return nil, false, oops.Errorf("no master available for ownerless character")
		}
		return master, true, nil
	}
	email := sheet.NormalizeEmail(entry.Controller)
	if u, ok := byEmail[email]; ok {
		return u, false, nil
	}
	u, err := users.Lookup(ctx, email)
	if err != nil {
		return nil, false, err
	}
	byEmail[email] = u
	return u, false, nil
}
