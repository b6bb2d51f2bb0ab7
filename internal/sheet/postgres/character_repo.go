// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/sheetvault/sheetvault/internal/access"
	"github.com/sheetvault/sheetvault/internal/sheet"
)

const characterColumns = `id, name, control_user_id, is_known, edit,
		base_hit, base_hero, base_magic, base_faith, base_protection, base_initiative,
		current_hit, current_hero, current_magic, current_faith, current_protection, current_initiative,
		created_at, updated_at`

// CharacterRepository implements sheet.CharacterRepository using PostgreSQL.
type CharacterRepository struct {
	pool poolIface
}

// NewCharacterRepository creates a new PostgreSQL character repository.
func NewCharacterRepository(pool poolIface) *CharacterRepository {
	return &CharacterRepository{pool: pool}
}

// Get retrieves a character and its modifiers by ID.
func (r *CharacterRepository) Get(ctx context.Context, id ulid.ULID) (*sheet.Character, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+characterColumns+` FROM characters WHERE id = $1`, id.String())
	char, err := scanCharacter(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("CHARACTER_NOT_FOUND").With("id", id.String()).Wrap(sheet.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("CHARACTER_GET_FAILED").With("id", id.String()).Wrap(err)
	}

	mods, err := r.listMods(ctx, id)
	if err != nil {
		return nil, err
	}
	char.Mods = mods
	return char, nil
}

func (r *CharacterRepository) listMods(ctx context.Context, characterID ulid.ULID) ([]sheet.Mod, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, value, reason FROM character_mods
		WHERE character_id = $1
		ORDER BY created_at, id
	`, characterID.String())
	if err != nil {
		return nil, oops.Code("CHARACTER_MODS_QUERY_FAILED").With("character_id", characterID.String()).Wrap(err)
	}
	defer rows.Close()

	var mods []sheet.Mod
	for rows.Next() {
		var (
			idStr string
			kind  string
			m     sheet.Mod
		)
		if err := rows.Scan(&idStr, &kind, &m.Value, &m.Reason); err != nil {
			return nil, oops.Code("CHARACTER_MODS_SCAN_FAILED").With("character_id", characterID.String()).Wrap(err)
		}
		if m.ID, err = parseULID(idStr, "mod_id"); err != nil {
			return nil, oops.Code("CHARACTER_MODS_SCAN_FAILED").Wrap(err)
		}
		m.Kind = sheet.PointKind(kind)
		mods = append(mods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("CHARACTER_MODS_QUERY_FAILED").With("character_id", characterID.String()).Wrap(err)
	}
	return mods, nil
}

// Create persists a new character.
// Callers must validate the character before calling this method.
func (r *CharacterRepository) Create(ctx context.Context, char *sheet.Character) error {
	b, c := char.Base, char.Current
	_, err := r.pool.Exec(ctx, `
		INSERT INTO characters (`+characterColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`, char.ID.String(), char.Name, ulidToStringPtr(char.ControlUserID), char.IsKnown, char.Edit,
		b.Hit, b.Hero, b.Magic, b.Faith, b.Protection, b.Initiative,
		c.Hit, c.Hero, c.Magic, c.Faith, c.Protection, c.Initiative,
		char.CreatedAt, char.UpdatedAt)
	if err != nil {
		return oops.Code("CHARACTER_CREATE_FAILED").With("id", char.ID.String()).Wrap(err)
	}
	return nil
}

// Update saves the mutable fields of a character. Control is never changed here.
// Callers must validate the character before calling this method.
func (r *CharacterRepository) Update(ctx context.Context, char *sheet.Character) error {
	b, c := char.Base, char.Current
	result, err := r.pool.Exec(ctx, `
		UPDATE characters SET
			name = $2, is_known = $3, edit = $4,
			base_hit = $5, base_hero = $6, base_magic = $7, base_faith = $8, base_protection = $9, base_initiative = $10,
			current_hit = $11, current_hero = $12, current_magic = $13, current_faith = $14, current_protection = $15, current_initiative = $16,
			updated_at = $17
		WHERE id = $1
	`, char.ID.String(), char.Name, char.IsKnown, char.Edit,
		b.Hit, b.Hero, b.Magic, b.Faith, b.Protection, b.Initiative,
		c.Hit, c.Hero, c.Magic, c.Faith, c.Protection, c.Initiative,
		char.UpdatedAt)
	if err != nil {
		return oops.Code("CHARACTER_UPDATE_FAILED").With("id", char.ID.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("CHARACTER_NOT_FOUND").With("id", char.ID.String()).Wrap(sheet.ErrNotFound)
	}
	return nil
}

// SaveMod appends a modifier and sets the character's updated_at to at in one transaction.
func (r *CharacterRepository) SaveMod(ctx context.Context, characterID ulid.ULID, mod sheet.Mod, at time.Time) (err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return oops.Code("CHARACTER_MOD_SAVE_FAILED").With("character_id", characterID.String()).Wrap(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx) //nolint:errcheck // original error takes precedence
		}
	}()

	result, err := tx.Exec(ctx, `UPDATE characters SET updated_at = $2 WHERE id = $1`,
		characterID.String(), at.UTC())
	if err != nil {
		return oops.Code("CHARACTER_MOD_SAVE_FAILED").With("character_id", characterID.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("CHARACTER_NOT_FOUND").With("character_id", characterID.String()).Wrap(sheet.ErrNotFound)
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO character_mods (id, character_id, kind, value, reason)
		VALUES ($1, $2, $3, $4, $5)
	`, mod.ID.String(), characterID.String(), string(mod.Kind), mod.Value, mod.Reason); err != nil {
		return oops.Code("CHARACTER_MOD_SAVE_FAILED").With("character_id", characterID.String()).Wrap(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return oops.Code("CHARACTER_MOD_SAVE_FAILED").With("character_id", characterID.String()).Wrap(err)
	}
	return nil
}

// FindOwnCharacters returns characters controlled by userID.
func (r *CharacterRepository) FindOwnCharacters(ctx context.Context, userID ulid.ULID) ([]*sheet.Character, error) {
	return r.list(ctx, "own", `control_user_id = $1`, userID.String())
}

// FindPrivateCharactersControlledByOthers returns characters that are not
// known and are controlled by someone other than userID.
func (r *CharacterRepository) FindPrivateCharactersControlledByOthers(ctx context.Context, userID ulid.ULID) ([]*sheet.Character, error) {
	return r.list(ctx, "private_of_others",
		`control_user_id IS NOT NULL AND control_user_id <> $1 AND NOT is_known`, userID.String())
}

// FindCharactersWithoutController returns every character userID does not
// control, ownerless ones included.
func (r *CharacterRepository) FindCharactersWithoutController(ctx context.Context, userID ulid.ULID) ([]*sheet.Character, error) {
	return r.list(ctx, "without_controller", `control_user_id IS DISTINCT FROM $1`, userID.String())
}

// FindKnownOwnerlessCharacters returns ownerless characters flagged as known.
func (r *CharacterRepository) FindKnownOwnerlessCharacters(ctx context.Context) ([]*sheet.Character, error) {
	return r.list(ctx, "known_ownerless", `control_user_id IS NULL AND is_known`)
}

func (r *CharacterRepository) list(ctx context.Context, query, where string, args ...any) ([]*sheet.Character, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+characterColumns+`
		FROM characters
		WHERE `+where+`
		ORDER BY name, id
	`, args...)
	if err != nil {
		return nil, oops.Code("CHARACTER_QUERY_FAILED").With("query", query).Wrap(err)
	}
	defer rows.Close()

	chars := make([]*sheet.Character, 0)
	for rows.Next() {
		char, err := scanCharacter(rows)
		if err != nil {
			return nil, oops.Code("CHARACTER_SCAN_FAILED").With("query", query).Wrap(err)
		}
		chars = append(chars, char)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("CHARACTER_QUERY_FAILED").With("query", query).Wrap(err)
	}
	return chars, nil
}

func scanCharacter(row rowScanner) (*sheet.Character, error) {
	var (
		idStr      string
		controlStr *string
		c          sheet.Character
	)
	if err := row.Scan(&idStr, &c.Name, &controlStr, &c.IsKnown, &c.Edit,
		&c.Base.Hit, &c.Base.Hero, &c.Base.Magic, &c.Base.Faith, &c.Base.Protection, &c.Base.Initiative,
		&c.Current.Hit, &c.Current.Hero, &c.Current.Magic, &c.Current.Faith, &c.Current.Protection, &c.Current.Initiative,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		//nolint:wrapcheck // callers attach codes and match pgx.ErrNoRows
		return nil, err
	}

	var err error
	if c.ID, err = parseULID(idStr, "id"); err != nil {
		return nil, err
	}
	if c.ControlUserID, err = parseOptionalULID(controlStr, "control_user_id"); err != nil {
		return nil, err
	}
	return &c, nil
}

// Compile-time interface checks.
var (
	_ sheet.CharacterRepository = (*CharacterRepository)(nil)
	_ access.CharacterSource    = (*CharacterRepository)(nil)
)
