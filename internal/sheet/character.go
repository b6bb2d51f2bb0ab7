// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

package sheet

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Character is a character sheet.
type Character struct {
	ID            ulid.ULID
	Name          string
	ControlUserID *ulid.ULID // nil for ownerless characters
	IsKnown       bool
	Edit          bool
	Base          PointSet
	Current       PointSet
	Mods          []Mod // loaded by Get only; listings leave this empty
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsControlledBy reports whether userID is the controlling user.
func (c *Character) IsControlledBy(userID ulid.ULID) bool {
	return c.ControlUserID != nil && *c.ControlUserID == userID
}

// IsOwnerless reports whether no user controls the character.
func (c *Character) IsOwnerless() bool {
	return c.ControlUserID == nil
}

// EffectiveBase returns the base pools with every modifier applied.
// Pools never drop below zero.
func (c *Character) EffectiveBase() PointSet {
	eff := c.Base
	for _, m := range c.Mods {
		eff = eff.With(m.Kind, eff.Get(m.Kind)+m.Value)
	}
	for _, k := range PointKinds {
		if eff.Get(k) < 0 {
			eff = eff.With(k, 0)
		}
	}
	return eff
}

// Validate checks the character before it is persisted.
func (c *Character) Validate() error {
	if c.ID.IsZero() {
		return &ValidationError{Field: "id", Message: "cannot be zero"}
	}
	if c.ControlUserID != nil && c.ControlUserID.IsZero() {
		return &ValidationError{Field: "control_user_id", Message: "cannot be zero"}
	}
	if err := ValidateCharacterName(c.Name); err != nil {
		return err
	}
	if err := c.Base.Validate(); err != nil {
		return err
	}
	if err := c.Current.Validate(); err != nil {
		return err
	}
	eff := c.EffectiveBase()
	for _, k := range PointKinds {
		if c.Current.Get(k) > eff.Get(k) {
			return &ValidationError{Field: string(k), Message: "current exceeds base"}
		}
	}
	return nil
}
