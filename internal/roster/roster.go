// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

// Package roster loads YAML seed files of users and characters.
package roster

import (
	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/sheetvault/sheetvault/internal/sheet"
)

// SupportedFormats is the semver constraint a roster's format must satisfy.
const SupportedFormats = "^1"

// Roster is a parsed seed file.
type Roster struct {
	Format     string           `yaml:"format" json:"format" jsonschema:"description=Roster format version,minLength=1"`
	Users      []UserEntry      `yaml:"users,omitempty" json:"users,omitempty"`
	Characters []CharacterEntry `yaml:"characters,omitempty" json:"characters,omitempty"`
}

// UserEntry registers one account.
type UserEntry struct {
	Name     string `yaml:"name" json:"name" jsonschema:"minLength=1"`
	Email    string `yaml:"email" json:"email" jsonschema:"minLength=3"`
	Password string `yaml:"password" json:"password" jsonschema:"minLength=8"`
	Master   bool   `yaml:"master,omitempty" json:"master,omitempty"`
}

// CharacterEntry creates one character. An empty Controller makes the
// character ownerless.
type CharacterEntry struct {
	Name       string         `yaml:"name" json:"name" jsonschema:"minLength=2,maxLength=64"`
	Controller string         `yaml:"controller,omitempty" json:"controller,omitempty" jsonschema:"description=Email of the controlling user"`
	Known      bool           `yaml:"known,omitempty" json:"known,omitempty"`
	Points     sheet.PointSet `yaml:"points,omitempty" json:"points,omitempty"`
}

var formatConstraint = mustConstraint(SupportedFormats)

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes and validates a roster. Validation runs in three stages:
// the JSON Schema, the format version, then cross-entry rules.
func Parse(data []byte) (*Roster, error) {
	if len(data) == 0 {
		return nil, oops.Code("ROSTER_INVALID").Errorf("roster is empty")
	}
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, oops.Code("ROSTER_INVALID").Wrapf(err, "invalid YAML")
	}
	if err := checkFormat(r.Format); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func checkFormat(format string) error {
	v, err := semver.NewVersion(format)
	if err != nil {
		return oops.Code("ROSTER_FORMAT_UNSUPPORTED").With("format", format).Wrapf(err, "unparseable format version")
	}
	if !formatConstraint.Check(v) {
		return oops.Code("ROSTER_FORMAT_UNSUPPORTED").
			With("format", format).
			With("supported", SupportedFormats).
			Errorf("roster format %s is not supported", format)
	}
	return nil
}

// Validate checks rules a schema cannot express: unique emails, valid
// names, and a master to own ownerless characters.
func (r *Roster) Validate() error {
	seen := make(map[string]bool, len(r.Users))
	for i, u := range r.Users {
		if err := sheet.ValidateUserName(u.Name); err != nil {
			return entryError("users", i, err)
		}
		if err := sheet.ValidateEmail(u.Email); err != nil {
			return entryError("users", i, err)
		}
		email := sheet.NormalizeEmail(u.Email)
		if seen[email] {
			return oops.Code("ROSTER_INVALID").With("entry", "users").With("index", i).
				Errorf("duplicate email %s", email)
		}
		seen[email] = true
	}

	for i, c := range r.Characters {
		if err := sheet.ValidateCharacterName(c.Name); err != nil {
			return entryError("characters", i, err)
		}
		if err := c.Points.Validate(); err != nil {
			return entryError("characters", i, err)
		}
		if c.Controller == "" && r.FirstMaster() == nil {
			return oops.Code("ROSTER_INVALID").With("entry", "characters").With("index", i).
				Errorf("ownerless character %q needs a master in the roster", c.Name)
		}
	}
	return nil
}

// FirstMaster returns the first user entry flagged as master, or nil.
func (r *Roster) FirstMaster() *UserEntry {
	for i := range r.Users {
		if r.Users[i].Master {
			return &r.Users[i]
		}
	}
	return nil
}

func entryError(entry string, index int, err error) error {
	return oops.Code("ROSTER_INVALID").With("entry", entry).With("index", index).Wrap(err)
}
