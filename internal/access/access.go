// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

// Package access decides who may see and who may change a character sheet.
//
// Two authorization rules exist and they are deliberately separate types:
//   - ControlAccess: only the controlling user may act.
//   - PointAdjustmentAccess: the controlling user or any master may act.
//
// Every function here is a pure decision over already-loaded values. Nothing
// logs, records metrics or touches storage, so callers may invoke them
// concurrently and repeatedly with identical results.
package access

import (
	"errors"

	"github.com/samber/oops"

	"github.com/sheetvault/sheetvault/internal/sheet"
)

// UnauthorizedActionMessage is the user-facing text of a point adjustment denial.
const UnauthorizedActionMessage = "Action not performed, user without permission"

// Sentinel errors. Use errors.Is to classify a denial.
var (
	ErrAccessDenied       = errors.New("access denied")
	ErrUnauthorizedAction = errors.New(UnauthorizedActionMessage)
)

// Kind enumerates the authorization rules.
type Kind int

// Authorization rule kinds.
const (
	KindControl Kind = iota + 1
	KindPointAdjustment
)

func (k Kind) String() string {
	switch k {
	case KindControl:
		return "control"
	case KindPointAdjustment:
		return "point_adjustment"
	default:
		return "unknown"
	}
}

// Policy authorizes a user against a character.
// Authorize returns nil when the action may proceed.
type Policy interface {
	Kind() Kind
	Authorize(char *sheet.Character, user *sheet.User) error
}

// ControlAccess grants access only to the character's controlling user.
type ControlAccess struct{}

// Kind implements Policy.
func (ControlAccess) Kind() Kind { return KindControl }

// Authorize implements Policy.
func (ControlAccess) Authorize(char *sheet.Character, user *sheet.User) error {
	return ValidateControlAccess(char, user)
}

// PointAdjustmentAccess grants access to the controlling user or any master.
type PointAdjustmentAccess struct{}

// Kind implements Policy.
func (PointAdjustmentAccess) Kind() Kind { return KindPointAdjustment }

// Authorize implements Policy.
func (PointAdjustmentAccess) Authorize(char *sheet.Character, user *sheet.User) error {
	return AuthorizeCurrentPointAdjustment(char, user)
}

// ValidateControlAccess succeeds only when user controls char.
// Ownerless characters deny everyone, masters included.
func ValidateControlAccess(char *sheet.Character, user *sheet.User) error {
	if char != nil && user != nil && char.IsControlledBy(user.ID) {
		return nil
	}
	return oops.In("access").
		Code("ACCESS_DENIED").
		With("character_id", characterID(char)).
		With("user_id", userID(user)).
		Wrap(ErrAccessDenied)
}

// AuthorizeCurrentPointAdjustment succeeds when user controls char or is a
// master. It never consults ValidateControlAccess.
func AuthorizeCurrentPointAdjustment(char *sheet.Character, user *sheet.User) error {
	if user != nil && char != nil && (user.IsMaster || char.IsControlledBy(user.ID)) {
		return nil
	}
	return oops.In("access").
		Code("UNAUTHORIZED_ACTION").
		With("character_id", characterID(char)).
		With("user_id", userID(user)).
		Wrap(ErrUnauthorizedAction)
}

// Message returns the user-facing text for a denial produced by this package,
// or the error string for anything else.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorizedAction):
		return UnauthorizedActionMessage
	case errors.Is(err, ErrAccessDenied):
		return ErrAccessDenied.Error()
	default:
		return err.Error()
	}
}

func characterID(c *sheet.Character) string {
	if c == nil {
		return ""
	}
	return c.ID.String()
}

func userID(u *sheet.User) string {
	if u == nil {
		return ""
	}
	return u.ID.String()
}
