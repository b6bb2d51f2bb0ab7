// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

package errutil

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
)

// AssertErrorCode asserts that err is an oops error whose code, as reported
// by Code, equals code. It returns whether the assertion held.
func AssertErrorCode(t testing.TB, err error, code string) bool {
	t.Helper()
	if err == nil {
		t.Errorf("expected error with code %s, got nil", code)
		return false
	}
	if _, ok := oops.AsOops(err); !ok {
		t.Errorf("expected oops error with code %s, got %T: %v", code, err, err)
		return false
	}
	return assert.Equal(t, code, Code(err), "code of %q", err.Error())
}

// AssertCodeIs asserts both the code and that err wraps target. Denials and
// lookup failures carry a code for logs and a sentinel for callers, and
// both must survive wrapping.
func AssertCodeIs(t testing.TB, err error, code string, target error) bool {
	t.Helper()
	if !AssertErrorCode(t, err, code) {
		return false
	}
	if !errors.Is(err, target) {
		t.Errorf("error %q with code %s does not wrap %q", err.Error(), code, target.Error())
		return false
	}
	return true
}

// AssertErrorContext asserts that the merged oops context of err maps key to want.
func AssertErrorContext(t testing.TB, err error, key string, want any) bool {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		t.Errorf("expected oops error with context %s, got %T: %v", key, err, err)
		return false
	}
	got, found := oopsErr.Context()[key]
	if !found {
		t.Errorf("context key %q missing from %v", key, oopsErr.Context())
		return false
	}
	return assert.Equal(t, want, got, "context key %q", key)
}
