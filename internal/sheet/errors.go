// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

package sheet

import "errors"

// Sentinel errors wrapped by repositories and services.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)
