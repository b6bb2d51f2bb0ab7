// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

package access

import (
	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Operation names used by the character service. Segments are separated by ':'.
const (
	OpCharacterRead          = "character:read"
	OpCharacterInfoUpdate    = "character:info:update"
	OpCharacterBaseUpdate    = "character:points:base:update"
	OpCharacterCurrentAdjust = "character:points:current:adjust"
	OpCharacterModSave       = "character:mod:save"
)

// OperationRule binds a glob pattern over operation names to a rule kind.
type OperationRule struct {
	Pattern string
	Kind    Kind
}

// DefaultOperationRules sends current point adjustments to the relaxed rule
// and everything else on a character to control access.
func DefaultOperationRules() []OperationRule {
	return []OperationRule{
		{Pattern: "character:points:current:*", Kind: KindPointAdjustment},
		{Pattern: "character:**", Kind: KindControl},
	}
}

type compiledRule struct {
	pattern string
	glob    glob.Glob
	policy  Policy
}

// OperationTable resolves an operation name to its Policy. Rules are tried in
// order and the first match wins; names that match nothing get ControlAccess.
//
// The table is immutable after construction.
type OperationTable struct {
	rules []compiledRule
}

// NewOperationTable compiles the default rules.
//
// Panics if the default rules fail to compile (programming error).
func NewOperationTable() *OperationTable {
	t, err := NewOperationTableWithRules(DefaultOperationRules())
	if err != nil {
		panic("invalid pattern in DefaultOperationRules: " + err.Error())
	}
	return t
}

// NewOperationTableWithRules compiles custom rules.
func NewOperationTableWithRules(rules []OperationRule) (*OperationTable, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		g, err := glob.Compile(r.Pattern, ':')
		if err != nil {
			return nil, oops.In("access").
				Code("INVALID_OPERATION_PATTERN").
				With("pattern", r.Pattern).
				Wrap(err)
		}
		p, err := PolicyFor(r.Kind)
		if err != nil {
			return nil, oops.In("access").With("pattern", r.Pattern).Wrap(err)
		}
		compiled = append(compiled, compiledRule{pattern: r.Pattern, glob: g, policy: p})
	}
	return &OperationTable{rules: compiled}, nil
}

// Policy returns the policy governing op.
func (t *OperationTable) Policy(op string) Policy {
	for _, r := range t.rules {
		if r.glob.Match(op) {
			return r.policy
		}
	}
	return ControlAccess{}
}

// PolicyFor returns the policy value for kind.
func PolicyFor(kind Kind) (Policy, error) {
	switch kind {
	case KindControl:
		return ControlAccess{}, nil
	case KindPointAdjustment:
		return PointAdjustmentAccess{}, nil
	default:
		return nil, oops.In("access").
			Code("UNKNOWN_POLICY_KIND").
			With("kind", int(kind)).
			Errorf("unknown policy kind %d", int(kind))
	}
}
