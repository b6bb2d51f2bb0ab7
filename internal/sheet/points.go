// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

package sheet

import (
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

// PointKind names one of the resource pools on a sheet.
type PointKind string

// Point kinds tracked on every character.
const (
	PointHit        PointKind = "hit"
	PointHero       PointKind = "hero"
	PointMagic      PointKind = "magic"
	PointFaith      PointKind = "faith"
	PointProtection PointKind = "protection"
	PointInitiative PointKind = "initiative"
)

// PointKinds lists every kind in display order.
var PointKinds = []PointKind{
	PointHit, PointHero, PointMagic, PointFaith, PointProtection, PointInitiative,
}

// ParsePointKind resolves a user-supplied kind name.
func ParsePointKind(s string) (PointKind, error) {
	k := PointKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range PointKinds {
		if k == known {
			return k, nil
		}
	}
	return "", &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown point kind %q", s)}
}

// PointSet is one full set of resource values.
type PointSet struct {
	Hit        int `json:"hit,omitempty" yaml:"hit" jsonschema:"minimum=0"`
	Hero       int `json:"hero,omitempty" yaml:"hero" jsonschema:"minimum=0"`
	Magic      int `json:"magic,omitempty" yaml:"magic" jsonschema:"minimum=0"`
	Faith      int `json:"faith,omitempty" yaml:"faith" jsonschema:"minimum=0"`
	Protection int `json:"protection,omitempty" yaml:"protection" jsonschema:"minimum=0"`
	Initiative int `json:"initiative,omitempty" yaml:"initiative" jsonschema:"minimum=0"`
}

// Get returns the value for kind. Unknown kinds read as zero.
func (p PointSet) Get(kind PointKind) int {
	switch kind {
	case PointHit:
		return p.Hit
	case PointHero:
		return p.Hero
	case PointMagic:
		return p.Magic
	case PointFaith:
		return p.Faith
	case PointProtection:
		return p.Protection
	case PointInitiative:
		return p.Initiative
	default:
		return 0
	}
}

// With returns a copy of p with kind set to v.
func (p PointSet) With(kind PointKind, v int) PointSet {
	switch kind {
	case PointHit:
		p.Hit = v
	case PointHero:
		p.Hero = v
	case PointMagic:
		p.Magic = v
	case PointFaith:
		p.Faith = v
	case PointProtection:
		p.Protection = v
	case PointInitiative:
		p.Initiative = v
	}
	return p
}

// ClampTo returns p with every value limited to [0, limit].
func (p PointSet) ClampTo(limit PointSet) PointSet {
	out := p
	for _, k := range PointKinds {
		out = out.With(k, clamp(p.Get(k), 0, limit.Get(k)))
	}
	return out
}

// Validate rejects negative values.
func (p PointSet) Validate() error {
	for _, k := range PointKinds {
		if p.Get(k) < 0 {
			return &ValidationError{Field: string(k), Message: "cannot be negative"}
		}
	}
	return nil
}

// Mod is a persistent modifier to one base pool, e.g. a blessing that grants
// two extra faith points.
type Mod struct {
	ID     ulid.ULID
	Kind   PointKind
	Value  int
	Reason string
}

// Normalize returns m with its kind resolved through ParsePointKind.
func (m Mod) Normalize() (Mod, error) {
	kind, err := ParsePointKind(string(m.Kind))
	if err != nil {
		return m, err
	}
	m.Kind = kind
	return m, nil
}

// Validate checks that the modifier targets a known pool by its canonical
// name and is non-zero.
func (m Mod) Validate() error {
	kind, err := ParsePointKind(string(m.Kind))
	if err != nil {
		return err
	}
	if kind != m.Kind {
		return &ValidationError{Field: "kind", Message: fmt.Sprintf("point kind %q is not normalized", m.Kind)}
	}
	if m.Value == 0 {
		return &ValidationError{Field: "value", Message: "cannot be zero"}
	}
	if len(m.Reason) > MaxReasonLength {
		return &ValidationError{Field: "reason", Message: fmt.Sprintf("exceeds maximum length of %d", MaxReasonLength)}
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
