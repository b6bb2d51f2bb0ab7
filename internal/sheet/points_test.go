// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

package sheet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetvault/sheetvault/internal/sheet"
)

func TestParsePointKind(t *testing.T) {
	tests := []struct {
		in      string
		want    sheet.PointKind
		wantErr bool
	}{
		{in: "hit", want: sheet.PointHit},
		{in: " Magic ", want: sheet.PointMagic},
		{in: "INITIATIVE", want: sheet.PointInitiative},
		{in: "mana", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := sheet.ParsePointKind(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPointSet_GetWith(t *testing.T) {
	var p sheet.PointSet
	for i, k := range sheet.PointKinds {
		p = p.With(k, i+1)
	}
	for i, k := range sheet.PointKinds {
		assert.Equal(t, i+1, p.Get(k), "kind %s", k)
	}
	assert.Equal(t, 0, p.Get(sheet.PointKind("unknown")))
}

func TestPointSet_ClampTo(t *testing.T) {
	limit := sheet.PointSet{Hit: 10, Hero: 3}
	got := sheet.PointSet{Hit: 14, Hero: -2, Magic: 5}.ClampTo(limit)

	assert.Equal(t, 10, got.Hit)
	assert.Equal(t, 0, got.Hero)
	assert.Equal(t, 0, got.Magic)
}

func TestMod_Validate(t *testing.T) {
	t.Run("valid mod", func(t *testing.T) {
		require.NoError(t, sheet.Mod{Kind: sheet.PointFaith, Value: 2, Reason: "blessing"}.Validate())
	})

	t.Run("zero value fails", func(t *testing.T) {
		err := sheet.Mod{Kind: sheet.PointFaith}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "value")
	})

	t.Run("unknown kind fails", func(t *testing.T) {
		require.Error(t, sheet.Mod{Kind: "luck", Value: 1}.Validate())
	})

	t.Run("unnormalized kind fails", func(t *testing.T) {
		err := sheet.Mod{Kind: "HIT", Value: -4}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kind")
	})
}

func TestMod_Normalize(t *testing.T) {
	t.Run("upper-case kind feeds the effective base", func(t *testing.T) {
		mod, err := sheet.Mod{Kind: " HIT ", Value: -4}.Normalize()
		require.NoError(t, err)
		assert.Equal(t, sheet.PointHit, mod.Kind)
		require.NoError(t, mod.Validate())

		char := &sheet.Character{Base: sheet.PointSet{Hit: 10}, Mods: []sheet.Mod{mod}}
		assert.Equal(t, 6, char.EffectiveBase().Hit)
	})

	t.Run("unknown kind fails", func(t *testing.T) {
		_, err := sheet.Mod{Kind: "luck", Value: 1}.Normalize()
		require.Error(t, err)
	})
}
