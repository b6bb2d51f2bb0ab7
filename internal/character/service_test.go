// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

package character_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sheetvault/sheetvault/internal/access"
	"github.com/sheetvault/sheetvault/internal/access/accesstest"
	"github.com/sheetvault/sheetvault/internal/character"
	"github.com/sheetvault/sheetvault/internal/sheet"
	"github.com/sheetvault/sheetvault/internal/sheet/sheettest"
	"github.com/sheetvault/sheetvault/pkg/errutil"
)

type decision struct {
	kind    access.Kind
	allowed bool
}

type fakeRecorder struct {
	mu        sync.Mutex
	decisions []decision
	visible   map[sheet.Role]int
}

func (r *fakeRecorder) RecordDecision(kind access.Kind, allowed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, decision{kind, allowed})
}

func (r *fakeRecorder) RecordVisible(role sheet.Role, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.visible == nil {
		r.visible = make(map[sheet.Role]int)
	}
	r.visible[role] = count
}

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newService(repo *sheettest.MockCharacterRepository, rec *fakeRecorder) *character.Service {
	cfg := character.ServiceConfig{
		Characters: repo,
		Now:        func() time.Time { return fixedNow },
	}
	if rec != nil {
		cfg.Recorder = rec
	}
	return character.NewService(cfg)
}

// sheetOf returns a fresh character with full pools owned by owner.
func sheetOf(owner *sheet.User, id ulid.ULID) *sheet.Character {
	c := accesstest.CharacterOf(owner, "Aria Vell", false)
	c.ID = id
	c.Base = sheet.PointSet{Hit: 10, Hero: 2, Magic: 6}
	c.Current = sheet.PointSet{Hit: 10, Hero: 2, Magic: 6}
	return c
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("player becomes controller and current starts at base", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		player := accesstest.NewPlayer("alice")
		base := sheet.PointSet{Hit: 12, Faith: 1}

		repo.On("Create", ctx, mock.MatchedBy(func(c *sheet.Character) bool {
			return c.IsControlledBy(player.ID) && c.Current == base && c.Edit
		})).Return(nil)

		char, err := newService(repo, nil).Create(ctx, player, character.NewCharacter{Name: "Aria Vell", Base: base})
		require.NoError(t, err)
		assert.False(t, char.ID.IsZero())
		assert.Equal(t, fixedNow, char.CreatedAt)
		repo.AssertExpectations(t)
	})

	t.Run("master creates ownerless character", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		gm := accesstest.NewMaster("morgana")
		repo.On("Create", ctx, mock.AnythingOfType("*sheet.Character")).Return(nil)

		char, err := newService(repo, nil).Create(ctx, gm, character.NewCharacter{Name: "Old Hermit", Ownerless: true, IsKnown: true})
		require.NoError(t, err)
		assert.True(t, char.IsOwnerless())
		assert.True(t, char.IsKnown)
	})

	t.Run("player cannot create ownerless character", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		player := accesstest.NewPlayer("alice")

		_, err := newService(repo, nil).Create(ctx, player, character.NewCharacter{Name: "Old Hermit", Ownerless: true})
		require.Error(t, err)
		errutil.AssertCodeIs(t, err, "ACCESS_DENIED", access.ErrAccessDenied)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("invalid name is rejected before storage", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}

		_, err := newService(repo, nil).Create(ctx, accesstest.NewPlayer("alice"), character.NewCharacter{Name: "x"})
		var verr *sheet.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "name", verr.Field)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("nil user", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		_, err := newService(repo, nil).Create(ctx, nil, character.NewCharacter{Name: "Aria Vell"})
		errutil.AssertErrorCode(t, err, "CHARACTER_NO_USER")
	})
}

func TestService_Home(t *testing.T) {
	ctx := context.Background()
	player := accesstest.NewPlayer("alice")
	gm := accesstest.NewMaster("morgana")
	mine := accesstest.CharacterOf(player, "Mine", true)
	npc := accesstest.CharacterOf(nil, "Npc", true)
	hidden := accesstest.CharacterOf(accesstest.NewPlayer("bob"), "Hidden", false)

	t.Run("player listing", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		rec := &fakeRecorder{}
		repo.On("FindOwnCharacters", ctx, player.ID).Return([]*sheet.Character{mine}, nil)
		repo.On("FindPrivateCharactersControlledByOthers", ctx, player.ID).Return([]*sheet.Character{hidden}, nil)
		repo.On("FindKnownOwnerlessCharacters", ctx).Return([]*sheet.Character{npc}, nil)

		got, err := newService(repo, rec).Home(ctx, player)
		require.NoError(t, err)
		assert.Equal(t, []*sheet.Character{mine, hidden, npc}, got)
		assert.Equal(t, 3, rec.visible[sheet.RolePlayer])
		repo.AssertNotCalled(t, "FindCharactersWithoutController", mock.Anything, mock.Anything)
	})

	t.Run("master listing", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		rec := &fakeRecorder{}
		repo.On("FindPrivateCharactersControlledByOthers", ctx, gm.ID).Return([]*sheet.Character{hidden}, nil)
		repo.On("FindCharactersWithoutController", ctx, gm.ID).Return([]*sheet.Character{hidden, npc}, nil)

		got, err := newService(repo, rec).Home(ctx, gm)
		require.NoError(t, err)
		assert.Equal(t, []*sheet.Character{hidden, hidden, npc}, got)
		assert.Equal(t, 3, rec.visible[sheet.RoleMaster])
		repo.AssertNotCalled(t, "FindOwnCharacters", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "FindKnownOwnerlessCharacters", mock.Anything)
	})

	t.Run("source failure", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		repo.On("FindOwnCharacters", ctx, player.ID).Return(nil, errors.New("db down"))

		_, err := newService(repo, nil).Home(ctx, player)
		errutil.AssertErrorCode(t, err, "VISIBILITY_SOURCE_FAILED")
	})
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	owner := accesstest.NewPlayer("alice")
	id := ulid.Make()

	t.Run("controller reads", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		rec := &fakeRecorder{}
		repo.On("Get", ctx, id).Return(sheetOf(owner, id), nil)

		got, err := newService(repo, rec).Get(ctx, owner, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, []decision{{access.KindControl, true}}, rec.decisions)
	})

	t.Run("master is denied on a character it does not control", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		rec := &fakeRecorder{}
		repo.On("Get", ctx, id).Return(sheetOf(owner, id), nil)

		_, err := newService(repo, rec).Get(ctx, accesstest.NewMaster("morgana"), id)
		assert.ErrorIs(t, err, access.ErrAccessDenied)
		assert.Equal(t, []decision{{access.KindControl, false}}, rec.decisions)
	})

	t.Run("missing character", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		repo.On("Get", ctx, id).Return(nil, sheet.ErrNotFound)

		_, err := newService(repo, nil).Get(ctx, owner, id)
		assert.ErrorIs(t, err, sheet.ErrNotFound)
	})
}

func TestService_UpdateInfo(t *testing.T) {
	ctx := context.Background()
	owner := accesstest.NewPlayer("alice")
	id := ulid.Make()
	name := "Aria Stormborn"
	known := true

	t.Run("controller renames", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		repo.On("Get", ctx, id).Return(sheetOf(owner, id), nil)
		repo.On("Update", ctx, mock.MatchedBy(func(c *sheet.Character) bool {
			return c.Name == name && c.IsKnown && c.UpdatedAt.Equal(fixedNow)
		})).Return(nil)

		got, err := newService(repo, nil).UpdateInfo(ctx, owner, id, character.InfoUpdate{Name: &name, IsKnown: &known})
		require.NoError(t, err)
		assert.Equal(t, name, got.Name)
		repo.AssertExpectations(t)
	})

	t.Run("ownerless character denies a master", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		repo.On("Get", ctx, id).Return(sheetOf(nil, id), nil)

		_, err := newService(repo, nil).UpdateInfo(ctx, accesstest.NewMaster("morgana"), id, character.InfoUpdate{Name: &name})
		assert.ErrorIs(t, err, access.ErrAccessDenied)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestService_UpdateBasePoints(t *testing.T) {
	ctx := context.Background()
	owner := accesstest.NewPlayer("alice")
	id := ulid.Make()

	t.Run("current is clamped to new base", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		repo.On("Get", ctx, id).Return(sheetOf(owner, id), nil)
		repo.On("Update", ctx, mock.Anything).Return(nil)

		got, err := newService(repo, nil).UpdateBasePoints(ctx, owner, id, sheet.PointSet{Hit: 4, Hero: 5, Magic: 6})
		require.NoError(t, err)
		assert.Equal(t, sheet.PointSet{Hit: 4, Hero: 2, Magic: 6}, got.Current)
	})

	t.Run("negative base rejected before load", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}

		_, err := newService(repo, nil).UpdateBasePoints(ctx, owner, id, sheet.PointSet{Hit: -1})
		require.Error(t, err)
		repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("non-controller denied", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		repo.On("Get", ctx, id).Return(sheetOf(owner, id), nil)

		_, err := newService(repo, nil).UpdateBasePoints(ctx, accesstest.NewPlayer("bob"), id, sheet.PointSet{Hit: 1})
		errutil.AssertErrorCode(t, err, "ACCESS_DENIED")
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestService_AdjustCurrentPoints(t *testing.T) {
	ctx := context.Background()
	owner := accesstest.NewPlayer("alice")
	id := ulid.Make()

	tests := []struct {
		name  string
		actor *sheet.User
		kind  sheet.PointKind
		delta int
		want  int
	}{
		{"controller spends", owner, sheet.PointHit, -3, 7},
		{"master heals someone else's character", accesstest.NewMaster("morgana"), sheet.PointHit, -4, 6},
		{"clamped at zero", owner, sheet.PointMagic, -20, 0},
		{"clamped at base", owner, sheet.PointHero, 5, 2},
		{"kind is case insensitive", owner, sheet.PointKind("HIT"), -1, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &sheettest.MockCharacterRepository{}
			rec := &fakeRecorder{}
			repo.On("Get", ctx, id).Return(sheetOf(owner, id), nil)
			repo.On("Update", ctx, mock.Anything).Return(nil)

			got, err := newService(repo, rec).AdjustCurrentPoints(ctx, tt.actor, id, tt.kind, tt.delta)
			require.NoError(t, err)
			kind, _ := sheet.ParsePointKind(string(tt.kind))
			assert.Equal(t, tt.want, got.Current.Get(kind))
			assert.Equal(t, []decision{{access.KindPointAdjustment, true}}, rec.decisions)
		})
	}

	t.Run("other player is unauthorized", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		repo.On("Get", ctx, id).Return(sheetOf(owner, id), nil)

		_, err := newService(repo, nil).AdjustCurrentPoints(ctx, accesstest.NewPlayer("bob"), id, sheet.PointHit, -1)
		require.Error(t, err)
		assert.ErrorIs(t, err, access.ErrUnauthorizedAction)
		assert.Equal(t, access.UnauthorizedActionMessage, access.Message(err))
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("ownerless character allows a master", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		repo.On("Get", ctx, id).Return(sheetOf(nil, id), nil)
		repo.On("Update", ctx, mock.Anything).Return(nil)

		got, err := newService(repo, nil).AdjustCurrentPoints(ctx, accesstest.NewMaster("morgana"), id, sheet.PointHit, -2)
		require.NoError(t, err)
		assert.Equal(t, 8, got.Current.Hit)
	})

	t.Run("unknown kind", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		_, err := newService(repo, nil).AdjustCurrentPoints(ctx, owner, id, sheet.PointKind("mana"), 1)
		var verr *sheet.ValidationError
		require.ErrorAs(t, err, &verr)
		repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}

func TestService_SaveMod(t *testing.T) {
	ctx := context.Background()
	owner := accesstest.NewPlayer("alice")
	id := ulid.Make()
	mod := sheet.Mod{Kind: sheet.PointHit, Value: -4, Reason: "wound"}

	t.Run("validates twice and recomputes", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		rec := &fakeRecorder{}
		repo.On("Get", ctx, id).Return(sheetOf(owner, id), nil).Once()
		repo.On("SaveMod", ctx, id, mock.MatchedBy(func(m sheet.Mod) bool {
			return !m.ID.IsZero() && m.Value == -4
		}), fixedNow).Return(nil).Once()
		reloaded := sheetOf(owner, id)
		reloaded.Mods = []sheet.Mod{{ID: ulid.Make(), Kind: sheet.PointHit, Value: -4}}
		repo.On("Get", ctx, id).Return(reloaded, nil).Once()
		repo.On("Update", ctx, mock.Anything).Return(nil).Once()

		got, err := newService(repo, rec).SaveMod(ctx, owner, id, mod)
		require.NoError(t, err)
		assert.Equal(t, 6, got.Current.Hit)
		assert.Equal(t, []decision{{access.KindControl, true}, {access.KindControl, true}}, rec.decisions)
		repo.AssertExpectations(t)
	})

	t.Run("denied before the mod is stored", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		repo.On("Get", ctx, id).Return(sheetOf(owner, id), nil)

		_, err := newService(repo, nil).SaveMod(ctx, accesstest.NewMaster("morgana"), id, mod)
		assert.ErrorIs(t, err, access.ErrAccessDenied)
		repo.AssertNotCalled(t, "SaveMod", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("second check denies after the mod is stored", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		repo.On("Get", ctx, id).Return(sheetOf(owner, id), nil).Once()
		repo.On("SaveMod", ctx, id, mock.Anything, fixedNow).Return(nil).Once()
		repo.On("Get", ctx, id).Return(sheetOf(accesstest.NewPlayer("bob"), id), nil).Once()

		_, err := newService(repo, nil).SaveMod(ctx, owner, id, mod)
		errutil.AssertCodeIs(t, err, "ACCESS_DENIED", access.ErrAccessDenied)
		repo.AssertExpectations(t)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("upper-case kind is stored normalized", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		repo.On("Get", ctx, id).Return(sheetOf(owner, id), nil).Once()
		repo.On("SaveMod", ctx, id, mock.MatchedBy(func(m sheet.Mod) bool {
			return m.Kind == sheet.PointHit && m.Value == -4
		}), fixedNow).Return(nil).Once()
		reloaded := sheetOf(owner, id)
		reloaded.Mods = []sheet.Mod{{ID: ulid.Make(), Kind: sheet.PointHit, Value: -4}}
		repo.On("Get", ctx, id).Return(reloaded, nil).Once()
		repo.On("Update", ctx, mock.Anything).Return(nil).Once()

		got, err := newService(repo, nil).SaveMod(ctx, owner, id, sheet.Mod{Kind: "HIT", Value: -4})
		require.NoError(t, err)
		assert.Equal(t, 6, got.EffectiveBase().Hit)
		assert.Equal(t, 6, got.Current.Hit)
		repo.AssertExpectations(t)
	})

	t.Run("zero value rejected", func(t *testing.T) {
		repo := &sheettest.MockCharacterRepository{}
		_, err := newService(repo, nil).SaveMod(ctx, owner, id, sheet.Mod{Kind: sheet.PointHit})
		require.Error(t, err)
		repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}

func TestService_ConcurrentAdjustments(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	owner := accesstest.NewPlayer("alice")
	stranger := accesstest.NewPlayer("bob")
	id := ulid.Make()

	repo := &sheettest.MockCharacterRepository{}
	repo.On("Get", ctx, id).Return(func(context.Context, ulid.ULID) *sheet.Character {
		return sheetOf(owner, id)
	}, nil)
	repo.On("Update", ctx, mock.Anything).Return(nil)
	rec := &fakeRecorder{}
	svc := newService(repo, rec)

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.AdjustCurrentPoints(ctx, owner, id, sheet.PointHit, -1)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := svc.AdjustCurrentPoints(ctx, stranger, id, sheet.PointHit, -1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var allowed, denied int
	for err := range errs {
		if err == nil {
			allowed++
			continue
		}
		require.ErrorIs(t, err, access.ErrUnauthorizedAction)
		denied++
	}
	assert.Equal(t, 50, allowed)
	assert.Equal(t, 50, denied)
	assert.Len(t, rec.decisions, 100)
}
