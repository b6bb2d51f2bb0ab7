// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

// Package character exposes authorized operations on character sheets.
package character

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sheetvault/sheetvault/internal/access"
	"github.com/sheetvault/sheetvault/internal/sheet"
)

var tracer = otel.Tracer("github.com/sheetvault/sheetvault/internal/character")

// Recorder receives access decisions and listing sizes.
type Recorder interface {
	RecordDecision(kind access.Kind, allowed bool)
	RecordVisible(role sheet.Role, count int)
}

type noopRecorder struct{}

func (noopRecorder) RecordDecision(access.Kind, bool) {}
func (noopRecorder) RecordVisible(sheet.Role, int)    {}

// ServiceConfig holds dependencies for Service.
type ServiceConfig struct {
	Characters sheet.CharacterRepository
	Visibility *access.VisibilityComposer // defaults to a composer over Characters
	Operations *access.OperationTable     // defaults to access.NewOperationTable()
	Recorder   Recorder                   // optional
	Now        func() time.Time           // optional
}

// Service applies access rules around the character repository.
// Every mutation loads the character, authorizes, then saves.
type Service struct {
	characters sheet.CharacterRepository
	visibility *access.VisibilityComposer
	operations *access.OperationTable
	recorder   Recorder
	now        func() time.Time
}

// NewService creates a new Service with the given configuration.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		characters: cfg.Characters,
		visibility: cfg.Visibility,
		operations: cfg.Operations,
		recorder:   cfg.Recorder,
		now:        cfg.Now,
	}
	if s.visibility == nil {
		s.visibility = access.NewVisibilityComposer(cfg.Characters)
	}
	if s.operations == nil {
		s.operations = access.NewOperationTable()
	}
	if s.recorder == nil {
		s.recorder = noopRecorder{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// NewCharacter describes a character to create.
type NewCharacter struct {
	Name      string
	IsKnown   bool
	Ownerless bool // masters only
	Base      sheet.PointSet
}

// InfoUpdate changes descriptive fields. Nil fields are left as they are.
type InfoUpdate struct {
	Name    *string
	IsKnown *bool
}

// Create stores a new character. The creating player becomes its
// controller. Masters may instead create an ownerless character.
func (s *Service) Create(ctx context.Context, user *sheet.User, req NewCharacter) (*sheet.Character, error) {
	ctx, span := s.start(ctx, "character.Create", user, ulid.ULID{})
	defer span.End()

	if user == nil {
		return nil, fail(span, oops.Code("CHARACTER_NO_USER").Errorf("creating a character requires a user"))
	}
	if req.Ownerless && !user.IsMaster {
		return nil, fail(span, oops.In("access").
			Code("ACCESS_DENIED").
			With("user_id", user.ID.String()).
			Wrapf(access.ErrAccessDenied, "only masters create ownerless characters"))
	}

	now := s.now()
	char := &sheet.Character{
		ID:        ulid.Make(),
		Name:      req.Name,
		IsKnown:   req.IsKnown,
		Edit:      true,
		Base:      req.Base,
		Current:   req.Base,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !req.Ownerless {
		id := user.ID
		char.ControlUserID = &id
	}
	if err := char.Validate(); err != nil {
		return nil, fail(span, err)
	}
	if err := s.characters.Create(ctx, char); err != nil {
		return nil, fail(span, oops.Wrapf(err, "create character %s", char.ID))
	}
	return char, nil
}

// Home lists the characters visible to user.
func (s *Service) Home(ctx context.Context, user *sheet.User) ([]*sheet.Character, error) {
	ctx, span := s.start(ctx, "character.Home", user, ulid.ULID{})
	defer span.End()

	chars, err := s.visibility.ListVisibleCharacters(ctx, user)
	if err != nil {
		return nil, fail(span, err)
	}
	s.recorder.RecordVisible(user.Role(), len(chars))
	span.SetAttributes(attribute.Int("characters.visible", len(chars)))
	return chars, nil
}

// Get returns a character to its controller.
func (s *Service) Get(ctx context.Context, user *sheet.User, id ulid.ULID) (*sheet.Character, error) {
	ctx, span := s.start(ctx, "character.Get", user, id)
	defer span.End()

	char, err := s.loadAuthorized(ctx, access.OpCharacterRead, user, id)
	if err != nil {
		return nil, fail(span, err)
	}
	return char, nil
}

// UpdateInfo renames a character or toggles whether it is known.
func (s *Service) UpdateInfo(ctx context.Context, user *sheet.User, id ulid.ULID, upd InfoUpdate) (*sheet.Character, error) {
	ctx, span := s.start(ctx, "character.UpdateInfo", user, id)
	defer span.End()

	char, err := s.loadAuthorized(ctx, access.OpCharacterInfoUpdate, user, id)
	if err != nil {
		return nil, fail(span, err)
	}
	if upd.Name != nil {
		char.Name = *upd.Name
	}
	if upd.IsKnown != nil {
		char.IsKnown = *upd.IsKnown
	}
	if err := s.save(ctx, char); err != nil {
		return nil, fail(span, err)
	}
	return char, nil
}

// UpdateBasePoints replaces the base pools. Current pools are clamped to
// the new effective base.
func (s *Service) UpdateBasePoints(ctx context.Context, user *sheet.User, id ulid.ULID, base sheet.PointSet) (*sheet.Character, error) {
	ctx, span := s.start(ctx, "character.UpdateBasePoints", user, id)
	defer span.End()

	if err := base.Validate(); err != nil {
		return nil, fail(span, err)
	}
	char, err := s.loadAuthorized(ctx, access.OpCharacterBaseUpdate, user, id)
	if err != nil {
		return nil, fail(span, err)
	}
	char.Base = base
	char.Current = char.Current.ClampTo(char.EffectiveBase())
	if err := s.save(ctx, char); err != nil {
		return nil, fail(span, err)
	}
	return char, nil
}

// AdjustCurrentPoints adds delta to one current pool. The controller and
// any master may do this. The result stays within [0, effective base].
func (s *Service) AdjustCurrentPoints(ctx context.Context, user *sheet.User, id ulid.ULID, kind sheet.PointKind, delta int) (*sheet.Character, error) {
	ctx, span := s.start(ctx, "character.AdjustCurrentPoints", user, id)
	defer span.End()
	span.SetAttributes(attribute.String("point.kind", string(kind)), attribute.Int("point.delta", delta))

	kind, err := sheet.ParsePointKind(string(kind))
	if err != nil {
		return nil, fail(span, err)
	}
	char, err := s.loadAuthorized(ctx, access.OpCharacterCurrentAdjust, user, id)
	if err != nil {
		return nil, fail(span, err)
	}
	char.Current = char.Current.With(kind, char.Current.Get(kind)+delta).ClampTo(char.EffectiveBase())
	if err := s.save(ctx, char); err != nil {
		return nil, fail(span, err)
	}
	return char, nil
}

// SaveMod attaches a modifier to a character. Control is checked before the
// modifier is stored and again on the reloaded character before the
// recomputed sheet is saved.
func (s *Service) SaveMod(ctx context.Context, user *sheet.User, id ulid.ULID, mod sheet.Mod) (*sheet.Character, error) {
	ctx, span := s.start(ctx, "character.SaveMod", user, id)
	defer span.End()

	if mod.ID.IsZero() {
		mod.ID = ulid.Make()
	}
	mod, err := mod.Normalize()
	if err != nil {
		return nil, fail(span, err)
	}
	if err := mod.Validate(); err != nil {
		return nil, fail(span, err)
	}
	if _, err := s.loadAuthorized(ctx, access.OpCharacterModSave, user, id); err != nil {
		return nil, fail(span, err)
	}
	if err := s.characters.SaveMod(ctx, id, mod, s.now()); err != nil {
		return nil, fail(span, oops.Wrapf(err, "save mod on character %s", id))
	}

	char, err := s.loadAuthorized(ctx, access.OpCharacterModSave, user, id)
	if err != nil {
		return nil, fail(span, err)
	}
	char.Current = char.Current.ClampTo(char.EffectiveBase())
	if err := s.save(ctx, char); err != nil {
		return nil, fail(span, err)
	}
	return char, nil
}

// loadAuthorized fetches a character and authorizes op against it.
func (s *Service) loadAuthorized(ctx context.Context, op string, user *sheet.User, id ulid.ULID) (*sheet.Character, error) {
	char, err := s.characters.Get(ctx, id)
	if err != nil {
		return nil, oops.Wrapf(err, "get character %s", id)
	}

	policy := s.operations.Policy(op)
	err = policy.Authorize(char, user)
	s.recorder.RecordDecision(policy.Kind(), err == nil)
	if err != nil {
		slog.InfoContext(ctx, "character action denied",
			"operation", op,
			"policy", policy.Kind().String(),
			"character_id", id.String(),
			"user_id", userID(user))
		return nil, err
	}
	return char, nil
}

func (s *Service) save(ctx context.Context, char *sheet.Character) error {
	char.UpdatedAt = s.now()
	if err := char.Validate(); err != nil {
		return err
	}
	if err := s.characters.Update(ctx, char); err != nil {
		return oops.Wrapf(err, "update character %s", char.ID)
	}
	return nil
}

func (s *Service) start(ctx context.Context, name string, user *sheet.User, id ulid.ULID) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("user.id", userID(user))}
	if !id.IsZero() {
		attrs = append(attrs, attribute.String("character.id", id.String()))
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func userID(u *sheet.User) string {
	if u == nil {
		return ""
	}
	return u.ID.String()
}
