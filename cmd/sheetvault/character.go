// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

package main

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/sheetvault/sheetvault/internal/character"
	"github.com/sheetvault/sheetvault/internal/sheet"
)

func newCharacterCmd(a *app) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "character",
		Short: "Work with character sheets on behalf of a user",
	}
	cmd.PersistentFlags().StringVar(&actor, "as", "", "email of the acting user")
	_ = cmd.MarkPersistentFlagRequired("as") //nolint:errcheck // flag is defined above

	cmd.AddCommand(newCharacterCreateCmd(a, &actor))
	cmd.AddCommand(newCharacterHomeCmd(a, &actor))
	cmd.AddCommand(newCharacterShowCmd(a, &actor))
	cmd.AddCommand(newCharacterAdjustCmd(a, &actor))
	cmd.AddCommand(newCharacterModCmd(a, &actor))

	return cmd
}

// asUser resolves the acting user and runs fn with the services.
func (a *app) asUser(ctx context.Context, email string, fn func(svc *Services, user *sheet.User) error) error {
	svc, db, err := a.services(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := svc.Registrar.Lookup(ctx, email)
	if err != nil {
		return oops.Code("ACTOR_NOT_FOUND").With("email", email).Wrap(err)
	}
	return fn(svc, user)
}

func newCharacterCreateCmd(a *app, actor *string) *cobra.Command {
	req := character.NewCharacter{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a character controlled by the acting user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.asUser(cmd.Context(), *actor, func(svc *Services, user *sheet.User) error {
				char, err := svc.Characters.Create(cmd.Context(), user, req)
				if err != nil {
					return err
				}
				cmd.Printf("Created %s (%s)\n", char.Name, char.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "character name")
	cmd.Flags().BoolVar(&req.IsKnown, "known", false, "list the character for every player")
	cmd.Flags().BoolVar(&req.Ownerless, "ownerless", false, "create without a controller (masters only)")
	bindPointFlags(cmd, &req.Base)
	_ = cmd.MarkFlagRequired("name") //nolint:errcheck // flag is defined above

	return cmd
}

func bindPointFlags(cmd *cobra.Command, p *sheet.PointSet) {
	cmd.Flags().IntVar(&p.Hit, "hit", 0, "base hit points")
	cmd.Flags().IntVar(&p.Hero, "hero", 0, "base hero points")
	cmd.Flags().IntVar(&p.Magic, "magic", 0, "base magic points")
	cmd.Flags().IntVar(&p.Faith, "faith", 0, "base faith points")
	cmd.Flags().IntVar(&p.Protection, "protection", 0, "base protection points")
	cmd.Flags().IntVar(&p.Initiative, "initiative", 0, "base initiative points")
}

func newCharacterHomeCmd(a *app, actor *string) *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "List the characters the acting user can see",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.asUser(cmd.Context(), *actor, func(svc *Services, user *sheet.User) error {
				chars, err := svc.Characters.Home(cmd.Context(), user)
				if err != nil {
					return err
				}
				if len(chars) == 0 {
					cmd.Println("No characters")
					return nil
				}
				for _, c := range chars {
					cmd.Printf("%s  %-24s %s\n", c.ID, c.Name, describe(c, user))
				}
				return nil
			})
		},
	}
}

func describe(c *sheet.Character, viewer *sheet.User) string {
	var who string
	switch {
	case c.IsOwnerless():
		who = "ownerless"
	case c.IsControlledBy(viewer.ID):
		who = "yours"
	default:
		who = "controlled"
	}
	if c.IsKnown {
		return who + ", known"
	}
	return who + ", private"
}

func newCharacterShowCmd(a *app, actor *string) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a character sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			charID, err := parseCharacterID(id)
			if err != nil {
				return err
			}
			return a.asUser(cmd.Context(), *actor, func(svc *Services, user *sheet.User) error {
				char, err := svc.Characters.Get(cmd.Context(), user, charID)
				if err != nil {
					return err
				}
				printSheet(cmd, char)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "character ID")
	_ = cmd.MarkFlagRequired("id") //nolint:errcheck // flag is defined above

	return cmd
}

func printSheet(cmd *cobra.Command, char *sheet.Character) {
	cmd.Printf("%s (%s)\n", char.Name, char.ID)
	eff := char.EffectiveBase()
	for _, kind := range sheet.PointKinds {
		cmd.Printf("  %-10s %3d / %3d\n", kind, char.Current.Get(kind), eff.Get(kind))
	}
	for _, m := range char.Mods {
		cmd.Printf("  mod %s %+d %s\n", m.Kind, m.Value, m.Reason)
	}
}

func newCharacterAdjustCmd(a *app, actor *string) *cobra.Command {
	var (
		id    string
		kind  string
		delta int
	)

	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Add to or subtract from a current pool",
		Long: `Adjusts one current pool of a character. The controller and any
master may do this. The result is kept between zero and the effective base.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			charID, err := parseCharacterID(id)
			if err != nil {
				return err
			}
			return a.asUser(cmd.Context(), *actor, func(svc *Services, user *sheet.User) error {
				char, err := svc.Characters.AdjustCurrentPoints(cmd.Context(), user, charID, sheet.PointKind(kind), delta)
				if err != nil {
					return err
				}
				k, _ := sheet.ParsePointKind(kind) //nolint:errcheck // accepted by the service above
				cmd.Printf("%s %s: %d / %d\n", char.Name, k, char.Current.Get(k), char.EffectiveBase().Get(k))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "character ID")
	cmd.Flags().StringVar(&kind, "kind", "", "pool to adjust (hit, hero, magic, faith, protection, initiative)")
	cmd.Flags().IntVar(&delta, "delta", 0, "amount to add; negative to subtract")
	for _, name := range []string{"id", "kind", "delta"} {
		_ = cmd.MarkFlagRequired(name) //nolint:errcheck // flag is defined above
	}

	return cmd
}

func newCharacterModCmd(a *app, actor *string) *cobra.Command {
	var (
		id   string
		kind string
		mod  sheet.Mod
	)

	cmd := &cobra.Command{
		Use:   "mod",
		Short: "Attach a persistent modifier to a base pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			charID, err := parseCharacterID(id)
			if err != nil {
				return err
			}
			mod.Kind = sheet.PointKind(kind)
			return a.asUser(cmd.Context(), *actor, func(svc *Services, user *sheet.User) error {
				char, err := svc.Characters.SaveMod(cmd.Context(), user, charID, mod)
				if err != nil {
					return err
				}
				printSheet(cmd, char)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "character ID")
	cmd.Flags().StringVar(&kind, "kind", "", "pool the modifier applies to")
	cmd.Flags().IntVar(&mod.Value, "value", 0, "modifier value, non-zero")
	cmd.Flags().StringVar(&mod.Reason, "reason", "", "why the modifier exists")
	for _, name := range []string{"id", "kind", "value"} {
		_ = cmd.MarkFlagRequired(name) //nolint:errcheck // flag is defined above
	}

	return cmd
}

func parseCharacterID(s string) (ulid.ULID, error) {
	id, err := ulid.Parse(s)
	if err != nil {
		return ulid.ULID{}, oops.Code("INVALID_CHARACTER_ID").With("id", s).Wrap(err)
	}
	return id, nil
}
