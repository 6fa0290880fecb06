package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skillforge/internal/clock"
	"github.com/cory-johannsen/skillforge/internal/game/dice"
	"github.com/cory-johannsen/skillforge/internal/game/player"
	"github.com/cory-johannsen/skillforge/internal/game/progression"
	"github.com/cory-johannsen/skillforge/internal/game/session"
	"github.com/cory-johannsen/skillforge/internal/game/skill"
	"github.com/cory-johannsen/skillforge/internal/game/stats"
	"github.com/cory-johannsen/skillforge/internal/messaging"
	"github.com/cory-johannsen/skillforge/internal/observability"
	"github.com/cory-johannsen/skillforge/internal/scripting"
)

func parseIdentity(arg string) (player.Identity, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return player.Identity{}, fmt.Errorf("invalid player id %q: %w", arg, err)
	}
	return id, nil
}

// run connects, bounds the command by the timeout, and calls fn.
func (a *app) run(fn func(ctx context.Context, s *session) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	s, cleanup, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(ctx, s)
}

// load rebuilds the record for id, reporting any repairs made to stored data.
func (s *session) load(ctx context.Context, cmd *cobra.Command, id player.Identity) (*player.Record, error) {
	doc, err := s.backend.Load(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return nil, fmt.Errorf("no record for player %s", id)
	}
	if err != nil {
		return nil, err
	}
	rec, issues := player.FromDocument(doc, clock.New().Now())
	for _, issue := range issues {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", issue)
	}
	return rec, nil
}

// deriver builds the same derivation the server uses, including pool scripts.
func (s *session) deriver() (*stats.Deriver, func(), error) {
	cfg := s.cfg.Stats.Engine()
	if s.cfg.Content.ScriptsDir == "" {
		return stats.NewDeriver(cfg, nil), func() {}, nil
	}
	pools, scripts, err := scripting.LoadPools(s.cfg.Content.ScriptsDir, cfg, s.cfg.Scripting.InstructionLimit, s.logger)
	if err != nil {
		return nil, nil, err
	}
	return stats.NewDeriver(cfg, pools), scripts.Close, nil
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every stored player id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(func(ctx context.Context, s *session) error {
				ids, err := s.backend.List(ctx)
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d player(s)\n", len(ids))
				return nil
			})
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <player-id>",
		Short: "Show a player's pools, stats and trained skills",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIdentity(args[0])
			if err != nil {
				return err
			}
			return a.run(func(ctx context.Context, s *session) error {
				rec, err := s.load(ctx, cmd, id)
				if err != nil {
					return err
				}
				printRecord(cmd, rec, progression.NewEngine(s.cfg.Progression.Engine(), nil, nil, nil, messaging.NopSink{}, s.logger).Summary(rec))
				return nil
			})
		},
	}
}

func printRecord(cmd *cobra.Command, rec *player.Record, sum progression.Summary) {
	out := cmd.OutOrStdout()
	st := rec.Snapshot()
	fmt.Fprintf(out, "Player:   %s (%s)\n", st.Name, rec.ID())
	fmt.Fprintf(out, "Language: %s\n", st.Language)
	fmt.Fprintf(out, "HP:       %.1f/%.1f\n", st.HP, st.MaxHP)
	fmt.Fprintf(out, "Mana:     %.1f/%.1f\n", st.Mana, st.MaxMana)
	fmt.Fprintf(out, "Stamina:  %.1f/%.1f\n", st.Stamina, st.MaxStamina)
	var parts []string
	for a := skill.Str; a < skill.AxisCount; a++ {
		parts = append(parts, fmt.Sprintf("%s %d (%s)", strings.ToUpper(a.String()), st.Stats.Get(a), st.Locks[a]))
	}
	fmt.Fprintf(out, "Stats:    %s\n", strings.Join(parts, "  "))
	fmt.Fprintf(out, "Skills:   %.1f/%.1f\n", sum.Total, sum.Cap)
	for _, line := range sum.Skills {
		fmt.Fprintf(out, "  %-24s %5.1f\n", line.Name, line.Value)
	}
}

func newSetSkillCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-skill <player-id> <skill> <value>",
		Short: "Set a skill directly, bypassing the total cap",
		Long: `set-skill overwrites one skill of a stored player and recomputes derived stats.
The total skill cap is not enforced. The player must be offline, otherwise the
server's next save overwrites the change.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIdentity(args[0])
			if err != nil {
				return err
			}
			sk, err := skill.ByKey(args[1])
			if err != nil {
				return err
			}
			value, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid skill value %q: %w", args[2], err)
			}
			return a.run(func(ctx context.Context, s *session) error {
				rec, err := s.load(ctx, cmd, id)
				if err != nil {
					return err
				}
				deriver, closeScripts, err := s.deriver()
				if err != nil {
					return err
				}
				defer closeScripts()

				roller := dice.NewLoggedRoller(dice.NewCryptoSource(), s.logger)
				engine := progression.NewEngine(s.cfg.Progression.Engine(), roller, clock.New(), deriver, messaging.NopSink{}, s.logger)
				engine.SetSkill(rec, sk, value)

				doc, _ := rec.Document()
				if err := s.backend.Save(ctx, doc); err != nil {
					return err
				}
				entry, _ := skill.Lookup(sk)
				st := rec.Snapshot()
				s.logger.Info("skill set by admin",
					observability.Player(id),
					zap.String("skill", entry.Key),
					zap.Float64("value", st.Skill(sk)),
				)
				fmt.Fprintf(cmd.OutOrStdout(), "%s of %s is now %.1f (total %.1f)\n",
					entry.Name, st.Name, st.Skill(sk), st.TotalSkill())
				return nil
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <player-id>",
		Short: "Delete a stored player record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIdentity(args[0])
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("refusing to delete %s without --yes", id)
			}
			return a.run(func(ctx context.Context, s *session) error {
				ok, err := s.backend.Exists(ctx, id)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no record for player %s", id)
				}
				if err := s.backend.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
