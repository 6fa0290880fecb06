package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/skillforge/internal/config"
	"github.com/cory-johannsen/skillforge/internal/storage/postgres"
)

// migrator applies embedded schema migrations to the database at dsn.
type migrator func(dsn string, steps int, down bool) (postgres.MigrationResult, error)

func newMigrateCmd(a *app) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:       "migrate <up|down>",
		Short:     "Apply or revert the postgres player schema",
		Long:      `migrate applies the embedded schema migrations. The sqlite and redis backends create their own schema and have none.`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 0 {
				return fmt.Errorf("--steps must not be negative")
			}
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if cfg.Storage.Backend != config.BackendPostgres {
				return fmt.Errorf("storage backend %q has no migrations", cfg.Storage.Backend)
			}

			down := args[0] == "down"
			n := steps
			if down {
				n = -steps
			}
			began := time.Now()
			res, err := a.migrate(cfg.Database.DSN(), n, down)
			if err != nil {
				return err
			}
			if !res.Changed {
				fmt.Fprintf(cmd.OutOrStdout(), "no changes (version=%d dirty=%t)\n", res.Version, res.Dirty)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s to version=%d dirty=%t [%s]\n",
				args[0], res.Version, res.Dirty, time.Since(began).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "number of migrations to apply (0 = all)")
	return cmd
}
