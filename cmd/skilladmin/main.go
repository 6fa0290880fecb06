// Package main provides an administrative CLI for persisted player records.
// It works directly against the configured storage backend, so the player
// should be offline while a record is edited.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skillforge/internal/config"
	"github.com/cory-johannsen/skillforge/internal/observability"
	"github.com/cory-johannsen/skillforge/internal/storage"
	"github.com/cory-johannsen/skillforge/internal/storage/postgres"
)

// opener connects to the player store named by cfg.
type opener func(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Backend, error)

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	timeout    time.Duration
	out        io.Writer
	open       opener
	migrate    migrator
}

// session is one command's loaded configuration and open backend.
type session struct {
	cfg     config.Config
	logger  *zap.Logger
	backend storage.Backend
}

func (a *app) connect(ctx context.Context) (*session, func(), error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	backend, err := a.open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening storage: %w", err)
	}
	cleanup := func() {
		_ = backend.Close()
		_ = logger.Sync()
	}
	return &session{cfg: cfg, logger: logger, backend: backend}, cleanup, nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "skilladmin",
		Short:         "Inspect and edit persisted player records",
		Long:          `skilladmin inspects and edits player records in the configured storage backend and migrates the postgres schema.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "configs/dev.yaml", "path to configuration file")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 30*time.Second, "storage operation timeout")
	root.SetOut(a.out)

	root.AddCommand(newListCmd(a))
	root.AddCommand(newShowCmd(a))
	root.AddCommand(newSetSkillCmd(a))
	root.AddCommand(newDeleteCmd(a))
	root.AddCommand(newMigrateCmd(a))
	return root
}

func main() {
	a := &app{out: os.Stdout, open: storage.Open, migrate: postgres.Migrate}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
