// Package postgres persists player records in PostgreSQL using pgx v5. The
// schema lives in migrations/ and is applied with golang-migrate.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skillforge/internal/config"
	"github.com/cory-johannsen/skillforge/migrations"
)

// ErrSchemaMissing is returned by CheckSchema when the player tables have not
// been created.
var ErrSchemaMissing = errors.New("player schema missing; run skilladmin migrate up")

// Connect opens a pool sized by cfg and pings it.
//
// Postcondition: on success the caller owns the pool and must Close it.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	logger.Info("connected to postgres",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.Int32("max_conns", cfg.MaxConns),
	)
	return db, nil
}

// CheckSchema reports ErrSchemaMissing unless both player tables exist.
func CheckSchema(ctx context.Context, db *pgxpool.Pool) error {
	var ok bool
	err := db.QueryRow(ctx,
		`SELECT to_regclass('players') IS NOT NULL AND to_regclass('player_skills') IS NOT NULL`,
	).Scan(&ok)
	if err != nil {
		return fmt.Errorf("checking player schema: %w", err)
	}
	if !ok {
		return ErrSchemaMissing
	}
	return nil
}

// MigrationResult describes the schema after Migrate.
type MigrationResult struct {
	Version uint
	Dirty   bool
	Changed bool
}

// Migrate moves the schema at dsn by steps embedded migrations: positive
// steps go up, negative go down, and 0 applies every pending up migration.
// Pass down=true with steps 0 to revert everything.
//
// Postcondition: Changed is false when the schema was already at the target.
func Migrate(dsn string, steps int, down bool) (MigrationResult, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return MigrationResult{}, fmt.Errorf("opening embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	switch {
	case steps != 0:
		err = m.Steps(steps)
	case down:
		err = m.Down()
	default:
		err = m.Up()
	}
	res := MigrationResult{Changed: true}
	if errors.Is(err, migrate.ErrNoChange) {
		res.Changed = false
	} else if err != nil {
		return MigrationResult{}, fmt.Errorf("migrating: %w", err)
	}

	res.Version, res.Dirty, err = m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationResult{}, fmt.Errorf("reading schema version: %w", err)
	}
	return res, nil
}
