// Package storage opens the persistence backend named by configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skillforge/internal/config"
	"github.com/cory-johannsen/skillforge/internal/game/player"
	"github.com/cory-johannsen/skillforge/internal/game/session"
	"github.com/cory-johannsen/skillforge/internal/storage/postgres"
	"github.com/cory-johannsen/skillforge/internal/storage/redis"
	"github.com/cory-johannsen/skillforge/internal/storage/sqlite"
)

// Backend is an open player store.
type Backend interface {
	session.Gateway
	// List returns every persisted identity.
	List(ctx context.Context) ([]player.Identity, error)
	// Close releases the backend's connections.
	Close() error
}

type postgresBackend struct {
	*postgres.PlayerRepository
	db *pgxpool.Pool
}

func (b postgresBackend) Close() error {
	b.db.Close()
	return nil
}

type redisBackend struct {
	*redis.Repository
	close func() error
}

func (b redisBackend) Close() error { return b.close() }

// Open connects to the backend selected by cfg.Storage.Backend.
//
// Precondition: cfg must pass Validate.
// Postcondition: on success the caller owns the Backend and must Close it.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (Backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		db, err := postgres.Connect(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		if err := postgres.CheckSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return postgresBackend{PlayerRepository: postgres.NewPlayerRepository(db), db: db}, nil
	case config.BackendRedis:
		client, err := redis.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return redisBackend{Repository: redis.NewRepository(client, cfg.Redis.KeyPrefix), close: client.Close}, nil
	case config.BackendSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLite.Path, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
