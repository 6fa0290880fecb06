// Package testutil provides test helpers: backend containers, an in-memory
// gateway, and the shared gateway contract suite.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/skillforge/internal/config"
	"github.com/cory-johannsen/skillforge/internal/storage/postgres"
)

const pgImage = "postgres:16-alpine"

// StartPostgres runs an empty PostgreSQL container for the duration of the
// test and returns settings that reach it. The test is skipped under -short.
//
// Precondition: Docker must be available.
func StartPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests are skipped in -short mode")
	}
	ctx := context.Background()
	began := time.Now()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        pgImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "skillforge",
				"POSTGRES_PASSWORD": "skillforge",
				"POSTGRES_DB":       "players",
			},
			// The server logs readiness once for the init pass and once for real.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err, "starting %s", pgImage)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432")
	require.NoError(t, err)
	t.Logf("%s ready at %s:%s [%s]", pgImage, host, port.Port(), time.Since(began))

	return config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "skillforge",
		Password:        "skillforge",
		Name:            "players",
		SSLMode:         "disable",
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}
}

// MigratePostgres applies every embedded migration to the database at cfg.
func MigratePostgres(t *testing.T, cfg config.DatabaseConfig) {
	t.Helper()
	res, err := postgres.Migrate(cfg.DSN(), 0, false)
	require.NoError(t, err, "migrating test database")
	require.False(t, res.Dirty)
}

// ConnectPostgres opens a pool on cfg that is closed when the test ends.
func ConnectPostgres(t *testing.T, cfg config.DatabaseConfig) *pgxpool.Pool {
	t.Helper()
	db, err := postgres.Connect(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

// NewPool starts a container, applies the schema, and returns a pool on it.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	cfg := StartPostgres(t)
	MigratePostgres(t, cfg)
	return ConnectPostgres(t, cfg)
}
