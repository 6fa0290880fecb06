package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/skillforge/internal/config"
	"github.com/cory-johannsen/skillforge/internal/storage"
	"github.com/cory-johannsen/skillforge/internal/storage/postgres"
	"github.com/cory-johannsen/skillforge/internal/testutil"
)

func defaultConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.LoadFromViper(config.Defaults())
	require.NoError(t, err)
	return cfg
}

func roundTrip(t *testing.T, b storage.Backend) {
	t.Helper()
	ctx := context.Background()
	doc := testutil.SampleDocument(uuid.New(), "Opened")
	require.NoError(t, b.Save(ctx, doc))

	got, err := b.Load(ctx, doc.Identity)
	require.NoError(t, err)
	testutil.AssertDocumentsEqual(t, doc, got)

	ids, err := b.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, doc.Identity)
}

func TestOpen_SQLite(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Storage.Backend = config.BackendSQLite
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "players.db")

	b, err := storage.Open(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { assert.NoError(t, b.Close()) }()
	roundTrip(t, b)
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := defaultConfig(t)
	cfg.Storage.Backend = config.BackendRedis
	cfg.Redis.Addr = mr.Addr()

	b, err := storage.Open(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { assert.NoError(t, b.Close()) }()
	roundTrip(t, b)
	assert.NotEmpty(t, mr.Keys())
}

func TestOpen_Postgres(t *testing.T) {
	db := testutil.StartPostgres(t)
	testutil.MigratePostgres(t, db)
	cfg := defaultConfig(t)
	cfg.Storage.Backend = config.BackendPostgres
	cfg.Database = db

	b, err := storage.Open(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { assert.NoError(t, b.Close()) }()
	roundTrip(t, b)
}

func TestOpen_PostgresWithoutSchema(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Storage.Backend = config.BackendPostgres
	cfg.Database = testutil.StartPostgres(t)

	b, err := storage.Open(context.Background(), cfg, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, postgres.ErrSchemaMissing)
	assert.Nil(t, b)
}

func TestOpen_SQLiteBadPath(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Storage.Backend = config.BackendSQLite
	cfg.SQLite.Path = "   "

	b, err := storage.Open(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
	assert.Nil(t, b)
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Storage.Backend = "mongo"

	_, err := storage.Open(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}
