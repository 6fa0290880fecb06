package redis_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/skillforge/internal/config"
	"github.com/cory-johannsen/skillforge/internal/game/player"
	"github.com/cory-johannsen/skillforge/internal/game/session"
	"github.com/cory-johannsen/skillforge/internal/storage/redis"
	"github.com/cory-johannsen/skillforge/internal/testutil"
)

func TestRepository_GatewayContract(t *testing.T) {
	testutil.RunGatewaySuite(t, func(t *testing.T) session.Gateway {
		_, client := testutil.NewMiniredis(t)
		return redis.NewRepository(client, "test:")
	})
}

func TestRepository_KeysCarryPrefix(t *testing.T) {
	mr, client := testutil.NewMiniredis(t)
	repo := redis.NewRepository(client, "sf:")
	doc := testutil.SampleDocument(uuid.New(), "Prefixed")

	require.NoError(t, repo.Save(context.Background(), doc))
	assert.True(t, mr.Exists("sf:player:"+doc.Identity.String()))
	ok, err := mr.SIsMember("sf:players", doc.Identity.String())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRepository_CorruptValueIsAnError(t *testing.T) {
	mr, client := testutil.NewMiniredis(t)
	repo := redis.NewRepository(client, "")
	id := uuid.New()
	require.NoError(t, mr.Set("player:"+id.String(), "{not json"))

	_, err := repo.Load(context.Background(), id)
	require.Error(t, err)
	assert.NotErrorIs(t, err, session.ErrNotFound)
}

func TestRepository_List(t *testing.T) {
	mr, client := testutil.NewMiniredis(t)
	repo := redis.NewRepository(client, "")
	ctx := context.Background()

	a, b := testutil.SampleDocument(uuid.New(), "A"), testutil.SampleDocument(uuid.New(), "B")
	require.NoError(t, repo.Save(ctx, a))
	require.NoError(t, repo.Save(ctx, b))
	_, err := mr.SAdd("players", "garbage")
	require.NoError(t, err)

	ids, err := repo.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []player.Identity{a.Identity, b.Identity}, ids)

	require.NoError(t, repo.Delete(ctx, a.Identity))
	ids, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []player.Identity{b.Identity}, ids)
}

func TestNewClient(t *testing.T) {
	mr, _ := testutil.NewMiniredis(t)
	client, err := redis.NewClient(context.Background(), config.RedisConfig{Addr: mr.Addr()}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer client.Close()

	_, err = redis.NewClient(context.Background(), config.RedisConfig{}, zaptest.NewLogger(t))
	assert.Error(t, err)
}
