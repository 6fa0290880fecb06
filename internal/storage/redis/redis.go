// Package redis persists player documents in Redis as one JSON value per
// player plus an index set of known identities.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skillforge/internal/config"
	"github.com/cory-johannsen/skillforge/internal/game/player"
	"github.com/cory-johannsen/skillforge/internal/game/session"
)

const (
	playerKeyPart = "player:"
	indexKeyPart  = "players"
)

// NewClient opens a client from cfg and verifies the server answers.
//
// Postcondition: Returns a connected client or a non-nil error.
func NewClient(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*goredis.Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis: addr is required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return client, nil
}

// Repository implements session.Gateway on Redis.
type Repository struct {
	client goredis.UniversalClient
	prefix string
}

// NewRepository returns a Repository whose keys all start with prefix.
//
// Precondition: client must be non-nil.
func NewRepository(client goredis.UniversalClient, prefix string) *Repository {
	return &Repository{client: client, prefix: prefix}
}

func (r *Repository) playerKey(id player.Identity) string {
	return r.prefix + playerKeyPart + id.String()
}

func (r *Repository) indexKey() string {
	return r.prefix + indexKeyPart
}

// Load returns the stored document, or session.ErrNotFound.
func (r *Repository) Load(ctx context.Context, id player.Identity) (player.Document, error) {
	raw, err := r.client.Get(ctx, r.playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return player.Document{}, session.ErrNotFound
		}
		return player.Document{}, fmt.Errorf("loading player %s: %w", id, err)
	}
	var doc player.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return player.Document{}, fmt.Errorf("decoding player %s: %w", id, err)
	}
	doc.Identity = id
	return doc, nil
}

// Save writes the document and indexes its identity in one MULTI/EXEC.
func (r *Repository) Save(ctx context.Context, doc player.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding player %s: %w", doc.Identity, err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.playerKey(doc.Identity), data, 0)
	pipe.SAdd(ctx, r.indexKey(), doc.Identity.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving player %s: %w", doc.Identity, err)
	}
	return nil
}

// Exists reports whether a document is stored for id.
func (r *Repository) Exists(ctx context.Context, id player.Identity) (bool, error) {
	n, err := r.client.Exists(ctx, r.playerKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("checking player %s: %w", id, err)
	}
	return n > 0, nil
}

// Delete removes the document and its index entry.
func (r *Repository) Delete(ctx context.Context, id player.Identity) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.playerKey(id))
	pipe.SRem(ctx, r.indexKey(), id.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting player %s: %w", id, err)
	}
	return nil
}

// List returns every indexed identity in ascending string order. Malformed
// index members are skipped.
func (r *Repository) List(ctx context.Context) ([]player.Identity, error) {
	members, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	sort.Strings(members)
	ids := make([]player.Identity, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
