package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/skillforge/internal/game/player"
	"github.com/cory-johannsen/skillforge/internal/game/session"
)

// PlayerRepository persists player documents across the players and
// player_skills tables. It implements session.Gateway.
type PlayerRepository struct {
	db *pgxpool.Pool
}

// NewPlayerRepository creates a PlayerRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with the schema in
// migrations/ applied.
func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Load returns the persisted document for id.
//
// Postcondition: Returns session.ErrNotFound when no players row exists.
// Skill rows are returned as stored; sanitizing them is the caller's job.
func (r *PlayerRepository) Load(ctx context.Context, id player.Identity) (player.Document, error) {
	doc := player.Document{Identity: id}
	err := r.db.QueryRow(ctx, `
		SELECT name, hp, max_hp, mana, max_mana, stamina, max_stamina,
		       str_stat, dex_stat, int_stat, str_lock, dex_lock, int_lock, language
		FROM players WHERE id = $1`, id,
	).Scan(
		&doc.Name, &doc.HP, &doc.MaxHP, &doc.Mana, &doc.MaxMana, &doc.Stamina, &doc.MaxStamina,
		&doc.Str, &doc.Dex, &doc.Int, &doc.StrLock, &doc.DexLock, &doc.IntLock, &doc.Language,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return player.Document{}, session.ErrNotFound
		}
		return player.Document{}, fmt.Errorf("loading player %s: %w", id, err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT skill_key, value, last_used
		FROM player_skills WHERE player_id = $1 ORDER BY skill_key`, id,
	)
	if err != nil {
		return player.Document{}, fmt.Errorf("loading skills of player %s: %w", id, err)
	}
	doc.Skills, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (player.SkillRow, error) {
		var sr player.SkillRow
		err := row.Scan(&sr.Key, &sr.Value, &sr.LastUsed)
		return sr, err
	})
	if err != nil {
		return player.Document{}, fmt.Errorf("scanning skills of player %s: %w", id, err)
	}
	return doc, nil
}

// Save upserts the players row and every skill row in one transaction.
//
// Postcondition: Either the whole document is stored or nothing changed.
func (r *PlayerRepository) Save(ctx context.Context, doc player.Document) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning save of player %s: %w", doc.Identity, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO players
			(id, name, hp, max_hp, mana, max_mana, stamina, max_stamina,
			 str_stat, dex_stat, int_stat, str_lock, dex_lock, int_lock, language)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			hp = EXCLUDED.hp, max_hp = EXCLUDED.max_hp,
			mana = EXCLUDED.mana, max_mana = EXCLUDED.max_mana,
			stamina = EXCLUDED.stamina, max_stamina = EXCLUDED.max_stamina,
			str_stat = EXCLUDED.str_stat, dex_stat = EXCLUDED.dex_stat, int_stat = EXCLUDED.int_stat,
			str_lock = EXCLUDED.str_lock, dex_lock = EXCLUDED.dex_lock, int_lock = EXCLUDED.int_lock,
			language = EXCLUDED.language,
			updated_at = NOW()`,
		doc.Identity, doc.Name, doc.HP, doc.MaxHP, doc.Mana, doc.MaxMana, doc.Stamina, doc.MaxStamina,
		doc.Str, doc.Dex, doc.Int, doc.StrLock, doc.DexLock, doc.IntLock, doc.Language,
	)
	if err != nil {
		return fmt.Errorf("upserting player %s: %w", doc.Identity, err)
	}

	batch := &pgx.Batch{}
	for _, sr := range doc.Skills {
		batch.Queue(`
			INSERT INTO player_skills (player_id, skill_key, value, last_used)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (player_id, skill_key) DO UPDATE SET
				value = EXCLUDED.value, last_used = EXCLUDED.last_used`,
			doc.Identity, sr.Key, sr.Value, sr.LastUsed,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting skills of player %s: %w", doc.Identity, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing player %s: %w", doc.Identity, err)
	}
	return nil
}

// Exists reports whether a players row exists for id.
func (r *PlayerRepository) Exists(ctx context.Context, id player.Identity) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM players WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking player %s: %w", id, err)
	}
	return exists, nil
}

// Delete removes the player and, by cascade, its skill rows.
//
// Postcondition: Deleting an absent id returns nil.
func (r *PlayerRepository) Delete(ctx context.Context, id player.Identity) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM players WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting player %s: %w", id, err)
	}
	return nil
}

// List returns every stored identity in ascending order.
func (r *PlayerRepository) List(ctx context.Context) ([]player.Identity, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM players ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[player.Identity])
	if err != nil {
		return nil, fmt.Errorf("scanning player ids: %w", err)
	}
	return ids, nil
}
