// Package sqlite persists player documents in a single-node SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/skillforge/internal/game/player"
	"github.com/cory-johannsen/skillforge/internal/game/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS players (
	id          TEXT    PRIMARY KEY,
	name        TEXT    NOT NULL,
	hp          REAL    NOT NULL,
	max_hp      REAL    NOT NULL,
	mana        REAL    NOT NULL,
	max_mana    REAL    NOT NULL,
	stamina     REAL    NOT NULL,
	max_stamina REAL    NOT NULL,
	str_stat    INTEGER NOT NULL,
	dex_stat    INTEGER NOT NULL,
	int_stat    INTEGER NOT NULL,
	str_lock    TEXT    NOT NULL,
	dex_lock    TEXT    NOT NULL,
	int_lock    TEXT    NOT NULL,
	language    TEXT    NOT NULL,
	updated_at  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS player_skills (
	player_id TEXT    NOT NULL REFERENCES players (id) ON DELETE CASCADE,
	skill_key TEXT    NOT NULL,
	value     REAL    NOT NULL,
	last_used INTEGER NOT NULL,
	PRIMARY KEY (player_id, skill_key)
);
`

// Store implements session.Gateway on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
//
// Postcondition: Returns a ready Store or a non-nil error.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite: path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// A single connection serializes writers instead of surfacing SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying sqlite schema: %w", err)
	}
	logger.Info("opened sqlite store", zap.String("path", path))
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func toMicros(t time.Time) int64 { return t.UTC().UnixMicro() }

func fromMicros(v int64) time.Time { return time.UnixMicro(v).UTC() }

// Load returns the stored document, or session.ErrNotFound.
func (s *Store) Load(ctx context.Context, id player.Identity) (player.Document, error) {
	doc := player.Document{Identity: id}
	err := s.db.QueryRowContext(ctx, `
		SELECT name, hp, max_hp, mana, max_mana, stamina, max_stamina,
		       str_stat, dex_stat, int_stat, str_lock, dex_lock, int_lock, language
		FROM players WHERE id = ?`, id.String(),
	).Scan(
		&doc.Name, &doc.HP, &doc.MaxHP, &doc.Mana, &doc.MaxMana, &doc.Stamina, &doc.MaxStamina,
		&doc.Str, &doc.Dex, &doc.Int, &doc.StrLock, &doc.DexLock, &doc.IntLock, &doc.Language,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return player.Document{}, session.ErrNotFound
		}
		return player.Document{}, fmt.Errorf("loading player %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT skill_key, value, last_used
		FROM player_skills WHERE player_id = ? ORDER BY skill_key`, id.String(),
	)
	if err != nil {
		return player.Document{}, fmt.Errorf("loading skills of player %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			sr   player.SkillRow
			last int64
		)
		if err := rows.Scan(&sr.Key, &sr.Value, &last); err != nil {
			return player.Document{}, fmt.Errorf("scanning skills of player %s: %w", id, err)
		}
		sr.LastUsed = fromMicros(last)
		doc.Skills = append(doc.Skills, sr)
	}
	if err := rows.Err(); err != nil {
		return player.Document{}, fmt.Errorf("iterating skills of player %s: %w", id, err)
	}
	return doc, nil
}

// Save upserts the player and every skill row in one transaction.
func (s *Store) Save(ctx context.Context, doc player.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save of player %s: %w", doc.Identity, err)
	}
	defer func() { _ = tx.Rollback() }()

	id := doc.Identity.String()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO players
			(id, name, hp, max_hp, mana, max_mana, stamina, max_stamina,
			 str_stat, dex_stat, int_stat, str_lock, dex_lock, int_lock, language, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			hp = excluded.hp, max_hp = excluded.max_hp,
			mana = excluded.mana, max_mana = excluded.max_mana,
			stamina = excluded.stamina, max_stamina = excluded.max_stamina,
			str_stat = excluded.str_stat, dex_stat = excluded.dex_stat, int_stat = excluded.int_stat,
			str_lock = excluded.str_lock, dex_lock = excluded.dex_lock, int_lock = excluded.int_lock,
			language = excluded.language, updated_at = excluded.updated_at`,
		id, doc.Name, doc.HP, doc.MaxHP, doc.Mana, doc.MaxMana, doc.Stamina, doc.MaxStamina,
		doc.Str, doc.Dex, doc.Int, doc.StrLock, doc.DexLock, doc.IntLock, doc.Language,
		toMicros(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("upserting player %s: %w", doc.Identity, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO player_skills (player_id, skill_key, value, last_used)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (player_id, skill_key) DO UPDATE SET
			value = excluded.value, last_used = excluded.last_used`)
	if err != nil {
		return fmt.Errorf("preparing skill upsert: %w", err)
	}
	defer stmt.Close()
	for _, sr := range doc.Skills {
		if _, err := stmt.ExecContext(ctx, id, sr.Key, sr.Value, toMicros(sr.LastUsed)); err != nil {
			return fmt.Errorf("upserting skill %q of player %s: %w", sr.Key, doc.Identity, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing player %s: %w", doc.Identity, err)
	}
	return nil
}

// Exists reports whether a player row exists for id.
func (s *Store) Exists(ctx context.Context, id player.Identity) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM players WHERE id = ?)`, id.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking player %s: %w", id, err)
	}
	return exists, nil
}

// Delete removes the player and, by cascade, its skill rows.
func (s *Store) Delete(ctx context.Context, id player.Identity) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM players WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("deleting player %s: %w", id, err)
	}
	return nil
}

// List returns every stored identity in ascending order.
func (s *Store) List(ctx context.Context) ([]player.Identity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM players ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	defer rows.Close()
	var ids []player.Identity
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning player id: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
