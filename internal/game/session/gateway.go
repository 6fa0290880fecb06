// Package session owns the in-memory records of online players: at most one
// load per identity, dirty-tracked saves, batch autosave and unload on
// disconnect.
package session

import (
	"context"
	"errors"

	"github.com/cory-johannsen/skillforge/internal/game/player"
)

// ErrNotFound is returned by a Gateway when no record is persisted for an
// identity.
var ErrNotFound = errors.New("player record not found")

// Gateway persists player documents.
//
// Implementations MUST be safe for concurrent use and MUST round-trip every
// Document field, including each skill's value and last-used time.
type Gateway interface {
	// Load returns the persisted document, or ErrNotFound.
	Load(ctx context.Context, id player.Identity) (player.Document, error)
	// Save upserts doc.
	Save(ctx context.Context, doc player.Document) error
	// Exists reports whether a document is persisted for id.
	Exists(ctx context.Context, id player.Identity) (bool, error)
	// Delete removes the document for id. Deleting an absent id is not an
	// error.
	Delete(ctx context.Context, id player.Identity) error
}

// readOnly discards writes so a server can run against live data without
// persisting anything.
type readOnly struct {
	Gateway
}

// ReadOnly wraps gw so that Save and Delete succeed without writing. Loads and
// existence checks still reach gw.
func ReadOnly(gw Gateway) Gateway {
	return readOnly{Gateway: gw}
}

func (readOnly) Save(context.Context, player.Document) error { return nil }

func (readOnly) Delete(context.Context, player.Identity) error { return nil }
