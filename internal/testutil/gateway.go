package testutil

import (
	"context"
	"sync"

	"github.com/cory-johannsen/skillforge/internal/game/player"
	"github.com/cory-johannsen/skillforge/internal/game/session"
)

// MemoryGateway is an in-memory session.Gateway with failure injection and
// call counters for cache and facade tests.
type MemoryGateway struct {
	mu    sync.Mutex
	docs  map[player.Identity]player.Document
	loads int
	saves int

	// LoadErr and SaveErr, when non-nil, are returned for the matching
	// identity instead of touching the map.
	LoadErr map[player.Identity]error
	SaveErr map[player.Identity]error
	// BeforeLoad and BeforeSave run outside the lock at the start of each
	// call; tests use them to block or interleave.
	BeforeLoad func(id player.Identity)
	BeforeSave func(doc player.Document)
}

// NewMemoryGateway returns an empty MemoryGateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		docs:    make(map[player.Identity]player.Document),
		LoadErr: make(map[player.Identity]error),
		SaveErr: make(map[player.Identity]error),
	}
}

// Load implements session.Gateway.
func (g *MemoryGateway) Load(_ context.Context, id player.Identity) (player.Document, error) {
	if g.BeforeLoad != nil {
		g.BeforeLoad(id)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loads++
	if err := g.LoadErr[id]; err != nil {
		return player.Document{}, err
	}
	doc, ok := g.docs[id]
	if !ok {
		return player.Document{}, session.ErrNotFound
	}
	return doc, nil
}

// Save implements session.Gateway.
func (g *MemoryGateway) Save(_ context.Context, doc player.Document) error {
	if g.BeforeSave != nil {
		g.BeforeSave(doc)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.SaveErr[doc.Identity]; err != nil {
		return err
	}
	g.saves++
	g.docs[doc.Identity] = doc
	return nil
}

// Exists implements session.Gateway.
func (g *MemoryGateway) Exists(_ context.Context, id player.Identity) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.docs[id]
	return ok, nil
}

// Delete implements session.Gateway.
func (g *MemoryGateway) Delete(_ context.Context, id player.Identity) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.docs, id)
	return nil
}

// Put stores doc directly.
func (g *MemoryGateway) Put(doc player.Document) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.docs[doc.Identity] = doc
}

// Doc returns the stored document for id.
func (g *MemoryGateway) Doc(id player.Identity) (player.Document, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	doc, ok := g.docs[id]
	return doc, ok
}

// SetSaveErr injects (or with nil clears) a save failure for id.
func (g *MemoryGateway) SetSaveErr(id player.Identity, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.SaveErr[id] = err
}

// Loads returns how many Load calls reached the map.
func (g *MemoryGateway) Loads() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loads
}

// Saves returns how many Save calls succeeded.
func (g *MemoryGateway) Saves() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.saves
}
