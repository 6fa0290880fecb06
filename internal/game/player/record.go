// Package player defines the per-player record shared by the progression,
// stat and combat engines, and its persisted document form.
package player

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/skillforge/internal/game/skill"
)

// Identity is the stable player identifier assigned by the host game.
type Identity = uuid.UUID

// MaxSkill and MaxStat bound every skill value and derived stat.
const (
	MaxSkill = 100.0
	MaxStat  = 100
)

// DefaultLanguage is used when a record has no language set.
const DefaultLanguage = "en-US"

// LockMode pins how a derived stat follows its skill-weighted derivation.
type LockMode uint8

const (
	// LockFree follows the derivation exactly.
	LockFree LockMode = iota
	// LockUp lets the stat rise but never fall on recompute.
	LockUp
	// LockDown lets the stat fall but never rise on recompute.
	LockDown
	// LockLocked keeps the stat unchanged on recompute.
	LockLocked
)

var lockNames = [...]string{"free", "up", "down", "locked"}

// String returns the lower-case mode name.
func (m LockMode) String() string {
	if int(m) < len(lockNames) {
		return lockNames[m]
	}
	return fmt.Sprintf("lock(%d)", uint8(m))
}

// ParseLockMode parses a mode name. The empty string parses as LockFree.
func ParseLockMode(s string) (LockMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LockFree, nil
	}
	for i, n := range lockNames {
		if n == s {
			return LockMode(i), nil
		}
	}
	return LockFree, fmt.Errorf("unknown lock mode %q", s)
}

// SkillRecord is one skill's progress.
//
// Invariant: 0 <= Value <= MaxSkill.
type SkillRecord struct {
	Value    float64
	LastUsed time.Time
}

// Stats holds the derived STR/DEX/INT values.
type Stats struct {
	Str int
	Dex int
	Int int
}

// Get returns the stat on axis a.
func (s Stats) Get(a skill.Axis) int {
	switch a {
	case skill.Str:
		return s.Str
	case skill.Dex:
		return s.Dex
	case skill.Int:
		return s.Int
	}
	return 0
}

// Set assigns v to the stat on axis a.
func (s *Stats) Set(a skill.Axis, v int) {
	switch a {
	case skill.Str:
		s.Str = v
	case skill.Dex:
		s.Dex = v
	case skill.Int:
		s.Int = v
	}
}

// State is the mutable body of a Record. It is only ever handed out by value
// (Snapshot) or under the record's lock (Update, View).
type State struct {
	Name       string
	Skills     [skill.Count]SkillRecord
	HP         float64
	MaxHP      float64
	Mana       float64
	MaxMana    float64
	Stamina    float64
	MaxStamina float64
	Stats      Stats
	Locks      [skill.AxisCount]LockMode
	Language   string
}

// Skill returns the value of skill id, or 0 for an unknown id.
func (s *State) Skill(id skill.ID) float64 {
	if !id.Valid() {
		return 0
	}
	return s.Skills[id].Value
}

// TotalSkill returns the sum of every skill value.
func (s *State) TotalSkill() float64 {
	var total float64
	for _, sr := range s.Skills {
		total += sr.Value
	}
	return total
}

// normalize enforces every State invariant in place.
func (s *State) normalize() {
	for i := range s.Skills {
		s.Skills[i].Value = clampFloat(s.Skills[i].Value, 0, MaxSkill)
	}
	s.MaxHP = clampFloat(s.MaxHP, 0, math.MaxFloat64)
	s.MaxMana = clampFloat(s.MaxMana, 0, math.MaxFloat64)
	s.MaxStamina = clampFloat(s.MaxStamina, 0, math.MaxFloat64)
	s.HP = clampFloat(s.HP, 0, s.MaxHP)
	s.Mana = clampFloat(s.Mana, 0, s.MaxMana)
	s.Stamina = clampFloat(s.Stamina, 0, s.MaxStamina)
	for a := skill.Str; a < skill.AxisCount; a++ {
		s.Stats.Set(a, clampInt(s.Stats.Get(a), 0, MaxStat))
	}
	if s.Language == "" {
		s.Language = DefaultLanguage
	}
}

// Record is the in-memory authoritative state of one online player.
//
// All methods are safe for concurrent use. Compound read-modify-write work
// goes through Update so it runs under a single lock acquisition.
type Record struct {
	id Identity

	mu      sync.RWMutex
	state   State
	version uint64 // bumped by every mutation
	saved   uint64 // version captured by the last successful persist
}

// New returns a record for id with every skill at 0, last used at now.
//
// Postcondition: the record is dirty (it has never been persisted).
func New(id Identity, name string, now time.Time) *Record {
	r := &Record{id: id, version: 1}
	r.state.Name = name
	for i := range r.state.Skills {
		r.state.Skills[i].LastUsed = now
	}
	r.state.normalize()
	return r
}

// ID returns the player's identity.
func (r *Record) ID() Identity { return r.id }

// Name returns the display name.
func (r *Record) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Name
}

// Language returns the player's message locale.
func (r *Record) Language() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Language
}

// Snapshot returns a copy of the current state.
func (r *Record) Snapshot() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// View runs fn with read access to the state. fn must not retain or modify s.
func (r *Record) View(fn func(s *State)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(&r.state)
}

// Update runs fn with exclusive access to the state, then re-establishes all
// invariants and marks the record dirty.
//
// Postcondition: every skill is in [0, 100]; HP, mana and stamina are within
// their maxima; Dirty() is true.
func (r *Record) Update(fn func(s *State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.state)
	r.state.normalize()
	r.version++
}

// UpdateIf is Update for work that may turn out to be a no-op: the record is
// only marked dirty when fn reports a change.
func (r *Record) UpdateIf(fn func(s *State) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !fn(&r.state) {
		return false
	}
	r.state.normalize()
	r.version++
	return true
}

// Dirty reports whether the record changed since the last successful save.
func (r *Record) Dirty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version != r.saved
}

// MarkSaved records that the state captured at version was persisted. If the
// record was mutated after that capture it stays dirty.
func (r *Record) MarkSaved(version uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if version > r.saved {
		r.saved = version
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
