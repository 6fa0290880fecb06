// Package skill defines the closed catalog of trainable skills. The catalog is
// fixed data: each skill carries a display name, a category, and the weights
// it contributes to the STR, DEX and INT derivations.
package skill

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSkill is returned when a skill key does not name a catalog entry.
var ErrUnknownSkill = errors.New("unknown skill")

// ID identifies a catalog skill. IDs are dense in [0, Count) and stable: they
// are the deterministic tie-break when two skills share a last-used time.
type ID uint8

const (
	Swordsmanship ID = iota
	MaceFighting
	Fencing
	Archery
	Wrestling
	Tactics
	Anatomy
	Parrying
	Healing
	Magery
	EvaluatingIntelligence
	Meditation
	MagicResist
	Inscription
	Mining
	Lumberjacking
	Fishing
	Blacksmithy
	Carpentry
	Tailoring
	Alchemy
	Cooking
	Hiding
	Stealth
	Stealing
	Snooping
	Lockpicking
	AnimalTaming
	AnimalLore
	Veterinary
	Count // sentinel
)

// Category groups skills for summaries and UI.
type Category string

const (
	CategoryCombat    Category = "combat"
	CategoryMagic     Category = "magic"
	CategoryGathering Category = "gathering"
	CategoryCrafting  Category = "crafting"
	CategoryThievery  Category = "thievery"
	CategoryTaming    Category = "taming"
)

// Axis is one of the three derived stats.
type Axis uint8

const (
	Str Axis = iota
	Dex
	Int
	AxisCount // sentinel
)

// String returns the short stat name.
func (a Axis) String() string {
	switch a {
	case Str:
		return "str"
	case Dex:
		return "dex"
	case Int:
		return "int"
	default:
		return fmt.Sprintf("axis(%d)", uint8(a))
	}
}

// Entry is an immutable catalog row.
type Entry struct {
	ID       ID
	Key      string
	Name     string
	Category Category
	Weights  [AxisCount]float64
}

// Weight returns the entry's contribution weight on axis.
func (e Entry) Weight(a Axis) float64 {
	if a >= AxisCount {
		return 0
	}
	return e.Weights[a]
}

func w(str, dex, in float64) [AxisCount]float64 { return [AxisCount]float64{str, dex, in} }

var table = [Count]Entry{
	{Swordsmanship, "swordsmanship", "Swordsmanship", CategoryCombat, w(0.75, 0.25, 0)},
	{MaceFighting, "mace_fighting", "Mace Fighting", CategoryCombat, w(0.9, 0.1, 0)},
	{Fencing, "fencing", "Fencing", CategoryCombat, w(0.45, 0.55, 0)},
	{Archery, "archery", "Archery", CategoryCombat, w(0.25, 0.75, 0)},
	{Wrestling, "wrestling", "Wrestling", CategoryCombat, w(0.9, 0.1, 0)},
	{Tactics, "tactics", "Tactics", CategoryCombat, w(0.25, 0.25, 0)},
	{Anatomy, "anatomy", "Anatomy", CategoryCombat, w(0.25, 0.25, 0.5)},
	{Parrying, "parrying", "Parrying", CategoryCombat, w(0.75, 0.25, 0)},
	{Healing, "healing", "Healing", CategoryCombat, w(0, 0.6, 0.4)},
	{Magery, "magery", "Magery", CategoryMagic, w(0, 0, 1)},
	{EvaluatingIntelligence, "evaluating_intelligence", "Evaluating Intelligence", CategoryMagic, w(0, 0, 1)},
	{Meditation, "meditation", "Meditation", CategoryMagic, w(0, 0, 0.5)},
	{MagicResist, "magic_resist", "Resisting Spells", CategoryMagic, w(0.5, 0, 0.5)},
	{Inscription, "inscription", "Inscription", CategoryMagic, w(0, 0.2, 0.8)},
	{Mining, "mining", "Mining", CategoryGathering, w(1, 0, 0)},
	{Lumberjacking, "lumberjacking", "Lumberjacking", CategoryGathering, w(0.8, 0.2, 0)},
	{Fishing, "fishing", "Fishing", CategoryGathering, w(0.5, 0.5, 0)},
	{Blacksmithy, "blacksmithy", "Blacksmithy", CategoryCrafting, w(1, 0, 0)},
	{Carpentry, "carpentry", "Carpentry", CategoryCrafting, w(0.75, 0.25, 0)},
	{Tailoring, "tailoring", "Tailoring", CategoryCrafting, w(0.4, 0.6, 0)},
	{Alchemy, "alchemy", "Alchemy", CategoryCrafting, w(0, 0.5, 0.5)},
	{Cooking, "cooking", "Cooking", CategoryCrafting, w(0, 0.3, 0.7)},
	{Hiding, "hiding", "Hiding", CategoryThievery, w(0, 0.8, 0.2)},
	{Stealth, "stealth", "Stealth", CategoryThievery, w(0, 0.9, 0.1)},
	{Stealing, "stealing", "Stealing", CategoryThievery, w(0, 1, 0)},
	{Snooping, "snooping", "Snooping", CategoryThievery, w(0, 0.75, 0.25)},
	{Lockpicking, "lockpicking", "Lockpicking", CategoryThievery, w(0, 0.75, 0.25)},
	{AnimalTaming, "animal_taming", "Animal Taming", CategoryTaming, w(0.3, 0, 0.7)},
	{AnimalLore, "animal_lore", "Animal Lore", CategoryTaming, w(0, 0, 1)},
	{Veterinary, "veterinary", "Veterinary", CategoryTaming, w(0, 0.6, 0.4)},
}

var byKey = func() map[string]ID {
	m := make(map[string]ID, Count)
	for i, e := range table {
		if e.ID != ID(i) {
			panic(fmt.Sprintf("skill: catalog row %d holds id %d", i, e.ID))
		}
		if _, dup := m[e.Key]; dup {
			panic("skill: duplicate catalog key " + e.Key)
		}
		m[e.Key] = e.ID
	}
	return m
}()

// Valid reports whether id names a catalog entry.
func (id ID) Valid() bool { return id < Count }

// String returns the stable key of id, e.g. "mace_fighting".
func (id ID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("skill(%d)", uint8(id))
	}
	return table[id].Key
}

// Lookup returns the catalog entry for id.
//
// Postcondition: ok is false iff id is outside the catalog.
func Lookup(id ID) (Entry, bool) {
	if !id.Valid() {
		return Entry{}, false
	}
	return table[id], true
}

// ByKey resolves a stable key (case-insensitive) to its ID.
//
// Postcondition: Returns ErrUnknownSkill when key is not in the catalog.
func ByKey(key string) (ID, error) {
	id, ok := byKey[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSkill, key)
	}
	return id, nil
}

// All returns every catalog entry ordered by ID.
func All() []Entry {
	out := make([]Entry, Count)
	copy(out, table[:])
	return out
}

// InCategory returns the IDs belonging to c, ordered by ID.
func InCategory(c Category) []ID {
	var ids []ID
	for _, e := range table {
		if e.Category == c {
			ids = append(ids, e.ID)
		}
	}
	return ids
}
