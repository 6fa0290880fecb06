package equipment

import (
	"fmt"
	"sort"

	"github.com/cory-johannsen/skillforge/internal/game/dice"
)

// Registry indexes weapon definitions by ID. It is immutable after
// construction and safe for concurrent reads.
type Registry struct {
	weapons map[string]*WeaponDef
	diCap   float64
}

// NewRegistry indexes weapons and the built-in unarmed weapon. diCap bounds
// AggregateDI for every loadout resolved through the registry.
//
// Postcondition: returns an error if two weapons share an ID.
func NewRegistry(weapons []*WeaponDef, diCap float64) (*Registry, error) {
	r := &Registry{weapons: make(map[string]*WeaponDef, len(weapons)+1), diCap: diCap}
	r.weapons[UnarmedID] = Unarmed()
	for _, w := range weapons {
		if _, dup := r.weapons[w.ID]; dup {
			return nil, fmt.Errorf("equipment: weapon ID %q already registered", w.ID)
		}
		r.weapons[w.ID] = w
	}
	return r, nil
}

// Weapon returns the definition for id and whether it exists.
func (r *Registry) Weapon(id string) (*WeaponDef, bool) {
	w, ok := r.weapons[id]
	return w, ok
}

// IDs returns every registered weapon ID, sorted.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.weapons))
	for id := range r.weapons {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Loadout is what an attacker swings with: a weapon ID, its quality tier name
// and the damage-increase percentages of its enchantments.
type Loadout struct {
	WeaponID    string
	Quality     string
	Enchantment []float64
}

// Strike is a Loadout resolved against the registry and rolled.
type Strike struct {
	Weapon         *WeaponDef
	BaseDamage     float64
	Quality        Quality
	DamageIncrease float64
}

// Resolve rolls l's weapon damage. An unknown or empty weapon ID falls back
// to the unarmed weapon.
func (r *Registry) Resolve(l Loadout, roller *dice.Roller) Strike {
	w, ok := r.weapons[l.WeaponID]
	if !ok {
		w = r.weapons[UnarmedID]
	}
	return Strike{
		Weapon:         w,
		BaseDamage:     float64(roller.Roll(w.Damage()).Total()),
		Quality:        ParseQuality(l.Quality),
		DamageIncrease: AggregateDI(r.diCap, l.Enchantment...),
	}
}
