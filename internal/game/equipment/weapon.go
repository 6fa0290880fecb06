package equipment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skillforge/internal/game/dice"
	"github.com/cory-johannsen/skillforge/internal/game/skill"
)

// UnarmedID is the ID of the built-in weapon used when nothing is wielded.
const UnarmedID = "unarmed"

// WeaponDef defines the static properties of a weapon loaded from YAML.
type WeaponDef struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	DamageDice string `yaml:"damage_dice"`
	Skill      string `yaml:"skill"`
	Ranged     bool   `yaml:"ranged"`

	damage  dice.Expression
	skillID skill.ID
}

// Validate checks the definition and resolves its dice expression and skill.
//
// Precondition: w is non-nil.
// Postcondition: returns nil iff every field is valid; on nil, Damage and
// SkillID are usable.
func (w *WeaponDef) Validate() error {
	var errs []error
	if w.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if w.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	expr, err := dice.Parse(w.DamageDice)
	if err != nil {
		errs = append(errs, fmt.Errorf("damage_dice: %w", err))
	}
	id, err := skill.ByKey(w.Skill)
	if err != nil {
		errs = append(errs, fmt.Errorf("skill: %w", err))
	} else if e, _ := skill.Lookup(id); e.Category != skill.CategoryCombat {
		errs = append(errs, fmt.Errorf("skill %q is not a combat skill", w.Skill))
	}
	if len(errs) > 0 {
		return fmt.Errorf("weapon %q: %w", w.ID, errors.Join(errs...))
	}
	w.damage, w.skillID = expr, id
	return nil
}

// Damage returns the parsed damage expression.
func (w *WeaponDef) Damage() dice.Expression { return w.damage }

// SkillID returns the skill the weapon trains.
func (w *WeaponDef) SkillID() skill.ID { return w.skillID }

// Unarmed returns the built-in fist weapon: 1d4 trained by Wrestling.
func Unarmed() *WeaponDef {
	w := &WeaponDef{ID: UnarmedID, Name: "Fists", DamageDice: "1d4", Skill: skill.Wrestling.String()}
	if err := w.Validate(); err != nil {
		panic(err)
	}
	return w
}

// LoadWeaponFromBytes parses and validates one weapon definition.
func LoadWeaponFromBytes(data []byte) (*WeaponDef, error) {
	var w WeaponDef
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parsing weapon YAML: %w", err)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// LoadWeapons reads all *.yaml files from dir, parses each as a WeaponDef,
// validates it, and returns the collected slice.
//
// Precondition: dir is a readable directory path.
// Postcondition: returns all valid WeaponDefs or the first encountered error.
func LoadWeapons(dir string) ([]*WeaponDef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading weapons dir %q: %w", dir, err)
	}
	var weapons []*WeaponDef
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		w, err := LoadWeaponFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		weapons = append(weapons, w)
	}
	return weapons, nil
}
