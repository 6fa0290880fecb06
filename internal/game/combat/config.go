// Package combat resolves attacks and defenses: hit chance, parry, critical
// hits, the tactics/anatomy damage pipeline and defense reduction, and the
// skill-gain triggers tied to each outcome.
package combat

import (
	"errors"
	"fmt"
	"math"

	"github.com/cory-johannsen/skillforge/internal/game/equipment"
)

// Config holds the combat tuning constants. Chances are in percent.
type Config struct {
	CritCap           float64
	CritMultiplier    float64
	DefenseConstant   float64
	HitFloor          float64
	HitCeiling        float64
	ShieldParryFactor float64
	ShieldParryCap    float64
	WeaponParryFactor float64
	WeaponParryCap    float64
	ResistCap         float64
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		CritCap:           50,
		CritMultiplier:    2.0,
		DefenseConstant:   50,
		HitFloor:          5,
		HitCeiling:        95,
		ShieldParryFactor: 0.5,
		ShieldParryCap:    50,
		WeaponParryFactor: 0.25,
		WeaponParryCap:    25,
		ResistCap:         50,
	}
}

// Validate reports every out-of-range setting.
func (c Config) Validate() error {
	var errs []error
	if c.CritCap < 0 || c.CritCap > 100 {
		errs = append(errs, fmt.Errorf("crit_cap must be in [0, 100], got %v", c.CritCap))
	}
	if c.CritMultiplier < 1 {
		errs = append(errs, fmt.Errorf("crit_multiplier must be >= 1, got %v", c.CritMultiplier))
	}
	if c.DefenseConstant <= 0 {
		errs = append(errs, fmt.Errorf("defense_constant must be > 0, got %v", c.DefenseConstant))
	}
	if c.HitFloor < 0 || c.HitFloor > c.HitCeiling || c.HitCeiling > 100 {
		errs = append(errs, fmt.Errorf("hit bounds must satisfy 0 <= floor <= ceiling <= 100, got [%v, %v]", c.HitFloor, c.HitCeiling))
	}
	if c.ShieldParryFactor < 0 || c.WeaponParryFactor < 0 || c.ShieldParryCap < 0 || c.WeaponParryCap < 0 {
		errs = append(errs, errors.New("parry factors and caps must be >= 0"))
	}
	if c.ShieldParryCap > 100 || c.WeaponParryCap > 100 {
		errs = append(errs, errors.New("parry caps must be <= 100"))
	}
	if c.ResistCap < 0 || c.ResistCap > 100 {
		errs = append(errs, fmt.Errorf("resist_cap must be in [0, 100], got %v", c.ResistCap))
	}
	return errors.Join(errs...)
}

// HitChance returns the percent chance that an attacker with weaponSkill hits
// a target with targetDefense.
//
// Postcondition: within [HitFloor, HitCeiling].
func (c Config) HitChance(weaponSkill float64, targetDefense int) float64 {
	return clamp(weaponSkill-float64(targetDefense)/2+50, c.HitFloor, c.HitCeiling)
}

// ParryChance returns the percent chance that a defender with parrySkill
// holding guard parries a physical blow. Unarmed defenders never parry.
func (c Config) ParryChance(parrySkill float64, guard equipment.Guard) float64 {
	switch guard {
	case equipment.GuardShield:
		return clamp(parrySkill*c.ShieldParryFactor, 0, c.ShieldParryCap)
	case equipment.GuardWeapon:
		return clamp(parrySkill*c.WeaponParryFactor, 0, c.WeaponParryCap)
	default:
		return 0
	}
}

// DefenseReduction returns the fraction of damage absorbed by defense,
// defense / (defense + DefenseConstant).
//
// Postcondition: within [0, 1); 0 for defense <= 0 or a degenerate constant.
func (c Config) DefenseReduction(defense int) float64 {
	d := float64(defense)
	denom := d + c.DefenseConstant
	if d <= 0 || denom <= 0 {
		return 0
	}
	return d / denom
}

// ResistReduction returns the percent of magical damage a defender with
// resistSkill shrugs off.
func (c Config) ResistReduction(resistSkill float64) float64 {
	return clamp(resistSkill/2, 0, c.ResistCap)
}

// CritChance returns the percent crit chance granted by the supporting skill
// (anatomy for weapons, evaluating intelligence for spells).
func (c Config) CritChance(supportSkill float64) float64 {
	return clamp(supportSkill/2, 0, c.CritCap)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
