// Package equipment supplies the read-only equipment inputs of an attack: a
// weapon's base damage and governing skill, its craft quality multiplier, the
// aggregated damage increase of enchantments, and the guard a defender holds.
package equipment

import (
	"fmt"
	"strings"
)

// Quality is a craft-quality tier.
type Quality uint8

const (
	QualityNormal Quality = iota
	QualityLow
	QualityExceptional
	QualityMasterwork
)

var qualityInfo = [...]struct {
	name string
	mod  float64
}{
	QualityNormal:      {"normal", 1.0},
	QualityLow:         {"low", 0.85},
	QualityExceptional: {"exceptional", 1.15},
	QualityMasterwork:  {"masterwork", 1.30},
}

// String returns the tier name.
func (q Quality) String() string {
	if int(q) < len(qualityInfo) {
		return qualityInfo[q].name
	}
	return fmt.Sprintf("quality(%d)", uint8(q))
}

// Multiplier returns the damage multiplier of the tier; unknown tiers count as
// normal.
func (q Quality) Multiplier() float64 {
	if int(q) < len(qualityInfo) {
		return qualityInfo[q].mod
	}
	return 1.0
}

// ParseQuality resolves a tier by name, case-insensitively. Unknown or empty
// names resolve to QualityNormal.
func ParseQuality(name string) Quality {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, info := range qualityInfo {
		if info.name == name {
			return Quality(i)
		}
	}
	return QualityNormal
}

// Guard is what a defender can parry with.
type Guard uint8

const (
	GuardUnarmed Guard = iota
	GuardWeapon
	GuardShield
)

var guardNames = [...]string{"unarmed", "weapon", "shield"}

// String returns the guard name.
func (g Guard) String() string {
	if int(g) < len(guardNames) {
		return guardNames[g]
	}
	return fmt.Sprintf("guard(%d)", uint8(g))
}

// ParseGuard resolves a guard by name. Unknown names are an error.
func ParseGuard(name string) (Guard, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range guardNames {
		if n == name {
			return Guard(i), nil
		}
	}
	return GuardUnarmed, fmt.Errorf("unknown guard %q", name)
}

// AggregateDI sums enchantment damage-increase percentages and clamps the
// total to [0, limit].
func AggregateDI(limit float64, bonuses ...float64) float64 {
	var total float64
	for _, b := range bonuses {
		total += b
	}
	return min(max(total, 0), max(limit, 0))
}
