// Package progression implements use-based skill gain: the gain-chance curve,
// total-cap enforcement by least-recently-used eviction, administrative skill
// sets and pass/fail skill checks.
package progression

import (
	"errors"
	"fmt"
)

// Config holds the progression tuning constants. Chances are in percent.
type Config struct {
	TotalCap       float64
	GainAmount     float64
	MinChance      float64
	MaxChance      float64
	OptimalBand    float64
	HardModifier   float64
	EasyModifier   float64
	SuccessFloor   float64
	SuccessCeiling float64
}

// DefaultConfig returns the reference tuning: a 700 point cap, 0.1 per gain,
// gain chance within [0.1, 50] and a ±20 optimal difficulty band.
func DefaultConfig() Config {
	return Config{
		TotalCap:       700,
		GainAmount:     0.1,
		MinChance:      0.1,
		MaxChance:      50,
		OptimalBand:    20,
		HardModifier:   0.5,
		EasyModifier:   0.2,
		SuccessFloor:   5,
		SuccessCeiling: 95,
	}
}

// Validate reports every out-of-range setting.
func (c Config) Validate() error {
	var errs []error
	if c.TotalCap <= 0 {
		errs = append(errs, fmt.Errorf("total_skill_cap must be > 0, got %v", c.TotalCap))
	}
	if c.GainAmount <= 0 || c.GainAmount > 100 {
		errs = append(errs, fmt.Errorf("gain_amount must be in (0, 100], got %v", c.GainAmount))
	}
	if c.MinChance < 0 || c.MinChance > c.MaxChance || c.MaxChance > 100 {
		errs = append(errs, fmt.Errorf("gain chance bounds must satisfy 0 <= min <= max <= 100, got [%v, %v]", c.MinChance, c.MaxChance))
	}
	if c.OptimalBand < 0 {
		errs = append(errs, fmt.Errorf("optimal_band must be >= 0, got %v", c.OptimalBand))
	}
	if c.HardModifier < 0 || c.EasyModifier < 0 {
		errs = append(errs, errors.New("difficulty modifiers must be >= 0"))
	}
	if c.SuccessFloor < 0 || c.SuccessFloor > c.SuccessCeiling || c.SuccessCeiling > 100 {
		errs = append(errs, fmt.Errorf("success bounds must satisfy 0 <= floor <= ceiling <= 100, got [%v, %v]", c.SuccessFloor, c.SuccessCeiling))
	}
	return errors.Join(errs...)
}

// DifficultyModifier scales the base gain chance by how far difficulty sits
// from the current skill value: tasks far above it halve the chance, tasks far
// below it cut it to a fifth.
func (c Config) DifficultyModifier(value float64, difficulty int) float64 {
	diff := float64(difficulty) - value
	switch {
	case diff > c.OptimalBand:
		return c.HardModifier
	case diff < -c.OptimalBand:
		return c.EasyModifier
	default:
		return 1.0
	}
}

// GainChance returns the percent chance that an attempt at difficulty raises a
// skill currently at value. A maxed skill has no chance.
//
// Postcondition: 0 when value >= 100, otherwise within [MinChance, MaxChance].
func (c Config) GainChance(value float64, difficulty int) float64 {
	if value >= 100 {
		return 0
	}
	base := (100 - value) / 10
	return clamp(base*c.DifficultyModifier(value, difficulty), c.MinChance, c.MaxChance)
}

// SuccessChance returns the percent chance that a skill at value passes a
// check at difficulty.
//
// Postcondition: within [SuccessFloor, SuccessCeiling].
func (c Config) SuccessChance(value float64, difficulty int) float64 {
	return clamp(50+value-float64(difficulty), c.SuccessFloor, c.SuccessCeiling)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
