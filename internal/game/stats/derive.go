// Package stats derives STR/DEX/INT from weighted skill sums, the resource
// maxima that follow from them, and the gameplay effect curves.
package stats

import (
	"math"

	"github.com/cory-johannsen/skillforge/internal/game/player"
	"github.com/cory-johannsen/skillforge/internal/game/skill"
)

// floorEpsilon absorbs float accumulation error so that, for example, every
// weighted skill at 50 derives exactly 50 rather than 49.
const floorEpsilon = 1e-9

// Config holds the fixed bases of the resource pools.
type Config struct {
	BaseHP      float64
	BaseMana    float64
	BaseStamina float64
}

// DefaultConfig returns the reference bases: 100 HP, 20 mana, 100 stamina.
func DefaultConfig() Config {
	return Config{BaseHP: 100, BaseMana: 20, BaseStamina: 100}
}

// PoolFormula computes the mana and stamina maxima for a stat line. It is the
// hook through which scripted formulas replace the defaults.
type PoolFormula interface {
	MaxMana(st player.Stats) float64
	MaxStamina(st player.Stats) float64
}

// DefaultPools is the built-in PoolFormula: mana is a flat base and stamina
// is base plus DEX.
type DefaultPools struct {
	Config Config
}

// MaxMana returns the flat mana base.
func (p DefaultPools) MaxMana(player.Stats) float64 { return p.Config.BaseMana }

// MaxStamina returns base stamina plus one point per DEX.
func (p DefaultPools) MaxStamina(st player.Stats) float64 {
	return p.Config.BaseStamina + float64(st.Dex)
}

// DeriveStat computes the stat on axis a as the weight-averaged value of every
// skill with a nonzero weight on a, floored and clamped to [0, 100].
//
// Postcondition: a pure function of s.Skills; returns 0 when no skill weighs
// on a.
func DeriveStat(s *player.State, a skill.Axis) int {
	var weighted, total float64
	for id := skill.ID(0); id < skill.Count; id++ {
		e, _ := skill.Lookup(id)
		wt := e.Weight(a)
		if wt == 0 {
			continue
		}
		weighted += s.Skills[id].Value * wt
		total += wt
	}
	if total <= 0 {
		return 0
	}
	v := int(math.Floor(weighted/total + floorEpsilon))
	if v < 0 {
		return 0
	}
	if v > player.MaxStat {
		return player.MaxStat
	}
	return v
}

// Derive computes all three stats from s.
func Derive(s *player.State) player.Stats {
	var st player.Stats
	for a := skill.Str; a < skill.AxisCount; a++ {
		st.Set(a, DeriveStat(s, a))
	}
	return st
}

// Deriver applies derivation results to a player state.
type Deriver struct {
	cfg   Config
	pools PoolFormula
}

// NewDeriver returns a Deriver. A nil pools uses DefaultPools over cfg.
func NewDeriver(cfg Config, pools PoolFormula) *Deriver {
	if pools == nil {
		pools = DefaultPools{Config: cfg}
	}
	return &Deriver{cfg: cfg, pools: pools}
}

// MaxHP returns BaseHP plus one point per STR.
func (d *Deriver) MaxHP(st player.Stats) float64 {
	return d.cfg.BaseHP + BonusHP(st.Str)
}

// Recompute rederives the stats of s, honoring each axis' lock mode, then
// refreshes the pool maxima. It returns the stats before and after.
//
// Precondition: called under the record's write lock (from Record.Update).
func (d *Deriver) Recompute(s *player.State) (before, after player.Stats) {
	before = s.Stats
	derived := Derive(s)
	for a := skill.Str; a < skill.AxisCount; a++ {
		cur, next := before.Get(a), derived.Get(a)
		switch s.Locks[a] {
		case player.LockLocked:
			next = cur
		case player.LockUp:
			next = max(cur, next)
		case player.LockDown:
			next = min(cur, next)
		}
		s.Stats.Set(a, next)
	}
	d.UpdateMaxStats(s)
	return before, s.Stats
}

// UpdateMaxStats recomputes the HP, mana and stamina maxima from the current
// stats and pulls the current values inside the new bounds.
//
// Postcondition: 0 <= HP <= MaxHP, and likewise for mana and stamina.
func (d *Deriver) UpdateMaxStats(s *player.State) {
	s.MaxHP = nonNegative(d.MaxHP(s.Stats))
	s.MaxMana = nonNegative(d.pools.MaxMana(s.Stats))
	s.MaxStamina = nonNegative(d.pools.MaxStamina(s.Stats))
	s.HP = clamp(s.HP, 0, s.MaxHP)
	s.Mana = clamp(s.Mana, 0, s.MaxMana)
	s.Stamina = clamp(s.Stamina, 0, s.MaxStamina)
}

// Fill sets HP, mana and stamina to their maxima.
func Fill(s *player.State) {
	s.HP, s.Mana, s.Stamina = s.MaxHP, s.MaxMana, s.MaxStamina
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
