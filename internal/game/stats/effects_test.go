package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skillforge/internal/game/player"
	"github.com/cory-johannsen/skillforge/internal/game/stats"
)

func TestEffectsOf(t *testing.T) {
	e := stats.EffectsOf(player.Stats{Str: 100, Dex: 40, Int: 20})
	assert.InDelta(t, 100.0, e.BonusHP, 1e-9)
	assert.InDelta(t, 10.0, e.GatherSpeed, 1e-9)
	assert.InDelta(t, 20.0, e.AttackSpeed, 1e-9)
	assert.InDelta(t, 4.0, e.MovementSpeed, 1e-9)
	assert.InDelta(t, 10.0, e.ManaCostReduction, 1e-9)
	assert.InDelta(t, 4.0, e.CastSuccessBonus, 1e-9)
}

func TestManaCost(t *testing.T) {
	assert.InDelta(t, 10.0, stats.ManaCost(20, 100), 1e-9)
	assert.InDelta(t, 20.0, stats.ManaCost(20, 0), 1e-9)
}

func TestManaCost_Property_NeverExceedsBase(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := rapid.Float64Range(0, 500).Draw(rt, "base")
		in := rapid.IntRange(0, player.MaxStat).Draw(rt, "int")
		cost := stats.ManaCost(base, in)
		assert.GreaterOrEqual(rt, cost, 0.0)
		assert.LessOrEqual(rt, cost, base)
	})
}
