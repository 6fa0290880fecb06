package dice_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skillforge/internal/game/dice"
)

func TestRollResult_Total(t *testing.T) {
	r := dice.RollResult{Expression: "2d6+3", Dice: []int{4, 5}, Modifier: 3}
	assert.Equal(t, 12, r.Total())
	assert.Equal(t, "2d6+3 → [4 5] +3 = 12", r.String())
}

func TestRollResult_String_PanicsOnEmptyExpression(t *testing.T) {
	assert.Panics(t, func() { _ = dice.RollResult{Dice: []int{1}}.String() })
}

func TestPercent_Property_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	rapid.Check(t, func(rt *rapid.T) {
		p := dice.Percent(src)
		assert.GreaterOrEqual(rt, p, 0.0)
		assert.Less(rt, p, 100.0)
	})
}

func TestFixedSource_ReplaysPercentiles(t *testing.T) {
	src := dice.NewFixedSource(9.5, 10, 99.99)
	assert.InDelta(t, 9.5, dice.Percent(src), 0.001)
	assert.InDelta(t, 10.0, dice.Percent(src), 0.001)
	assert.InDelta(t, 99.99, dice.Percent(src), 0.02)
	// exhausted queue repeats the last value
	assert.InDelta(t, 99.99, dice.Percent(src), 0.02)
	assert.Equal(t, 4, src.Draws())
}

func TestFixedSource_Property_IntnInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := rapid.Float64Range(0, 99.999).Draw(rt, "p")
		n := rapid.IntRange(1, 1000).Draw(rt, "n")
		v := dice.NewFixedSource(p).Intn(n)
		assert.GreaterOrEqual(rt, v, 0)
		assert.Less(rt, v, n)
	})
}

func TestSeededSource_Deterministic(t *testing.T) {
	a := dice.NewSeededSource(42)
	b := dice.NewSeededSource(42)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Intn(1000), b.Intn(1000))
	}
}

func TestCryptoSource_PanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { dice.NewCryptoSource().Intn(0) })
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		count   int
		sides   int
		mod     int
		min     int
		max     int
		isRange bool
	}{
		{"d20", 1, 20, 0, 0, 0, false},
		{"2d6", 2, 6, 0, 0, 0, false},
		{"2d6+3", 2, 6, 3, 0, 0, false},
		{"4D8-2", 4, 8, -2, 0, 0, false},
		{"11-13", 0, 0, 0, 11, 13, true},
		{"7-7", 0, 0, 0, 7, 7, true},
	}
	for _, tc := range tests {
		e, err := dice.Parse(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.isRange, e.IsRange(), tc.in)
		assert.Equal(t, tc.count, e.Count, tc.in)
		assert.Equal(t, tc.sides, e.Sides, tc.in)
		assert.Equal(t, tc.mod, e.Modifier, tc.in)
		assert.Equal(t, tc.min, e.Min, tc.in)
		assert.Equal(t, tc.max, e.Max, tc.in)
	}
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{"", "abc", "0d6", "2d1", "13-11", "0-0", "2d6+"} {
		_, err := dice.Parse(in)
		assert.Error(t, err, "expected error for %q", in)
	}
}

func TestParse_RejectsOversizedTerms(t *testing.T) {
	for _, in := range []string{
		"0-99999999999999999999",
		"0-9223372036854775807",
		"1-1000001",
		"99999999999999999999d6",
		"1001d6",
		"2d99999999999999999999",
		"2d6+99999999999999999999",
		"2d6-1000001",
	} {
		_, err := dice.Parse(in)
		assert.Error(t, err, "expected error for %q", in)
	}

	e, err := dice.Parse("0-1000000")
	require.NoError(t, err)
	assert.NotPanics(t, func() { dice.Roll(e, dice.NewSeededSource(1)) })
	_, err = dice.Parse("1000d1000000+1000000")
	assert.NoError(t, err)
}

func TestRoll_Property_WithinBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 6).Draw(rt, "count")
		sides := rapid.IntRange(2, 20).Draw(rt, "sides")
		mod := rapid.IntRange(-5, 5).Draw(rt, "mod")
		e := dice.Expression{Raw: "x", Count: count, Sides: sides, Modifier: mod}
		lo, hi := e.Bounds()
		total := dice.Roll(e, dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed"))).Total()
		assert.GreaterOrEqual(rt, total, lo)
		assert.LessOrEqual(rt, total, hi)
	})
}

func TestRoll_Range_WithinBounds(t *testing.T) {
	e := dice.MustParse("11-13")
	src := dice.NewSeededSource(7)
	for i := 0; i < 200; i++ {
		v := dice.Roll(e, src).Total()
		assert.GreaterOrEqual(t, v, 11)
		assert.LessOrEqual(t, v, 13)
	}
}

func TestRoller_Check_LogsAndCompares(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := dice.NewLoggedRoller(dice.NewFixedSource(40, 40), zap.New(core))

	roll, ok := r.Check("parry", 40)
	assert.InDelta(t, 40.0, roll, 0.001)
	assert.False(t, ok, "roll equal to chance must fail")

	_, ok = r.Check("parry", 40.01)
	assert.True(t, ok)

	require.Len(t, logs.All(), 2)
	assert.True(t, strings.Contains(logs.All()[0].Message, "percentile"))
	assert.Equal(t, "parry", logs.All()[0].ContextMap()["purpose"])
}
