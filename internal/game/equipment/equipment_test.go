package equipment_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skillforge/internal/game/dice"
	"github.com/cory-johannsen/skillforge/internal/game/equipment"
	"github.com/cory-johannsen/skillforge/internal/game/skill"
)

func TestQuality_Multipliers(t *testing.T) {
	assert.Equal(t, 0.85, equipment.ParseQuality("Low").Multiplier())
	assert.Equal(t, 1.0, equipment.ParseQuality("normal").Multiplier())
	assert.Equal(t, 1.15, equipment.ParseQuality("exceptional").Multiplier())
	assert.Equal(t, 1.30, equipment.ParseQuality(" MASTERWORK ").Multiplier())
	assert.Equal(t, equipment.QualityNormal, equipment.ParseQuality("legendary"))
	assert.Equal(t, equipment.QualityNormal, equipment.ParseQuality(""))
	assert.Equal(t, 1.0, equipment.Quality(42).Multiplier())
}

func TestParseGuard(t *testing.T) {
	g, err := equipment.ParseGuard("Shield")
	require.NoError(t, err)
	assert.Equal(t, equipment.GuardShield, g)
	_, err = equipment.ParseGuard("tower")
	assert.Error(t, err)
}

func TestAggregateDI(t *testing.T) {
	assert.Equal(t, 35.0, equipment.AggregateDI(100, 10, 25))
	assert.Equal(t, 100.0, equipment.AggregateDI(100, 60, 60))
	assert.Equal(t, 0.0, equipment.AggregateDI(100, -30, 10))
	assert.Equal(t, 0.0, equipment.AggregateDI(100))
}

func TestAggregateDI_Property_Bounded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		limit := rapid.Float64Range(0, 200).Draw(rt, "limit")
		bonuses := rapid.SliceOf(rapid.Float64Range(-50, 100)).Draw(rt, "bonuses")
		di := equipment.AggregateDI(limit, bonuses...)
		assert.GreaterOrEqual(rt, di, 0.0)
		assert.LessOrEqual(rt, di, limit)
	})
}

func TestWeaponDef_Validate(t *testing.T) {
	w := &equipment.WeaponDef{ID: "katana", Name: "Katana", DamageDice: "2d6+1", Skill: "swordsmanship"}
	require.NoError(t, w.Validate())
	assert.Equal(t, skill.Swordsmanship, w.SkillID())
	lo, hi := w.Damage().Bounds()
	assert.Equal(t, 3, lo)
	assert.Equal(t, 13, hi)

	assert.Error(t, (&equipment.WeaponDef{}).Validate())
	assert.Error(t, (&equipment.WeaponDef{ID: "x", Name: "X", DamageDice: "1d6", Skill: "mining"}).Validate(),
		"non-combat skill")
	assert.ErrorIs(t, (&equipment.WeaponDef{ID: "x", Name: "X", DamageDice: "1d6", Skill: "juggling"}).Validate(),
		skill.ErrUnknownSkill)
}

func TestLoadWeapons(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bow.yaml"), []byte(`id: bow
name: Bow
damage_dice: 11-13
skill: archery
ranged: true
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	weapons, err := equipment.LoadWeapons(dir)
	require.NoError(t, err)
	require.Len(t, weapons, 1)
	assert.True(t, weapons[0].Ranged)
	assert.Equal(t, skill.Archery, weapons[0].SkillID())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("id: broken\nname: Broken\ndamage_dice: d\nskill: archery\n"), 0o644))
	_, err = equipment.LoadWeapons(dir)
	assert.Error(t, err)
}

func TestLoadWeapons_ShippedContent(t *testing.T) {
	weapons, err := equipment.LoadWeapons("../../../content/weapons")
	require.NoError(t, err)
	_, err = equipment.NewRegistry(weapons, 100)
	require.NoError(t, err)
}

func TestRegistry_Resolve(t *testing.T) {
	bow, err := equipment.LoadWeaponFromBytes([]byte("id: bow\nname: Bow\ndamage_dice: 11-13\nskill: archery\nranged: true\n"))
	require.NoError(t, err)
	reg, err := equipment.NewRegistry([]*equipment.WeaponDef{bow}, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"bow", equipment.UnarmedID}, reg.IDs())

	roller := dice.NewLoggedRoller(dice.NewFixedSource(0), zaptest.NewLogger(t))
	s := reg.Resolve(equipment.Loadout{WeaponID: "bow", Quality: "exceptional", Enchantment: []float64{30, 40}}, roller)
	assert.Equal(t, bow, s.Weapon)
	assert.Equal(t, 11.0, s.BaseDamage)
	assert.Equal(t, equipment.QualityExceptional, s.Quality)
	assert.Equal(t, 50.0, s.DamageIncrease)

	s = reg.Resolve(equipment.Loadout{WeaponID: "nope"}, roller)
	assert.Equal(t, equipment.UnarmedID, s.Weapon.ID)
	assert.Equal(t, 1.0, s.BaseDamage)

	_, err = equipment.NewRegistry([]*equipment.WeaponDef{bow, bow}, 50)
	assert.Error(t, err)
}
