package scripting_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skillforge/internal/game/player"
	"github.com/cory-johannsen/skillforge/internal/game/stats"
	"github.com/cory-johannsen/skillforge/internal/scripting"
)

var bases = scripting.Bases{Mana: 20, Stamina: 100}

func fallback() stats.PoolFormula {
	return stats.DefaultPools{Config: stats.DefaultConfig()}
}

func newManager(t *testing.T, src string) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	m := scripting.NewManager(bases, 1000, zap.New(core))
	t.Cleanup(m.Close)
	require.NoError(t, m.LoadString("test", src))
	return m, logs
}

func writeTempLua(t *testing.T, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0644))
	return dir
}

func TestManager_CallNumber(t *testing.T) {
	m, _ := newManager(t, `function add(a, b) return a + b end`)
	v, ok := m.CallNumber("add", 3, 4)
	require.True(t, ok)
	assert.Equal(t, 7.0, v)
	assert.True(t, m.HasHook("add"))
	assert.False(t, m.HasHook("missing"))

	_, ok = m.CallNumber("missing")
	assert.False(t, ok)
}

func TestManager_EngineModule(t *testing.T) {
	m, logs := newManager(t, `
		function f()
			engine.log("hello")
			return engine.clamp(engine.base_mana + engine.base_stamina, 0, 50)
		end
	`)
	v, ok := m.CallNumber("f")
	require.True(t, ok)
	assert.Equal(t, 50.0, v)
	assert.Equal(t, 1, logs.FilterMessage("script log").Len())
}

func TestManager_FailuresAreContained(t *testing.T) {
	m, logs := newManager(t, `
		function boom() error("kaboom") end
		function text() return "ten" end
		function spin() while true do end end
		function ok() return 1 end
	`)
	for _, hook := range []string{"boom", "text", "spin"} {
		_, ok := m.CallNumber(hook)
		assert.False(t, ok, hook)
	}
	assert.Equal(t, 2, logs.FilterMessage("script hook failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("script hook returned a non-number").Len())

	v, ok := m.CallNumber("ok")
	require.True(t, ok, "each call gets a fresh instruction budget")
	assert.Equal(t, 1.0, v)
}

func TestManager_LoadDir(t *testing.T) {
	dir := writeTempLua(t, "a.lua", `function one() return 1 end`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`function two() return one() + 1 end`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`not lua`), 0644))

	m := scripting.NewManager(bases, 0, zaptest.NewLogger(t))
	defer m.Close()
	require.NoError(t, m.LoadDir(dir))
	v, ok := m.CallNumber("two")
	require.True(t, ok)
	assert.Equal(t, 2.0, v)
}

func TestManager_LoadErrors(t *testing.T) {
	m := scripting.NewManager(bases, 0, zaptest.NewLogger(t))
	defer m.Close()

	assert.Error(t, m.LoadDir(filepath.Join(t.TempDir(), "absent")))
	err := m.LoadDir(writeTempLua(t, "bad.lua", `function (`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.lua")
	assert.Error(t, m.LoadString("loop", `while true do end`))
}

func TestPools_UsesHooks(t *testing.T) {
	m, _ := newManager(t, `
		function max_mana(str, dex, int) return engine.base_mana + int end
		function max_stamina(str, dex, int) return str + dex end
	`)
	p := scripting.NewPools(m, fallback(), zaptest.NewLogger(t))
	st := player.Stats{Str: 40, Dex: 30, Int: 25}
	assert.Equal(t, 45.0, p.MaxMana(st))
	assert.Equal(t, 70.0, p.MaxStamina(st))
}

func TestPools_FallsBackPerHook(t *testing.T) {
	m, _ := newManager(t, `
		function max_mana(str, dex, int) return -5 end
	`)
	core, logs := observer.New(zap.DebugLevel)
	p := scripting.NewPools(m, fallback(), zap.New(core))
	st := player.Stats{Str: 40, Dex: 30, Int: 25}
	assert.Equal(t, 20.0, p.MaxMana(st), "negative result falls back")
	assert.Equal(t, 130.0, p.MaxStamina(st), "missing hook falls back")
	assert.Equal(t, 1, logs.FilterMessage("pool hook returned a negative maximum").Len())
	assert.Equal(t, 1, logs.FilterMessage("pool hook not defined, using built-in formula").Len())
}

func TestPools_ShippedScripts(t *testing.T) {
	m := scripting.NewManager(bases, 0, zaptest.NewLogger(t))
	defer m.Close()
	require.NoError(t, m.LoadDir("../../content/scripts"))
	p := scripting.NewPools(m, fallback(), zaptest.NewLogger(t))

	st := player.Stats{Str: 10, Dex: 150, Int: 41}
	assert.Equal(t, 40.0, p.MaxMana(st))
	assert.Equal(t, 200.0, p.MaxStamina(st))
}

func TestLoadPools(t *testing.T) {
	p, m, err := scripting.LoadPools("../../content/scripts", stats.DefaultConfig(), 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, 25.0, p.MaxMana(player.Stats{Int: 10}))

	_, _, err = scripting.LoadPools(writeTempLua(t, "broken.lua", "function ("), stats.DefaultConfig(), 0, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestPools_DrivesDeriver(t *testing.T) {
	m, _ := newManager(t, `function max_mana(str, dex, int) return 10 + int end`)
	d := stats.NewDeriver(stats.DefaultConfig(), scripting.NewPools(m, fallback(), zaptest.NewLogger(t)))

	var s player.State
	for i := range s.Skills {
		s.Skills[i].Value = 50
	}
	d.Recompute(&s)
	assert.Equal(t, 60.0, s.MaxMana)
	assert.Equal(t, 150.0, s.MaxStamina)
}

func TestPools_PropertyNeverNegative(t *testing.T) {
	m := scripting.NewManager(bases, 0, zaptest.NewLogger(t))
	defer m.Close()
	require.NoError(t, m.LoadString("signed", `
		function max_mana(str, dex, int) return str - dex end
		function max_stamina(str, dex, int) return int - 50 end
	`))
	p := scripting.NewPools(m, fallback(), zaptest.NewLogger(t))
	rapid.Check(t, func(t *rapid.T) {
		st := player.Stats{
			Str: rapid.IntRange(0, 100).Draw(t, "str"),
			Dex: rapid.IntRange(0, 100).Draw(t, "dex"),
			Int: rapid.IntRange(0, 100).Draw(t, "int"),
		}
		if p.MaxMana(st) < 0 || p.MaxStamina(st) < 0 {
			t.Fatalf("negative maximum for %+v", st)
		}
	})
}
