package scripting

import (
	"math"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules defines the engine table in L:
//
//	engine.base_mana, engine.base_stamina  configured pool bases
//	engine.clamp(v, lo, hi)                bounds v to [lo, hi]
//	engine.log(msg)                        debug log line
//
// Precondition: L must be from NewSandboxedState.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "base_mana", lua.LNumber(m.bases.Mana))
	L.SetField(engine, "base_stamina", lua.LNumber(m.bases.Stamina))
	L.SetField(engine, "clamp", L.NewFunction(luaClamp))
	L.SetField(engine, "log", L.NewFunction(func(L *lua.LState) int {
		m.logger.Debug("script log", zap.String("msg", L.CheckString(1)))
		return 0
	}))
	L.SetGlobal("engine", engine)
}

func luaClamp(L *lua.LState) int {
	v := float64(L.CheckNumber(1))
	lo := float64(L.CheckNumber(2))
	hi := float64(L.CheckNumber(3))
	L.Push(lua.LNumber(math.Min(math.Max(v, lo), hi)))
	return 1
}
