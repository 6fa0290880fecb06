package scripting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Bases are the pool constants exposed to scripts as engine.base_*.
type Bases struct {
	Mana    float64
	Stamina float64
}

// Manager owns one sandboxed LState holding every loaded script.
//
// Manager is safe for concurrent use: the LState is single-threaded, so
// every call is serialized by mu.
type Manager struct {
	mu     sync.Mutex
	state  *lua.LState
	limit  int
	bases  Bases
	logger *zap.Logger
}

// NewManager creates a Manager with an empty VM.
//
// Precondition: logger must be non-nil; instLimit >= 0 (0 uses
// DefaultInstructionLimit).
// Postcondition: the engine module is registered.
func NewManager(bases Bases, instLimit int, logger *zap.Logger) *Manager {
	m := &Manager{
		limit:  effectiveLimit(instLimit),
		bases:  bases,
		logger: logger.Named("scripting"),
	}
	m.state = NewSandboxedState()
	m.RegisterModules(m.state)
	return m
}

// LoadDir executes every *.lua file in dir in lexicographic order.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns the first read or Lua load failure, naming the file.
func (m *Manager) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, path := range files {
		if err := m.withBudget(func() error { return m.state.DoFile(path) }); err != nil {
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}
	m.logger.Info("scripts loaded", zap.String("dir", dir), zap.Int("files", len(files)))
	return nil
}

// LoadString executes src as a chunk named name.
func (m *Manager) LoadString(name, src string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.withBudget(func() error { return m.state.DoString(src) }); err != nil {
		return fmt.Errorf("scripting: loading %q: %w", name, err)
	}
	return nil
}

// HasHook reports whether a global function named hook is defined.
func (m *Manager) HasHook(hook string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetGlobal(hook).Type() == lua.LTFunction
}

// CallNumber calls the global function hook with numeric args and returns its
// first result. ok is false when the hook is undefined, raises an error,
// exceeds the instruction limit, or returns anything but a finite number.
// Failures are logged at warn and never propagated.
func (m *Manager) CallNumber(hook string, args ...float64) (result float64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fn := m.state.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return 0, false
	}
	largs := make([]lua.LValue, len(args))
	for i, a := range args {
		largs[i] = lua.LNumber(a)
	}

	var ret lua.LValue
	err := m.withBudget(func() error {
		if err := m.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, largs...); err != nil {
			return err
		}
		ret = m.state.Get(-1)
		m.state.Pop(1)
		return nil
	})
	if err != nil {
		m.logger.Warn("script hook failed", zap.String("hook", hook), zap.Error(err))
		return 0, false
	}
	n, isNum := ret.(lua.LNumber)
	if !isNum || math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
		m.logger.Warn("script hook returned a non-number",
			zap.String("hook", hook),
			zap.String("type", ret.Type().String()),
		)
		return 0, false
	}
	return float64(n), true
}

// withBudget runs fn under a fresh instruction budget.
//
// Precondition: m.mu is held.
func (m *Manager) withBudget(fn func() error) error {
	b := newBudget(m.limit)
	defer b.cancel()
	m.state.SetContext(b)
	defer m.state.RemoveContext()
	return fn()
}

// Close releases the VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Close()
}
