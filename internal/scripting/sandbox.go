// Package scripting runs sandboxed GopherLua hooks that override the
// resource pool formulas. It depends on the game packages only through the
// stats.PoolFormula interface it implements.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit bounds the opcodes a single hook call or script
// load may execute when no limit is configured.
const DefaultInstructionLimit = 100_000

// poolLibs are the only standard libraries a pool script can reach.
var poolLibs = []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath}

// strippedGlobals are base functions that reach the filesystem, the loader or
// another chunk's environment.
var strippedGlobals = []string{
	"dofile", "loadfile", "load", "loadstring",
	"require", "module", "collectgarbage",
	"getfenv", "setfenv",
}

// budget is a context that cancels itself once the VM has polled Done more
// than its allowance. GopherLua polls Done once per opcode.
type budget struct {
	context.Context
	cancel context.CancelFunc
	left   atomic.Int64
}

func (b *budget) Done() <-chan struct{} {
	if b.left.Add(-1) < 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// newBudget returns a budget allowing ops opcodes.
//
// Precondition: ops > 0.
func newBudget(ops int) *budget {
	ctx, cancel := context.WithCancel(context.Background())
	b := &budget{Context: ctx, cancel: cancel}
	b.left.Store(int64(ops))
	return b
}

func effectiveLimit(instLimit int) int {
	if instLimit <= 0 {
		return DefaultInstructionLimit
	}
	return instLimit
}

// NewSandboxedState creates a VM with only poolLibs opened and
// strippedGlobals removed. It carries no instruction budget: code must run
// through a Manager, which installs a fresh one per call.
//
// Postcondition: the caller owns the returned LState and must Close it.
func NewSandboxedState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range poolLibs {
		open(L)
	}
	for _, name := range strippedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}
