package scripting

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/skillforge/internal/game/player"
	"github.com/cory-johannsen/skillforge/internal/game/stats"
)

// Hook names looked up by Pools. Each receives (str, dex, int).
const (
	HookMaxMana    = "max_mana"
	HookMaxStamina = "max_stamina"
)

// Pools is a stats.PoolFormula whose maxima come from script hooks, falling
// back per call to another formula when a hook is absent or fails.
type Pools struct {
	scripts  *Manager
	fallback stats.PoolFormula
	logger   *zap.Logger
}

// NewPools returns a Pools over scripts.
//
// Precondition: scripts and fallback must be non-nil.
func NewPools(scripts *Manager, fallback stats.PoolFormula, logger *zap.Logger) *Pools {
	p := &Pools{scripts: scripts, fallback: fallback, logger: logger.Named("pools")}
	for _, hook := range []string{HookMaxMana, HookMaxStamina} {
		if !scripts.HasHook(hook) {
			p.logger.Info("pool hook not defined, using built-in formula", zap.String("hook", hook))
		}
	}
	return p
}

// MaxMana implements stats.PoolFormula.
func (p *Pools) MaxMana(st player.Stats) float64 {
	if v, ok := p.call(HookMaxMana, st); ok {
		return v
	}
	return p.fallback.MaxMana(st)
}

// MaxStamina implements stats.PoolFormula.
func (p *Pools) MaxStamina(st player.Stats) float64 {
	if v, ok := p.call(HookMaxStamina, st); ok {
		return v
	}
	return p.fallback.MaxStamina(st)
}

func (p *Pools) call(hook string, st player.Stats) (float64, bool) {
	v, ok := p.scripts.CallNumber(hook, float64(st.Str), float64(st.Dex), float64(st.Int))
	if !ok {
		return 0, false
	}
	if v < 0 {
		p.logger.Warn("pool hook returned a negative maximum",
			zap.String("hook", hook),
			zap.Float64("value", v),
		)
		return 0, false
	}
	return v, true
}

// LoadPools builds a Manager over every script in dir and wraps it in Pools
// with bases taken from cfg. The caller must Close the returned Manager.
//
// Postcondition: on error no Manager is left open.
func LoadPools(dir string, cfg stats.Config, instLimit int, logger *zap.Logger) (*Pools, *Manager, error) {
	scripts := NewManager(Bases{Mana: cfg.BaseMana, Stamina: cfg.BaseStamina}, instLimit, logger)
	if err := scripts.LoadDir(dir); err != nil {
		scripts.Close()
		return nil, nil, err
	}
	return NewPools(scripts, stats.DefaultPools{Config: cfg}, logger), scripts, nil
}
