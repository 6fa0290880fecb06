// Package health keeps the host game's native health bar in step with the
// internal HP scale. Conversions run one way per call: host damage flows in
// through ApplyIncomingHostDamage, and internal HP flows out through
// ProjectInternalHPToHost, which every mutation here ends with.
package health

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skillforge/internal/game/player"
)

// Host sets the health the host engine displays for a player.
type Host interface {
	SetHealth(id player.Identity, health float64)
}

// Config maps between the two health scales.
type Config struct {
	// HostMaxHealth is the host's full health bar.
	HostMaxHealth float64
	// HostDamageMultiplier converts one point of host damage into internal HP.
	HostDamageMultiplier float64
}

// DefaultConfig returns a 20 point host bar and a 5x damage multiplier.
func DefaultConfig() Config {
	return Config{HostMaxHealth: 20, HostDamageMultiplier: 5}
}

// Validate reports every out-of-range setting.
func (c Config) Validate() error {
	var errs []error
	if c.HostMaxHealth <= 0 {
		errs = append(errs, fmt.Errorf("host_max_health must be > 0, got %v", c.HostMaxHealth))
	}
	if c.HostDamageMultiplier <= 0 {
		errs = append(errs, fmt.Errorf("host_damage_multiplier must be > 0, got %v", c.HostDamageMultiplier))
	}
	return errors.Join(errs...)
}

// Change describes one HP mutation.
type Change struct {
	Before     float64
	After      float64
	HostHealth float64
}

// Killed reports whether the change took a living player to 0 HP.
func (c Change) Killed() bool { return c.Before > 0 && c.After <= 0 }

// Bridge converts between internal HP and host health.
type Bridge struct {
	cfg    Config
	host   Host
	logger *zap.Logger
}

// NewBridge creates a Bridge.
//
// Precondition: host and logger must be non-nil; cfg must pass Validate.
func NewBridge(cfg Config, host Host, logger *zap.Logger) *Bridge {
	return &Bridge{cfg: cfg, host: host, logger: logger.Named("health")}
}

// ApplyIncomingHostDamage converts host damage into internal HP and subtracts
// it, then projects the result back to the host.
//
// Postcondition: internal HP is in [0, MaxHP]; the record is dirty.
func (b *Bridge) ApplyIncomingHostDamage(rec *player.Record, hostDamage float64) Change {
	return b.ApplyDamage(rec, amount(hostDamage)*b.cfg.HostDamageMultiplier)
}

// ApplyDamage subtracts damage already on the internal scale (the output of
// the combat resolver) and projects the result to the host.
func (b *Bridge) ApplyDamage(rec *player.Record, dmg float64) Change {
	var ch Change
	rec.Update(func(s *player.State) {
		ch.Before = s.HP
		s.HP = max(s.HP-amount(dmg), 0)
		ch.After = s.HP
	})
	ch.HostHealth = b.ProjectInternalHPToHost(rec)
	if ch.Killed() {
		b.logger.Debug("player reduced to zero hp", zap.Stringer("player", rec.ID()))
	}
	return ch
}

// Heal restores heal internal HP, clamped to MaxHP, and projects the result.
func (b *Bridge) Heal(rec *player.Record, heal float64) Change {
	var ch Change
	rec.Update(func(s *player.State) {
		ch.Before = s.HP
		s.HP = min(s.HP+amount(heal), s.MaxHP)
		ch.After = s.HP
	})
	ch.HostHealth = b.ProjectInternalHPToHost(rec)
	return ch
}

// amount treats negative and NaN quantities as zero.
func amount(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

// HostHealth returns the host-scale health for rec without touching the host.
func (b *Bridge) HostHealth(rec *player.Record) float64 {
	var hp, maxHP float64
	rec.View(func(s *player.State) { hp, maxHP = s.HP, s.MaxHP })
	if maxHP <= 0 {
		return 0
	}
	return b.cfg.HostMaxHealth * hp / maxHP
}

// ProjectInternalHPToHost sets the host health to HostMaxHealth scaled by the
// internal HP fraction and returns the value set.
func (b *Bridge) ProjectInternalHPToHost(rec *player.Record) float64 {
	v := b.HostHealth(rec)
	b.host.SetHealth(rec.ID(), v)
	return v
}
