package combat

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/skillforge/internal/game/equipment"
	"github.com/cory-johannsen/skillforge/internal/game/player"
	"github.com/cory-johannsen/skillforge/internal/game/skill"
	"github.com/cory-johannsen/skillforge/internal/messaging"
)

// Defense is the outcome of resolving incoming damage against a player.
type Defense struct {
	Incoming float64
	Damage   float64
	Chance   float64
	Roll     float64
	// Parried is set when a physical blow was parried.
	Parried bool
	// Resisted is the percent of magical damage shrugged off.
	Resisted float64
	Gained   bool
}

// DefendPhysical resolves a physical blow against defender. A successful
// parry halves the damage and is the only outcome that trains parrying.
// Unarmed defenders never roll.
func (r *Resolver) DefendPhysical(defender *player.Record, incoming float64, guard equipment.Guard, attackerDifficulty int) Defense {
	out := Defense{Incoming: nonNegative(incoming)}
	out.Damage = out.Incoming

	var parrySkill float64
	defender.View(func(s *player.State) { parrySkill = s.Skill(skill.Parrying) })
	out.Chance = r.cfg.ParryChance(parrySkill, guard)
	if out.Chance <= 0 {
		return out
	}
	out.Roll, out.Parried = r.roller.Check("parry:"+guard.String(), out.Chance)
	if !out.Parried {
		return out
	}

	out.Damage = out.Incoming / 2
	out.Gained = r.prog.TryGain(defender, skill.Parrying, attackerDifficulty)
	r.sink.Notify(recipient(defender), messaging.KeyParried, messaging.Params{"damage": out.Damage})
	r.logger.Debug("blow parried",
		zap.Stringer("player", defender.ID()),
		zap.String("guard", guard.String()),
		zap.Float64("damage", out.Damage),
	)
	return out
}

// DefendMagical resolves spell damage against defender: resisting spells
// removes min(skill/2, cap) percent, and the skill trains on every hit.
func (r *Resolver) DefendMagical(defender *player.Record, incoming float64, attackerDifficulty int) Defense {
	out := Defense{Incoming: nonNegative(incoming)}
	var resist float64
	defender.View(func(s *player.State) { resist = s.Skill(skill.MagicResist) })
	out.Resisted = r.cfg.ResistReduction(resist)
	out.Damage = nonNegative(out.Incoming * (1 - out.Resisted/100))
	out.Gained = r.prog.TryGain(defender, skill.MagicResist, attackerDifficulty)
	if out.Resisted > 0 {
		r.sink.Notify(recipient(defender), messaging.KeyResisted, messaging.Params{"damage": out.Damage})
	}
	return out
}
