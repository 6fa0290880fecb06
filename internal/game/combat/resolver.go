package combat

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/skillforge/internal/game/dice"
	"github.com/cory-johannsen/skillforge/internal/game/equipment"
	"github.com/cory-johannsen/skillforge/internal/game/player"
	"github.com/cory-johannsen/skillforge/internal/game/progression"
	"github.com/cory-johannsen/skillforge/internal/game/skill"
	"github.com/cory-johannsen/skillforge/internal/messaging"
)

// TargetLookup rates non-player targets by kind.
type TargetLookup interface {
	Difficulty(kind string) int
	PhysicalDefense(kind string) int
}

// Target is the defender of an attack: either a mob kind or a player record.
type Target struct {
	Kind   string
	Player *player.Record
	// Defense is the physical defense of a player target, supplied by the
	// armor collaborator. Ignored for mobs.
	Defense int
}

// MobTarget targets a non-player of kind.
func MobTarget(kind string) Target { return Target{Kind: kind} }

// PlayerTarget targets rec with the given armor defense.
func PlayerTarget(rec *player.Record, defense int) Target {
	return Target{Player: rec, Defense: defense}
}

// IsPlayer reports whether t is a player.
func (t Target) IsPlayer() bool { return t.Player != nil }

// Attack is one weapon swing or shot.
type Attack struct {
	Skill          skill.ID
	BaseDamage     float64
	Quality        float64
	DamageIncrease float64
}

// AttackFromStrike converts a resolved equipment strike into an Attack.
func AttackFromStrike(s equipment.Strike) Attack {
	return Attack{
		Skill:          s.Weapon.SkillID(),
		BaseDamage:     s.BaseDamage,
		Quality:        s.Quality.Multiplier(),
		DamageIncrease: s.DamageIncrease,
	}
}

// Spell is one damaging cast.
type Spell struct {
	BaseDamage     float64
	DamageIncrease float64
}

// Result is the outcome of one attack resolution. Every skill-gain side effect
// it reports has already been applied to the attacker's record.
type Result struct {
	Hit        bool
	HitChance  float64
	HitRoll    float64
	Difficulty int
	Defense    int
	Damage     Damage
	// PrimaryGain is the weapon (or cast) skill gain, attempted on every swing.
	PrimaryGain bool
	// SupportGain is the tactics (or evaluating intelligence) gain, attempted
	// only on a hit.
	SupportGain bool
}

// FinalDamage returns the damage to apply, 0 on a miss.
func (r Result) FinalDamage() float64 {
	if !r.Hit {
		return 0
	}
	return r.Damage.Final
}

// Resolver runs attack and defense pipelines. It holds no per-fight state and
// is safe for concurrent use.
type Resolver struct {
	cfg     Config
	roller  *dice.Roller
	prog    *progression.Engine
	targets TargetLookup
	sink    messaging.Sink
	logger  *zap.Logger
}

// NewResolver creates a Resolver.
//
// Precondition: every argument must be non-nil; cfg must pass Validate.
func NewResolver(cfg Config, roller *dice.Roller, prog *progression.Engine, targets TargetLookup, sink messaging.Sink, logger *zap.Logger) *Resolver {
	return &Resolver{
		cfg:     cfg,
		roller:  roller,
		prog:    prog,
		targets: targets,
		sink:    sink,
		logger:  logger.Named("combat"),
	}
}

// Config returns the resolver's tuning.
func (r *Resolver) Config() Config { return r.cfg }

// HitChance is Config.HitChance.
func (r *Resolver) HitChance(weaponSkill float64, targetDefense int) float64 {
	return r.cfg.HitChance(weaponSkill, targetDefense)
}

// ParryChance is Config.ParryChance.
func (r *Resolver) ParryChance(parrySkill float64, guard equipment.Guard) float64 {
	return r.cfg.ParryChance(parrySkill, guard)
}

// DefenseReduction is Config.DefenseReduction.
func (r *Resolver) DefenseReduction(defense int) float64 {
	return r.cfg.DefenseReduction(defense)
}

// ComputeDamage rolls the critical hit and evaluates the weapon damage formula.
func (r *Resolver) ComputeDamage(in DamageInput) Damage {
	roll, crit := r.roller.Check("critical", r.cfg.CritChance(in.Anatomy))
	d := r.cfg.Damage(in, crit)
	d.CritRoll = roll
	return d
}

// ComputeMagicDamage rolls the critical hit and evaluates the spell formula.
func (r *Resolver) ComputeMagicDamage(in MagicInput) Damage {
	roll, crit := r.roller.Check("spell_critical", r.cfg.CritChance(in.IntSkill))
	d := r.cfg.MagicDamage(in, crit)
	d.CritRoll = roll
	return d
}

// PlayerDifficulty rates a player defender as the average of their tactics,
// anatomy and parrying, rounded down.
func PlayerDifficulty(rec *player.Record) int {
	var sum float64
	rec.View(func(s *player.State) {
		sum = s.Skill(skill.Tactics) + s.Skill(skill.Anatomy) + s.Skill(skill.Parrying)
	})
	return int(sum / 3)
}

// Difficulty returns the gain difficulty of fighting t.
func (r *Resolver) Difficulty(t Target) int {
	if t.IsPlayer() {
		return PlayerDifficulty(t.Player)
	}
	return r.targets.Difficulty(t.Kind)
}

func (r *Resolver) defense(t Target) int {
	if t.IsPlayer() {
		return max(t.Defense, 0)
	}
	return max(r.targets.PhysicalDefense(t.Kind), 0)
}

// Melee resolves a melee swing. The weapon skill trains on every swing before
// the hit roll; tactics trains on a hit.
func (r *Resolver) Melee(attacker *player.Record, atk Attack, target Target) Result {
	return r.strike(attacker, atk, target, true)
}

// Ranged resolves a projectile that the host already reports as landed: the
// hit roll is skipped but every gain and damage modifier still applies.
func (r *Resolver) Ranged(attacker *player.Record, atk Attack, target Target) Result {
	return r.strike(attacker, atk, target, false)
}

func (r *Resolver) strike(attacker *player.Record, atk Attack, target Target, rollHit bool) Result {
	res := Result{Difficulty: r.Difficulty(target), Defense: r.defense(target)}
	res.PrimaryGain = r.prog.TryGain(attacker, atk.Skill, res.Difficulty)

	res.Hit = true
	if rollHit {
		var weaponSkill float64
		attacker.View(func(s *player.State) { weaponSkill = s.Skill(atk.Skill) })
		res.HitChance = r.cfg.HitChance(weaponSkill, res.Defense)
		res.HitRoll, res.Hit = r.roller.Check("hit:"+atk.Skill.String(), res.HitChance)
	}
	if !res.Hit {
		r.sink.Notify(recipient(attacker), messaging.KeyMissed, nil)
		return res
	}

	res.SupportGain = r.prog.TryGain(attacker, skill.Tactics, res.Difficulty)

	in := DamageInput{
		BaseDamage:     atk.BaseDamage,
		Quality:        atk.Quality,
		DamageIncrease: atk.DamageIncrease,
		TargetDefense:  res.Defense,
	}
	attacker.View(func(s *player.State) {
		in.Tactics = s.Skill(skill.Tactics)
		in.Anatomy = s.Skill(skill.Anatomy)
		in.Str = s.Stats.Str
	})
	res.Damage = r.ComputeDamage(in)
	if res.Damage.Crit {
		r.sink.Notify(recipient(attacker), messaging.KeyCriticalHit, messaging.Params{"damage": res.Damage.Final})
	}
	r.logger.Debug("attack resolved",
		zap.Stringer("player", attacker.ID()),
		zap.String("skill", atk.Skill.String()),
		zap.Bool("ranged", !rollHit),
		zap.Bool("crit", res.Damage.Crit),
		zap.Float64("damage", res.Damage.Final),
	)
	return res
}

// Spell resolves a damaging cast. Magery trains on every cast and evaluating
// intelligence on every landed cast; spells always land once cast.
func (r *Resolver) Spell(caster *player.Record, sp Spell, target Target) Result {
	res := Result{Difficulty: r.Difficulty(target), Hit: true}
	res.PrimaryGain = r.prog.TryGain(caster, skill.Magery, res.Difficulty)
	res.SupportGain = r.prog.TryGain(caster, skill.EvaluatingIntelligence, res.Difficulty)

	in := MagicInput{BaseDamage: sp.BaseDamage, DamageIncrease: sp.DamageIncrease}
	caster.View(func(s *player.State) {
		in.CastSkill = s.Skill(skill.Magery)
		in.IntSkill = s.Skill(skill.EvaluatingIntelligence)
		in.Int = s.Stats.Int
	})
	res.Damage = r.ComputeMagicDamage(in)
	if res.Damage.Crit {
		r.sink.Notify(recipient(caster), messaging.KeyCriticalHit, messaging.Params{"damage": res.Damage.Final})
	}
	return res
}

// CreditKill trains anatomy on a killing blow against victim.
func (r *Resolver) CreditKill(killer *player.Record, victim Target) bool {
	return r.prog.TryGain(killer, skill.Anatomy, r.Difficulty(victim))
}

func recipient(rec *player.Record) messaging.Recipient {
	return messaging.Recipient{ID: rec.ID(), Language: rec.Language()}
}
