// Package gameserver is the surface host adapters call: one method per game
// event, each translating raw event data into calls on the combat,
// progression and health components for records held by the session cache.
package gameserver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skillforge/internal/game/combat"
	"github.com/cory-johannsen/skillforge/internal/game/dice"
	"github.com/cory-johannsen/skillforge/internal/game/equipment"
	"github.com/cory-johannsen/skillforge/internal/game/health"
	"github.com/cory-johannsen/skillforge/internal/game/player"
	"github.com/cory-johannsen/skillforge/internal/game/progression"
	"github.com/cory-johannsen/skillforge/internal/game/session"
	"github.com/cory-johannsen/skillforge/internal/game/skill"
	"github.com/cory-johannsen/skillforge/internal/game/stats"
	"github.com/cory-johannsen/skillforge/internal/messaging"
)

// ErrNotOnline is returned when an event names a player whose record is not
// in the session cache. Combat events never load records themselves.
var ErrNotOnline = errors.New("player is not online")

// Server routes host events to the core.
//
// All methods are safe for concurrent use. Every method except OnJoin and
// OnQuit is pure in-memory work and never blocks on I/O.
type Server struct {
	cache   *session.Cache
	prog    *progression.Engine
	combat  *combat.Resolver
	health  *health.Bridge
	weapons *equipment.Registry
	roller  *dice.Roller
	sink    messaging.Sink
	logger  *zap.Logger
}

// NewServer creates a Server and subscribes it to derived-stat changes so the
// host health bar follows a changed maximum HP.
//
// Precondition: every argument must be non-nil.
func NewServer(
	cache *session.Cache,
	prog *progression.Engine,
	resolver *combat.Resolver,
	bridge *health.Bridge,
	weapons *equipment.Registry,
	roller *dice.Roller,
	sink messaging.Sink,
	logger *zap.Logger,
) *Server {
	s := &Server{
		cache:   cache,
		prog:    prog,
		combat:  resolver,
		health:  bridge,
		weapons: weapons,
		roller:  roller,
		sink:    sink,
		logger:  logger.Named("gameserver"),
	}
	prog.SetStatsObserver(func(rec *player.Record, before, after player.Stats) {
		if before.Str != after.Str {
			bridge.ProjectInternalHPToHost(rec)
		}
	})
	return s
}

// Join describes a player connecting.
type Join struct {
	ID   player.Identity
	Name string
	// Language is the client locale; empty keeps the stored preference.
	Language string
}

// OnJoin loads or creates the player's record. A first join fills every pool
// and sends the welcome message; a returning player is welcomed back.
//
// Postcondition: on success the record is cached and the host health bar
// reflects its internal HP.
func (s *Server) OnJoin(ctx context.Context, j Join) (*player.Record, bool, error) {
	rec, created, err := s.cache.LoadOrCreate(ctx, j.ID, j.Name)
	if err != nil {
		return nil, false, fmt.Errorf("joining player %s: %w", j.ID, err)
	}
	rec.UpdateIf(func(st *player.State) bool {
		changed := false
		if created {
			stats.Fill(st)
			changed = true
		}
		if j.Language != "" && st.Language != j.Language {
			st.Language = j.Language
			changed = true
		}
		return changed
	})

	to := messaging.Recipient{ID: rec.ID(), Language: rec.Language()}
	params := messaging.Params{"name": rec.Name()}
	if created {
		s.sink.Notify(to, messaging.KeyWelcome, params)
		s.logger.Info("player joined for the first time", zap.Stringer("player", j.ID))
	} else {
		s.sink.Notify(to, messaging.KeyWelcomeBack, params)
	}
	s.health.ProjectInternalHPToHost(rec)
	return rec, created, nil
}

// OnQuit saves the player's record and drops it from the cache. A failed save
// keeps the record cached for the next autosave and is returned.
func (s *Server) OnQuit(ctx context.Context, id player.Identity) error {
	if err := s.cache.Unload(ctx, id); err != nil {
		s.logger.Warn("unload deferred to autosave", zap.Stringer("player", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *Server) online(id player.Identity) (*player.Record, error) {
	rec, ok := s.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotOnline, id)
	}
	return rec, nil
}

// OnMeleeAttack resolves a swing of loadout by the attacker at a mob of kind.
// The host applies FinalDamage to the mob and reports a kill via OnMobKilled.
func (s *Server) OnMeleeAttack(attacker player.Identity, loadout equipment.Loadout, mobKind string) (combat.Result, error) {
	rec, err := s.online(attacker)
	if err != nil {
		return combat.Result{}, err
	}
	atk := combat.AttackFromStrike(s.weapons.Resolve(loadout, s.roller))
	return s.combat.Melee(rec, atk, combat.MobTarget(mobKind)), nil
}

// OnRangedHit resolves a projectile the host reports as having struck a mob
// of kind. No hit roll is made.
func (s *Server) OnRangedHit(attacker player.Identity, loadout equipment.Loadout, mobKind string) (combat.Result, error) {
	rec, err := s.online(attacker)
	if err != nil {
		return combat.Result{}, err
	}
	atk := combat.AttackFromStrike(s.weapons.Resolve(loadout, s.roller))
	return s.combat.Ranged(rec, atk, combat.MobTarget(mobKind)), nil
}

// OnSpellHit resolves a damaging spell cast at a mob of kind.
func (s *Server) OnSpellHit(caster player.Identity, spell combat.Spell, mobKind string) (combat.Result, error) {
	rec, err := s.online(caster)
	if err != nil {
		return combat.Result{}, err
	}
	return s.combat.Spell(rec, spell, combat.MobTarget(mobKind)), nil
}

// OnMobKilled credits the killer's anatomy for a killing blow on a mob.
func (s *Server) OnMobKilled(killer player.Identity, mobKind string) (bool, error) {
	rec, err := s.online(killer)
	if err != nil {
		return false, err
	}
	return s.combat.CreditKill(rec, combat.MobTarget(mobKind)), nil
}

// PlayerAttack describes one player striking another.
type PlayerAttack struct {
	Attacker player.Identity
	Victim   player.Identity
	Loadout  equipment.Loadout
	// Guard is the victim's guard: "unarmed", "weapon" or "shield".
	Guard string
	// Armor is the victim's physical defense.
	Armor int
}

// Exchange is the full outcome of a player-versus-player blow.
type Exchange struct {
	Attack  combat.Result
	Defense combat.Defense
	Health  health.Change
	// KillCredited is set when the blow killed the victim and the attacker's
	// anatomy gained.
	KillCredited bool
}

// OnPlayerAttack resolves a melee blow between two online players: the
// attacker's swing, the victim's parry, the HP change and kill credit.
//
// Precondition: Guard must name a known guard.
func (s *Server) OnPlayerAttack(pa PlayerAttack) (Exchange, error) {
	guard, err := equipment.ParseGuard(pa.Guard)
	if err != nil {
		return Exchange{}, err
	}
	attacker, err := s.online(pa.Attacker)
	if err != nil {
		return Exchange{}, err
	}
	victim, err := s.online(pa.Victim)
	if err != nil {
		return Exchange{}, err
	}

	var ex Exchange
	target := combat.PlayerTarget(victim, pa.Armor)
	atk := combat.AttackFromStrike(s.weapons.Resolve(pa.Loadout, s.roller))
	ex.Attack = s.combat.Melee(attacker, atk, target)
	if !ex.Attack.Hit {
		return ex, nil
	}
	ex.Defense = s.combat.DefendPhysical(victim, ex.Attack.FinalDamage(), guard, combat.PlayerDifficulty(attacker))
	ex.Health = s.health.ApplyDamage(victim, ex.Defense.Damage)
	if ex.Health.Killed() {
		ex.KillCredited = s.combat.CreditKill(attacker, target)
		s.logger.Info("player killed",
			zap.Stringer("player", pa.Victim),
			zap.Stringer("killer", pa.Attacker),
		)
	}
	return ex, nil
}

// PlayerSpell describes one player casting a damaging spell at another.
type PlayerSpell struct {
	Caster player.Identity
	Victim player.Identity
	Spell  combat.Spell
}

// OnPlayerSpell resolves a damaging spell between two online players: the
// cast, the victim's resistance, the HP change and kill credit.
func (s *Server) OnPlayerSpell(ps PlayerSpell) (Exchange, error) {
	caster, err := s.online(ps.Caster)
	if err != nil {
		return Exchange{}, err
	}
	victim, err := s.online(ps.Victim)
	if err != nil {
		return Exchange{}, err
	}

	var ex Exchange
	target := combat.PlayerTarget(victim, 0)
	ex.Attack = s.combat.Spell(caster, ps.Spell, target)
	ex.Defense = s.combat.DefendMagical(victim, ex.Attack.FinalDamage(), combat.PlayerDifficulty(caster))
	ex.Health = s.health.ApplyDamage(victim, ex.Defense.Damage)
	if ex.Health.Killed() {
		ex.KillCredited = s.combat.CreditKill(caster, target)
	}
	return ex, nil
}

// OnHostDamage applies damage the host engine dealt to a player (falls, mobs,
// environment) on the internal HP scale.
func (s *Server) OnHostDamage(id player.Identity, hostDamage float64) (health.Change, error) {
	rec, err := s.online(id)
	if err != nil {
		return health.Change{}, err
	}
	return s.health.ApplyIncomingHostDamage(rec, hostDamage), nil
}

// OnRespawn restores the player to full HP, mana and stamina.
func (s *Server) OnRespawn(id player.Identity) (health.Change, error) {
	rec, err := s.online(id)
	if err != nil {
		return health.Change{}, err
	}
	var missing float64
	rec.Update(func(st *player.State) {
		missing = st.MaxHP - st.HP
		st.Mana, st.Stamina = st.MaxMana, st.MaxStamina
	})
	return s.health.Heal(rec, missing), nil
}

// CheckSkill gates a non-combat action on a skill check without training it.
func (s *Server) CheckSkill(id player.Identity, key string, difficulty int) (bool, error) {
	rec, err := s.online(id)
	if err != nil {
		return false, err
	}
	sk, err := skill.ByKey(key)
	if err != nil {
		return false, err
	}
	return s.prog.CheckSuccess(rec, sk, difficulty), nil
}

// UseSkill records a non-combat use of a skill and attempts a gain.
func (s *Server) UseSkill(id player.Identity, key string, difficulty int) (bool, error) {
	rec, err := s.online(id)
	if err != nil {
		return false, err
	}
	sk, err := skill.ByKey(key)
	if err != nil {
		return false, err
	}
	return s.prog.TryGain(rec, sk, difficulty), nil
}

// Summary returns the skill sheet of an online player.
func (s *Server) Summary(id player.Identity) (progression.Summary, error) {
	rec, err := s.online(id)
	if err != nil {
		return progression.Summary{}, err
	}
	return s.prog.Summary(rec), nil
}

// Online returns the number of players currently online.
func (s *Server) Online() int { return s.cache.Online() }
