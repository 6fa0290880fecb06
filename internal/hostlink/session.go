package hostlink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skillforge/internal/game/combat"
	"github.com/cory-johannsen/skillforge/internal/game/equipment"
	"github.com/cory-johannsen/skillforge/internal/game/health"
	"github.com/cory-johannsen/skillforge/internal/game/player"
	"github.com/cory-johannsen/skillforge/internal/game/progression"
	"github.com/cory-johannsen/skillforge/internal/game/skill"
	"github.com/cory-johannsen/skillforge/internal/gameserver"
	"github.com/cory-johannsen/skillforge/internal/observability"
)

// quitTimeout bounds the save of each player left behind by a dropped session.
const quitTimeout = 10 * time.Second

// Events is the event surface a host session drives. *gameserver.Server
// implements it.
type Events interface {
	OnJoin(ctx context.Context, j gameserver.Join) (*player.Record, bool, error)
	OnQuit(ctx context.Context, id player.Identity) error
	OnMeleeAttack(attacker player.Identity, loadout equipment.Loadout, mobKind string) (combat.Result, error)
	OnRangedHit(attacker player.Identity, loadout equipment.Loadout, mobKind string) (combat.Result, error)
	OnSpellHit(caster player.Identity, spell combat.Spell, mobKind string) (combat.Result, error)
	OnMobKilled(killer player.Identity, mobKind string) (bool, error)
	OnPlayerAttack(pa gameserver.PlayerAttack) (gameserver.Exchange, error)
	OnPlayerSpell(ps gameserver.PlayerSpell) (gameserver.Exchange, error)
	OnHostDamage(id player.Identity, hostDamage float64) (health.Change, error)
	OnRespawn(id player.Identity) (health.Change, error)
	CheckSkill(id player.Identity, key string, difficulty int) (bool, error)
	UseSkill(id player.Identity, key string, difficulty int) (bool, error)
	Summary(id player.Identity) (progression.Summary, error)
	Online() int
}

// errBye ends a session at the host's request.
var errBye = errors.New("bye")

// command is one protocol verb.
type command struct {
	usage string
	args  int // minimum argument count
	run   func(ctx context.Context, s *sessionState, args []string) (string, error)
}

// Handler runs the host line protocol. Each request line is a verb followed
// by space-separated arguments; each reply is one "ok ..." or "err ..." line,
// preceded by any notices the request produced.
type Handler struct {
	events   Events
	router   *Router
	logger   *zap.Logger
	commands map[string]command
}

// sessionState is the per-connection view of which players this host joined.
type sessionState struct {
	h      *Handler
	conn   *Conn
	joined map[player.Identity]struct{}
}

// NewHandler creates a Handler.
//
// Precondition: events, router and logger must be non-nil.
func NewHandler(events Events, router *Router, logger *zap.Logger) *Handler {
	h := &Handler{events: events, router: router, logger: logger.Named("session")}
	h.commands = map[string]command{
		"join":    {"join <id> <name> [language]", 2, cmdJoin},
		"quit":    {"quit <id>", 1, cmdQuit},
		"melee":   {"melee <attacker> <mob> [loadout]", 2, cmdMelee},
		"ranged":  {"ranged <attacker> <mob> [loadout]", 2, cmdRanged},
		"spell":   {"spell <caster> <mob> <base> [di]", 3, cmdSpell},
		"killed":  {"killed <killer> <mob>", 2, cmdKilled},
		"pvp":     {"pvp <attacker> <victim> <guard> <armor> [loadout]", 4, cmdPvP},
		"pvspell": {"pvspell <caster> <victim> <base> [di]", 3, cmdPvSpell},
		"damage":  {"damage <id> <host-damage>", 2, cmdDamage},
		"respawn": {"respawn <id>", 1, cmdRespawn},
		"use":     {"use <id> <skill> <difficulty>", 3, cmdUse},
		"check":   {"check <id> <skill> <difficulty>", 3, cmdCheck},
		"summary": {"summary <id>", 1, cmdSummary},
		"online":  {"online", 0, cmdOnline},
		"ping":    {"ping", 0, func(context.Context, *sessionState, []string) (string, error) { return "pong", nil }},
		"help":    {"help", 0, cmdHelp},
		"bye":     {"bye", 0, func(context.Context, *sessionState, []string) (string, error) { return "bye", errBye }},
	}
	return h
}

// HandleSession implements SessionHandler. Players joined through the session
// and not yet quit are quit when it ends, so their records are saved. A player
// another session has since joined is left alone.
func (h *Handler) HandleSession(ctx context.Context, conn *Conn) error {
	s := &sessionState{h: h, conn: conn, joined: make(map[player.Identity]struct{})}
	defer s.release(ctx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line, err := conn.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		reply, err := h.dispatch(ctx, s, line)
		if errors.Is(err, errBye) {
			return conn.WriteLine("ok " + reply)
		}
		if err != nil {
			reply = "err " + err.Error()
		} else {
			reply = strings.TrimRight("ok "+reply, " ")
		}
		if err := conn.WriteLine(reply); err != nil {
			return err
		}
	}
}

// dispatch runs one request line and returns the reply body.
func (h *Handler) dispatch(ctx context.Context, s *sessionState, line string) (string, error) {
	fields := strings.Fields(line)
	verb := strings.ToLower(fields[0])
	cmd, ok := h.commands[verb]
	if !ok {
		return "", fmt.Errorf("unknown command %q", verb)
	}
	args := fields[1:]
	if len(args) < cmd.args {
		return "", fmt.Errorf("usage: %s", cmd.usage)
	}
	return cmd.run(ctx, s, args)
}

func (s *sessionState) release(ctx context.Context) {
	base := context.WithoutCancel(ctx)
	for id := range s.joined {
		if !s.h.router.Unbind(id, s.conn) {
			continue
		}
		qctx, cancel := context.WithTimeout(base, quitTimeout)
		if err := s.h.events.OnQuit(qctx, id); err != nil {
			s.h.logger.Warn("quitting player of closed session",
				observability.Player(id),
				zap.Error(err),
			)
		}
		cancel()
	}
}

func parseID(arg string) (player.Identity, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return player.Identity{}, fmt.Errorf("invalid player id %q", arg)
	}
	return id, nil
}

func parseIDs(args ...string) ([]player.Identity, error) {
	out := make([]player.Identity, len(args))
	for i, a := range args {
		id, err := parseID(a)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

func parseFloat(name, arg string) (float64, error) {
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s %q", name, arg)
	}
	return v, nil
}

func parseInt(name, arg string) (int, error) {
	v, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, arg)
	}
	return v, nil
}

// ParseLoadout reads "weapon[:quality[:di,di...]]". "-" or an empty string
// is unarmed.
func ParseLoadout(arg string) (equipment.Loadout, error) {
	if arg == "" || arg == "-" {
		return equipment.Loadout{}, nil
	}
	parts := strings.SplitN(arg, ":", 3)
	l := equipment.Loadout{WeaponID: parts[0]}
	if len(parts) > 1 {
		l.Quality = parts[1]
	}
	if len(parts) > 2 && parts[2] != "" {
		for _, raw := range strings.Split(parts[2], ",") {
			di, err := parseFloat("damage increase", raw)
			if err != nil {
				return equipment.Loadout{}, err
			}
			l.Enchantment = append(l.Enchantment, di)
		}
	}
	return l, nil
}

func optional(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func parseSpell(args []string) (combat.Spell, error) {
	base, err := parseFloat("base damage", args[0])
	if err != nil {
		return combat.Spell{}, err
	}
	sp := combat.Spell{BaseDamage: base}
	if raw := optional(args, 1); raw != "" {
		if sp.DamageIncrease, err = parseFloat("damage increase", raw); err != nil {
			return combat.Spell{}, err
		}
	}
	return sp, nil
}

func formatResult(r combat.Result) string {
	if !r.Hit {
		return fmt.Sprintf("miss chance=%.1f", r.HitChance)
	}
	return fmt.Sprintf("hit damage=%.2f crit=%t", r.FinalDamage(), r.Damage.Crit)
}

func formatChange(c health.Change) string {
	return fmt.Sprintf("hp=%.2f host=%.2f", c.After, c.HostHealth)
}

func cmdJoin(ctx context.Context, s *sessionState, args []string) (string, error) {
	id, err := parseID(args[0])
	if err != nil {
		return "", err
	}
	// Bound first so the greeting reaches this session.
	s.h.router.Bind(id, s.conn)
	_, created, err := s.h.events.OnJoin(ctx, gameserver.Join{ID: id, Name: args[1], Language: optional(args, 2)})
	if err != nil {
		s.h.router.Unbind(id, s.conn)
		return "", err
	}
	s.joined[id] = struct{}{}
	if created {
		return "created", nil
	}
	return "returning", nil
}

func cmdQuit(ctx context.Context, s *sessionState, args []string) (string, error) {
	id, err := parseID(args[0])
	if err != nil {
		return "", err
	}
	s.h.router.Unbind(id, s.conn)
	delete(s.joined, id)
	if err := s.h.events.OnQuit(ctx, id); err != nil {
		return "", err
	}
	return "", nil
}

func cmdMelee(_ context.Context, s *sessionState, args []string) (string, error) {
	id, err := parseID(args[0])
	if err != nil {
		return "", err
	}
	loadout, err := ParseLoadout(optional(args, 2))
	if err != nil {
		return "", err
	}
	r, err := s.h.events.OnMeleeAttack(id, loadout, args[1])
	if err != nil {
		return "", err
	}
	return formatResult(r), nil
}

func cmdRanged(_ context.Context, s *sessionState, args []string) (string, error) {
	id, err := parseID(args[0])
	if err != nil {
		return "", err
	}
	loadout, err := ParseLoadout(optional(args, 2))
	if err != nil {
		return "", err
	}
	r, err := s.h.events.OnRangedHit(id, loadout, args[1])
	if err != nil {
		return "", err
	}
	return formatResult(r), nil
}

func cmdSpell(_ context.Context, s *sessionState, args []string) (string, error) {
	id, err := parseID(args[0])
	if err != nil {
		return "", err
	}
	sp, err := parseSpell(args[2:])
	if err != nil {
		return "", err
	}
	r, err := s.h.events.OnSpellHit(id, sp, args[1])
	if err != nil {
		return "", err
	}
	return formatResult(r), nil
}

func cmdKilled(_ context.Context, s *sessionState, args []string) (string, error) {
	id, err := parseID(args[0])
	if err != nil {
		return "", err
	}
	credited, err := s.h.events.OnMobKilled(id, args[1])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("credited=%t", credited), nil
}

func cmdPvP(_ context.Context, s *sessionState, args []string) (string, error) {
	ids, err := parseIDs(args[0], args[1])
	if err != nil {
		return "", err
	}
	armor, err := parseInt("armor", args[3])
	if err != nil {
		return "", err
	}
	loadout, err := ParseLoadout(optional(args, 4))
	if err != nil {
		return "", err
	}
	ex, err := s.h.events.OnPlayerAttack(gameserver.PlayerAttack{
		Attacker: ids[0],
		Victim:   ids[1],
		Loadout:  loadout,
		Guard:    args[2],
		Armor:    armor,
	})
	if err != nil {
		return "", err
	}
	if !ex.Attack.Hit {
		return formatResult(ex.Attack), nil
	}
	return fmt.Sprintf("hit damage=%.2f parried=%t %s killed=%t",
		ex.Defense.Damage, ex.Defense.Parried, formatChange(ex.Health), ex.Health.Killed()), nil
}

func cmdPvSpell(_ context.Context, s *sessionState, args []string) (string, error) {
	ids, err := parseIDs(args[0], args[1])
	if err != nil {
		return "", err
	}
	sp, err := parseSpell(args[2:])
	if err != nil {
		return "", err
	}
	ex, err := s.h.events.OnPlayerSpell(gameserver.PlayerSpell{Caster: ids[0], Victim: ids[1], Spell: sp})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("damage=%.2f resisted=%.1f %s killed=%t",
		ex.Defense.Damage, ex.Defense.Resisted, formatChange(ex.Health), ex.Health.Killed()), nil
}

func cmdDamage(_ context.Context, s *sessionState, args []string) (string, error) {
	id, err := parseID(args[0])
	if err != nil {
		return "", err
	}
	dmg, err := parseFloat("host damage", args[1])
	if err != nil {
		return "", err
	}
	c, err := s.h.events.OnHostDamage(id, dmg)
	if err != nil {
		return "", err
	}
	return formatChange(c), nil
}

func cmdRespawn(_ context.Context, s *sessionState, args []string) (string, error) {
	id, err := parseID(args[0])
	if err != nil {
		return "", err
	}
	c, err := s.h.events.OnRespawn(id)
	if err != nil {
		return "", err
	}
	return formatChange(c), nil
}

func skillArgs(args []string) (player.Identity, int, error) {
	id, err := parseID(args[0])
	if err != nil {
		return player.Identity{}, 0, err
	}
	difficulty, err := parseInt("difficulty", args[2])
	if err != nil {
		return player.Identity{}, 0, err
	}
	return id, difficulty, nil
}

func cmdUse(_ context.Context, s *sessionState, args []string) (string, error) {
	id, difficulty, err := skillArgs(args)
	if err != nil {
		return "", err
	}
	gained, err := s.h.events.UseSkill(id, args[1], difficulty)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("gained=%t", gained), nil
}

func cmdCheck(_ context.Context, s *sessionState, args []string) (string, error) {
	id, difficulty, err := skillArgs(args)
	if err != nil {
		return "", err
	}
	ok, err := s.h.events.CheckSkill(id, args[1], difficulty)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("success=%t", ok), nil
}

func cmdSummary(_ context.Context, s *sessionState, args []string) (string, error) {
	id, err := parseID(args[0])
	if err != nil {
		return "", err
	}
	sum, err := s.h.events.Summary(id)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "total=%.1f cap=%.1f", sum.Total, sum.Cap)
	for _, line := range sum.Skills {
		entry, _ := skill.Lookup(line.ID)
		fmt.Fprintf(&b, " %s=%.1f", entry.Key, line.Value)
	}
	return b.String(), nil
}

func cmdOnline(_ context.Context, s *sessionState, _ []string) (string, error) {
	return fmt.Sprintf("online=%d", s.h.events.Online()), nil
}

func cmdHelp(_ context.Context, s *sessionState, _ []string) (string, error) {
	usages := make([]string, 0, len(s.h.commands))
	for _, c := range s.h.commands {
		usages = append(usages, c.usage)
	}
	sort.Strings(usages)
	return strings.Join(usages, " | "), nil
}
