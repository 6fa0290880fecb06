package gameserver_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/skillforge/internal/clock"
	"github.com/cory-johannsen/skillforge/internal/game/combat"
	"github.com/cory-johannsen/skillforge/internal/game/dice"
	"github.com/cory-johannsen/skillforge/internal/game/equipment"
	"github.com/cory-johannsen/skillforge/internal/game/health"
	"github.com/cory-johannsen/skillforge/internal/game/mob"
	"github.com/cory-johannsen/skillforge/internal/game/player"
	"github.com/cory-johannsen/skillforge/internal/game/progression"
	"github.com/cory-johannsen/skillforge/internal/game/session"
	"github.com/cory-johannsen/skillforge/internal/game/skill"
	"github.com/cory-johannsen/skillforge/internal/game/stats"
	"github.com/cory-johannsen/skillforge/internal/gameserver"
	"github.com/cory-johannsen/skillforge/internal/messaging"
	"github.com/cory-johannsen/skillforge/internal/testutil"
)

var t0 = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

// Percentiles for FixedSource: 0 passes every check, 99.99 fails every check
// below 100.
const (
	rollPass = 0
	rollFail = 99.99
)

type hostBar struct {
	mu     sync.Mutex
	health map[player.Identity]float64
	calls  int
}

func (h *hostBar) SetHealth(id player.Identity, v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.health == nil {
		h.health = make(map[player.Identity]float64)
	}
	h.health[id] = v
	h.calls++
}

func (h *hostBar) get(id player.Identity) (float64, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.health[id], h.calls
}

type notice struct {
	to  player.Identity
	key string
}

type recordingSink struct {
	mu      sync.Mutex
	notices []notice
}

func (r *recordingSink) Notify(to messaging.Recipient, key string, _ messaging.Params) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice{to: to.ID, key: key})
}

func (r *recordingSink) keysFor(id player.Identity) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notices {
		if n.to == id {
			out = append(out, n.key)
		}
	}
	return out
}

type fixture struct {
	server *gameserver.Server
	cache  *session.Cache
	gw     *testutil.MemoryGateway
	prog   *progression.Engine
	clock  *clock.Manual
	host   *hostBar
	sink   *recordingSink
}

const katanaYAML = `
id: katana
name: Katana
damage_dice: 2d5+1
skill: swordsmanship
`

func newFixture(t *testing.T, percentile float64) fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	roller := dice.NewLoggedRoller(dice.NewFixedSource(percentile), logger)
	clk := clock.NewManual(t0)
	deriver := stats.NewDeriver(stats.DefaultConfig(), nil)
	sink := &recordingSink{}
	host := &hostBar{}

	katana, err := equipment.LoadWeaponFromBytes([]byte(katanaYAML))
	require.NoError(t, err)
	weapons, err := equipment.NewRegistry([]*equipment.WeaponDef{katana}, 100)
	require.NoError(t, err)
	mobs, err := mob.NewRegistry([]*mob.Template{
		{Kind: "zombie", Name: "Zombie", Difficulty: 20, PhysicalDefense: 5},
	}, mob.Defaults{Difficulty: 20})
	require.NoError(t, err)

	gw := testutil.NewMemoryGateway()
	cache := session.NewCache(gw, clk, deriver, logger, 2)
	prog := progression.NewEngine(progression.DefaultConfig(), roller, clk, deriver, sink, logger)
	resolver := combat.NewResolver(combat.DefaultConfig(), roller, prog, mobs, sink, logger)
	bridge := health.NewBridge(health.DefaultConfig(), host, logger)

	srv := gameserver.NewServer(cache, prog, resolver, bridge, weapons, roller, sink, logger)
	return fixture{server: srv, cache: cache, gw: gw, prog: prog, clock: clk, host: host, sink: sink}
}

func (f fixture) join(t *testing.T, name string) *player.Record {
	t.Helper()
	rec, _, err := f.server.OnJoin(context.Background(), gameserver.Join{ID: uuid.New(), Name: name})
	require.NoError(t, err)
	return rec
}

func TestOnJoin_FirstJoinFillsPoolsAndWelcomes(t *testing.T) {
	f := newFixture(t, rollFail)
	id := uuid.New()

	rec, created, err := f.server.OnJoin(context.Background(), gameserver.Join{ID: id, Name: "Ada", Language: "de-DE"})
	require.NoError(t, err)
	assert.True(t, created)

	st := rec.Snapshot()
	assert.Equal(t, st.MaxHP, st.HP)
	assert.Equal(t, st.MaxMana, st.Mana)
	assert.Equal(t, st.MaxStamina, st.Stamina)
	assert.Equal(t, "de-DE", st.Language)
	assert.Equal(t, []string{messaging.KeyWelcome}, f.sink.keysFor(id))

	hp, _ := f.host.get(id)
	assert.Equal(t, health.DefaultConfig().HostMaxHealth, hp)
}

func TestOnJoin_ReturningPlayerIsWelcomedBack(t *testing.T) {
	f := newFixture(t, rollFail)
	ctx := context.Background()
	id := uuid.New()

	_, _, err := f.server.OnJoin(ctx, gameserver.Join{ID: id, Name: "Ada"})
	require.NoError(t, err)
	require.NoError(t, f.server.OnQuit(ctx, id))
	assert.Equal(t, 0, f.server.Online())

	rec, created, err := f.server.OnJoin(ctx, gameserver.Join{ID: id, Name: "Ignored"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Ada", rec.Name())
	assert.False(t, rec.Dirty(), "a returning join with no changes leaves the record clean")
	assert.Equal(t, []string{messaging.KeyWelcome, messaging.KeyWelcomeBack}, f.sink.keysFor(id))
}

func TestOnJoin_GatewayFailure(t *testing.T) {
	f := newFixture(t, rollFail)
	id := uuid.New()
	f.gw.LoadErr[id] = errors.New("connection refused")

	_, _, err := f.server.OnJoin(context.Background(), gameserver.Join{ID: id, Name: "Ada"})
	require.Error(t, err)
	assert.Equal(t, 0, f.server.Online())
}

func TestOnQuit_FailedSaveIsRetriedByAutosave(t *testing.T) {
	f := newFixture(t, rollFail)
	ctx := context.Background()
	rec := f.join(t, "Ada")
	f.gw.SetSaveErr(rec.ID(), errors.New("disk full"))

	require.Error(t, f.server.OnQuit(ctx, rec.ID()))
	assert.Equal(t, 0, f.server.Online(), "a quit player is offline while the save is retried")
	_, err := f.server.OnMeleeAttack(rec.ID(), equipment.Loadout{}, "zombie")
	assert.ErrorIs(t, err, gameserver.ErrNotOnline)

	f.gw.SetSaveErr(rec.ID(), nil)
	saver := gameserver.NewAutosaver(f.cache, time.Minute, zaptest.NewLogger(t))
	report := saver.Pass(ctx)
	assert.Equal(t, 1, report.Saved)
	assert.Equal(t, 1, report.Evicted)
	assert.Equal(t, 0, f.server.Online())
	_, ok := f.gw.Doc(rec.ID())
	assert.True(t, ok)
}

func TestEvents_RequireOnlinePlayer(t *testing.T) {
	f := newFixture(t, rollPass)
	ghost := uuid.New()

	_, err := f.server.OnMeleeAttack(ghost, equipment.Loadout{}, "zombie")
	assert.ErrorIs(t, err, gameserver.ErrNotOnline)
	_, err = f.server.OnRangedHit(ghost, equipment.Loadout{}, "zombie")
	assert.ErrorIs(t, err, gameserver.ErrNotOnline)
	_, err = f.server.OnSpellHit(ghost, combat.Spell{BaseDamage: 5}, "zombie")
	assert.ErrorIs(t, err, gameserver.ErrNotOnline)
	_, err = f.server.OnHostDamage(ghost, 1)
	assert.ErrorIs(t, err, gameserver.ErrNotOnline)
	_, err = f.server.OnMobKilled(ghost, "zombie")
	assert.ErrorIs(t, err, gameserver.ErrNotOnline)
	_, err = f.server.Summary(ghost)
	assert.ErrorIs(t, err, gameserver.ErrNotOnline)
	assert.Equal(t, 0, f.gw.Loads(), "events never load records")
}

func TestOnMeleeAttack_HitTrainsWeaponAndTactics(t *testing.T) {
	f := newFixture(t, rollPass)
	rec := f.join(t, "Ada")

	res, err := f.server.OnMeleeAttack(rec.ID(), equipment.Loadout{WeaponID: "katana"}, "zombie")
	require.NoError(t, err)
	assert.True(t, res.Hit)
	assert.True(t, res.PrimaryGain)
	assert.True(t, res.SupportGain)
	assert.Equal(t, 20, res.Difficulty)
	assert.Equal(t, 5, res.Defense)
	assert.Greater(t, res.FinalDamage(), 0.0)

	st := rec.Snapshot()
	assert.Greater(t, st.Skill(skill.Swordsmanship), 0.0)
	assert.Greater(t, st.Skill(skill.Tactics), 0.0)
}

func TestOnMeleeAttack_MissStillTouchesWeaponSkill(t *testing.T) {
	f := newFixture(t, rollFail)
	rec := f.join(t, "Ada")
	now := f.clock.Advance(time.Hour)

	res, err := f.server.OnMeleeAttack(rec.ID(), equipment.Loadout{}, "zombie")
	require.NoError(t, err)
	assert.False(t, res.Hit)
	assert.Zero(t, res.FinalDamage())
	assert.False(t, res.SupportGain)

	st := rec.Snapshot()
	assert.Zero(t, st.Skill(skill.Wrestling), "unarmed swings train wrestling")
	assert.Equal(t, now, st.Skills[skill.Wrestling].LastUsed)
	assert.Contains(t, f.sink.keysFor(rec.ID()), messaging.KeyMissed)
}

func TestOnRangedHit_SkipsHitRoll(t *testing.T) {
	f := newFixture(t, rollFail)
	rec := f.join(t, "Ada")

	res, err := f.server.OnRangedHit(rec.ID(), equipment.Loadout{WeaponID: "katana"}, "wolf")
	require.NoError(t, err)
	assert.True(t, res.Hit)
	assert.Zero(t, res.HitChance)
	assert.Equal(t, 20, res.Difficulty, "unknown kinds use the default difficulty")
	assert.Greater(t, res.FinalDamage(), 0.0)
}

func TestOnSpellHit_TrainsMageryAndEvalInt(t *testing.T) {
	f := newFixture(t, rollPass)
	rec := f.join(t, "Ada")

	res, err := f.server.OnSpellHit(rec.ID(), combat.Spell{BaseDamage: 12}, "zombie")
	require.NoError(t, err)
	assert.True(t, res.Hit)
	assert.True(t, res.PrimaryGain)
	assert.True(t, res.SupportGain)
	st := rec.Snapshot()
	assert.Greater(t, st.Skill(skill.Magery), 0.0)
	assert.Greater(t, st.Skill(skill.EvaluatingIntelligence), 0.0)
}

func TestOnMobKilled_TrainsAnatomy(t *testing.T) {
	f := newFixture(t, rollPass)
	rec := f.join(t, "Ada")

	gained, err := f.server.OnMobKilled(rec.ID(), "zombie")
	require.NoError(t, err)
	assert.True(t, gained)
	assert.Greater(t, rec.Snapshot().Skill(skill.Anatomy), 0.0)
}

func TestOnPlayerAttack_ParryHalvesDamage(t *testing.T) {
	f := newFixture(t, rollPass)
	attacker := f.join(t, "Ada")
	victim := f.join(t, "Bob")
	victim.Update(func(s *player.State) { s.Skills[skill.Parrying].Value = 80 })
	hpBefore := victim.Snapshot().HP

	ex, err := f.server.OnPlayerAttack(gameserver.PlayerAttack{
		Attacker: attacker.ID(),
		Victim:   victim.ID(),
		Loadout:  equipment.Loadout{WeaponID: "katana"},
		Guard:    "weapon",
	})
	require.NoError(t, err)
	require.True(t, ex.Attack.Hit)
	assert.True(t, ex.Defense.Parried)
	assert.True(t, ex.Defense.Gained)
	assert.InDelta(t, ex.Attack.FinalDamage()/2, ex.Defense.Damage, 1e-9)
	assert.InDelta(t, hpBefore-ex.Defense.Damage, victim.Snapshot().HP, 1e-9)
	assert.False(t, ex.KillCredited)
	assert.Contains(t, f.sink.keysFor(victim.ID()), messaging.KeyParried)

	hp, _ := f.host.get(victim.ID())
	assert.Equal(t, ex.Health.HostHealth, hp)
}

func TestOnPlayerAttack_KillingBlowCreditsAnatomy(t *testing.T) {
	f := newFixture(t, rollPass)
	attacker := f.join(t, "Ada")
	victim := f.join(t, "Bob")
	victim.Update(func(s *player.State) { s.HP = 0.01 })

	ex, err := f.server.OnPlayerAttack(gameserver.PlayerAttack{
		Attacker: attacker.ID(),
		Victim:   victim.ID(),
		Guard:    "unarmed",
	})
	require.NoError(t, err)
	assert.True(t, ex.Health.Killed())
	assert.True(t, ex.KillCredited)
	assert.False(t, ex.Defense.Parried)
	assert.Zero(t, victim.Snapshot().HP)
	assert.Greater(t, attacker.Snapshot().Skill(skill.Anatomy), 0.0)
}

func TestOnPlayerAttack_MissLeavesVictimUntouched(t *testing.T) {
	f := newFixture(t, rollFail)
	attacker := f.join(t, "Ada")
	victim := f.join(t, "Bob")
	hpBefore := victim.Snapshot().HP

	ex, err := f.server.OnPlayerAttack(gameserver.PlayerAttack{
		Attacker: attacker.ID(),
		Victim:   victim.ID(),
		Guard:    "shield",
	})
	require.NoError(t, err)
	assert.False(t, ex.Attack.Hit)
	assert.Equal(t, hpBefore, victim.Snapshot().HP)
}

func TestOnPlayerAttack_RejectsUnknownGuard(t *testing.T) {
	f := newFixture(t, rollPass)
	attacker := f.join(t, "Ada")
	victim := f.join(t, "Bob")

	_, err := f.server.OnPlayerAttack(gameserver.PlayerAttack{
		Attacker: attacker.ID(),
		Victim:   victim.ID(),
		Guard:    "tower",
	})
	assert.Error(t, err)
}

func TestOnPlayerSpell_ResistReducesDamage(t *testing.T) {
	f := newFixture(t, rollFail)
	caster := f.join(t, "Ada")
	victim := f.join(t, "Bob")
	victim.Update(func(s *player.State) { s.Skills[skill.MagicResist].Value = 60 })

	ex, err := f.server.OnPlayerSpell(gameserver.PlayerSpell{
		Caster: caster.ID(),
		Victim: victim.ID(),
		Spell:  combat.Spell{BaseDamage: 40},
	})
	require.NoError(t, err)
	assert.Equal(t, 30.0, ex.Defense.Resisted)
	assert.InDelta(t, ex.Attack.FinalDamage()*0.7, ex.Defense.Damage, 1e-9)
	assert.InDelta(t, ex.Health.Before-ex.Defense.Damage, ex.Health.After, 1e-9)
}

func TestOnHostDamage_ScalesAndProjects(t *testing.T) {
	f := newFixture(t, rollFail)
	rec := f.join(t, "Ada")

	ch, err := f.server.OnHostDamage(rec.ID(), 2)
	require.NoError(t, err)
	assert.Equal(t, 100.0, ch.Before)
	assert.Equal(t, 90.0, ch.After)
	assert.Equal(t, 18.0, ch.HostHealth)
	assert.True(t, rec.Dirty())

	hp, _ := f.host.get(rec.ID())
	assert.Equal(t, 18.0, hp)
}

func TestOnRespawn_RestoresPools(t *testing.T) {
	f := newFixture(t, rollFail)
	rec := f.join(t, "Ada")
	rec.Update(func(s *player.State) { s.HP, s.Mana, s.Stamina = 0, 0, 0 })

	ch, err := f.server.OnRespawn(rec.ID())
	require.NoError(t, err)
	assert.Equal(t, 0.0, ch.Before)
	st := rec.Snapshot()
	assert.Equal(t, st.MaxHP, st.HP)
	assert.Equal(t, st.MaxMana, st.Mana)
	assert.Equal(t, st.MaxStamina, st.Stamina)
	assert.Equal(t, health.DefaultConfig().HostMaxHealth, ch.HostHealth)
}

func TestStrengthChangeReprojectsHostHealth(t *testing.T) {
	f := newFixture(t, rollFail)
	rec := f.join(t, "Ada")
	_, callsBefore := f.host.get(rec.ID())

	require.True(t, f.prog.SetSkill(rec, skill.Swordsmanship, 100))
	st := rec.Snapshot()
	require.Greater(t, st.Stats.Str, 0)

	hp, calls := f.host.get(rec.ID())
	assert.Greater(t, calls, callsBefore)
	assert.InDelta(t, health.DefaultConfig().HostMaxHealth*st.HP/st.MaxHP, hp, 1e-9)
}

func TestSkillUseAndCheck(t *testing.T) {
	f := newFixture(t, rollPass)
	rec := f.join(t, "Ada")

	gained, err := f.server.UseSkill(rec.ID(), "mining", 10)
	require.NoError(t, err)
	assert.True(t, gained)

	ok, err := f.server.CheckSkill(rec.ID(), "Mining", 10)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.server.UseSkill(rec.ID(), "juggling", 10)
	assert.ErrorIs(t, err, skill.ErrUnknownSkill)

	sum, err := f.server.Summary(rec.ID())
	require.NoError(t, err)
	require.Len(t, sum.Skills, 1)
	assert.Equal(t, skill.Mining, sum.Skills[0].ID)
}
