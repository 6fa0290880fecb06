package progression

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skillforge/internal/clock"
	"github.com/cory-johannsen/skillforge/internal/game/dice"
	"github.com/cory-johannsen/skillforge/internal/game/player"
	"github.com/cory-johannsen/skillforge/internal/game/skill"
	"github.com/cory-johannsen/skillforge/internal/game/stats"
	"github.com/cory-johannsen/skillforge/internal/messaging"
)

// epsilon absorbs float error when comparing skill totals against the cap.
const epsilon = 1e-9

// Outcome classifies a gain attempt.
type Outcome int

const (
	// OutcomeUnknownSkill means the skill ID is outside the catalog.
	OutcomeUnknownSkill Outcome = iota
	// OutcomeMaxed means the skill is already at 100.
	OutcomeMaxed
	// OutcomeRollFailed means the gain roll missed.
	OutcomeRollFailed
	// OutcomeCapped means the roll succeeded but no skill could be lowered to
	// make room under the total cap.
	OutcomeCapped
	// OutcomeGained means the skill rose.
	OutcomeGained
)

var outcomeNames = [...]string{"unknown_skill", "maxed", "roll_failed", "capped", "gained"}

// String returns the outcome name.
func (o Outcome) String() string {
	if o >= 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "outcome(?)"
}

// Attempt is the full result of one gain attempt.
type Attempt struct {
	Outcome Outcome
	Chance  float64
	Roll    float64
	Before  float64
	After   float64
	// Evicted is the skill lowered to make room; valid only when HasEvicted.
	Evicted    skill.ID
	HasEvicted bool
	EvictedTo  float64
	// StatsBefore and StatsAfter bracket the recompute that follows a gain.
	StatsBefore player.Stats
	StatsAfter  player.Stats
}

// Gained reports whether the skill rose.
func (a Attempt) Gained() bool { return a.Outcome == OutcomeGained }

// StatsObserver is told when a skill change moved the derived stats, after the
// record lock has been released.
type StatsObserver func(rec *player.Record, before, after player.Stats)

// Engine applies skill gains and checks to player records.
//
// Engine holds no per-player state; all methods are safe for concurrent use
// and serialize per record through Record.Update.
type Engine struct {
	cfg      Config
	roller   *dice.Roller
	clock    clock.Clock
	deriver  *stats.Deriver
	sink     messaging.Sink
	logger   *zap.Logger
	observer StatsObserver
}

// NewEngine creates an Engine.
//
// Precondition: roller, clk, deriver, sink and logger must be non-nil; cfg
// must pass Validate.
func NewEngine(cfg Config, roller *dice.Roller, clk clock.Clock, deriver *stats.Deriver, sink messaging.Sink, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		roller:  roller,
		clock:   clk,
		deriver: deriver,
		sink:    sink,
		logger:  logger.Named("progression"),
	}
}

// SetStatsObserver registers fn to run after any gain or set that changes the
// derived stats. Call before the engine is shared.
func (e *Engine) SetStatsObserver(fn StatsObserver) { e.observer = fn }

// Config returns the engine's tuning.
func (e *Engine) Config() Config { return e.cfg }

// GainChance returns the percent gain chance for a skill at value attempting
// a task at difficulty.
func (e *Engine) GainChance(value float64, difficulty int) float64 {
	return e.cfg.GainChance(value, difficulty)
}

// TryGain is the gain-attempt primitive called after any skill-relevant
// action. It reports whether the skill rose.
func (e *Engine) TryGain(rec *player.Record, id skill.ID, difficulty int) bool {
	return e.Attempt(rec, id, difficulty).Gained()
}

// Attempt runs one gain attempt and returns its full result.
//
// Postcondition: the skill's last-used time is now regardless of outcome. On
// OutcomeGained the total skill sum is at most TotalCap, the derived stats
// have been recomputed, and the record is dirty.
func (e *Engine) Attempt(rec *player.Record, id skill.ID, difficulty int) Attempt {
	entry, ok := skill.Lookup(id)
	if !ok {
		e.logger.Warn("gain attempt for unknown skill", zap.Stringer("player", rec.ID()), zap.Uint8("skill", uint8(id)))
		return Attempt{Outcome: OutcomeUnknownSkill}
	}

	now := e.clock.Now()
	var res Attempt
	rec.Update(func(s *player.State) {
		res = e.attemptLocked(s, id, difficulty, now)
	})

	e.report(rec, entry, res)
	return res
}

func (e *Engine) attemptLocked(s *player.State, id skill.ID, difficulty int, now time.Time) Attempt {
	target := &s.Skills[id]
	target.LastUsed = now
	res := Attempt{Before: target.Value, After: target.Value}

	if target.Value >= player.MaxSkill {
		res.Outcome = OutcomeMaxed
		return res
	}

	res.Chance = e.cfg.GainChance(target.Value, difficulty)
	var hit bool
	res.Roll, hit = e.roller.Check("skill_gain:"+id.String(), res.Chance)
	if !hit {
		res.Outcome = OutcomeRollFailed
		return res
	}

	gain := e.cfg.GainAmount
	if s.TotalSkill()+gain > e.cfg.TotalCap+epsilon {
		victim, found := leastRecentlyUsed(s, id)
		if !found || s.Skills[victim].Value+epsilon < gain {
			res.Outcome = OutcomeCapped
			return res
		}
		lowered := s.Skills[victim].Value - gain
		if lowered < epsilon {
			lowered = 0
		}
		s.Skills[victim].Value = lowered
		res.Evicted, res.HasEvicted, res.EvictedTo = victim, true, lowered
	}

	target.Value = min(target.Value+gain, player.MaxSkill)
	res.After = target.Value
	res.Outcome = OutcomeGained
	res.StatsBefore, res.StatsAfter = e.deriver.Recompute(s)
	return res
}

// leastRecentlyUsed returns the skill other than exclude with a positive value
// and the oldest last-used time. Ties go to the lowest ID.
func leastRecentlyUsed(s *player.State, exclude skill.ID) (skill.ID, bool) {
	var (
		best  skill.ID
		found bool
	)
	for id := skill.ID(0); id < skill.Count; id++ {
		if id == exclude || s.Skills[id].Value <= 0 {
			continue
		}
		if !found || s.Skills[id].LastUsed.Before(s.Skills[best].LastUsed) {
			best, found = id, true
		}
	}
	return best, found
}

func (e *Engine) report(rec *player.Record, entry skill.Entry, res Attempt) {
	switch res.Outcome {
	case OutcomeGained:
	case OutcomeCapped:
		e.logger.Debug("skill gain blocked by cap",
			zap.Stringer("player", rec.ID()),
			zap.String("skill", entry.Key),
		)
		e.sink.Notify(recipient(rec), messaging.KeySkillCapped, messaging.Params{"skill": entry.Name})
		return
	default:
		return
	}

	e.logger.Debug("skill gained",
		zap.Stringer("player", rec.ID()),
		zap.String("skill", entry.Key),
		zap.Float64("value", res.After),
		zap.Float64("chance", res.Chance),
	)
	to := recipient(rec)
	if res.HasEvicted {
		victim, _ := skill.Lookup(res.Evicted)
		e.logger.Info("skill lowered to stay under cap",
			zap.Stringer("player", rec.ID()),
			zap.String("skill", victim.Key),
			zap.Float64("value", res.EvictedTo),
			zap.String("gaining", entry.Key),
		)
		e.sink.Notify(to, messaging.KeySkillDecrease, messaging.Params{
			"skill": victim.Name, "amount": e.cfg.GainAmount, "value": res.EvictedTo,
		})
	}
	e.sink.Notify(to, messaging.KeySkillGain, messaging.Params{
		"skill": entry.Name, "amount": res.After - res.Before, "value": res.After,
	})
	e.statsChanged(rec, to, res.StatsBefore, res.StatsAfter)
}

func (e *Engine) statsChanged(rec *player.Record, to messaging.Recipient, before, after player.Stats) {
	if before == after {
		return
	}
	for a := skill.Str; a < skill.AxisCount; a++ {
		if before.Get(a) != after.Get(a) {
			e.sink.Notify(to, messaging.KeyStatChanged, messaging.Params{
				"stat": a.String(), "from": before.Get(a), "to": after.Get(a),
			})
		}
	}
	if e.observer != nil {
		e.observer(rec, before, after)
	}
}

// SetSkill is the administrative override: it sets skill id to value clamped
// to [0, 100] without cap enforcement, then recomputes derived stats. It
// reports false for an unknown skill.
//
// Postcondition: on true the record is dirty.
func (e *Engine) SetSkill(rec *player.Record, id skill.ID, value float64) bool {
	entry, ok := skill.Lookup(id)
	if !ok {
		return false
	}
	var before, after player.Stats
	var set float64
	rec.Update(func(s *player.State) {
		s.Skills[id].Value = min(max(value, 0), player.MaxSkill)
		set = s.Skills[id].Value
		before, after = e.deriver.Recompute(s)
	})
	e.logger.Info("skill set",
		zap.Stringer("player", rec.ID()),
		zap.String("skill", entry.Key),
		zap.Float64("value", set),
	)
	to := recipient(rec)
	e.sink.Notify(to, messaging.KeySkillSet, messaging.Params{"skill": entry.Name, "value": set})
	e.statsChanged(rec, to, before, after)
	return true
}

// CheckSuccess rolls a pass/fail check of skill id against difficulty. It
// never trains the skill.
func (e *Engine) CheckSuccess(rec *player.Record, id skill.ID, difficulty int) bool {
	var value float64
	rec.View(func(s *player.State) { value = s.Skill(id) })
	_, ok := e.roller.Check("skill_check:"+id.String(), e.cfg.SuccessChance(value, difficulty))
	return ok
}

func recipient(rec *player.Record) messaging.Recipient {
	return messaging.Recipient{ID: rec.ID(), Language: rec.Language()}
}
