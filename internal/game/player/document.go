package player

import (
	"fmt"
	"math"
	"time"

	"github.com/cory-johannsen/skillforge/internal/game/skill"
)

// SkillRow is the persisted form of one skill.
type SkillRow struct {
	Key      string    `json:"key"`
	Value    float64   `json:"value"`
	LastUsed time.Time `json:"last_used"`
}

// Document is the storage-neutral persisted form of a Record: the scalar
// fields plus exactly one row per catalog skill.
type Document struct {
	Identity   Identity   `json:"identity"`
	Name       string     `json:"name"`
	HP         float64    `json:"hp"`
	MaxHP      float64    `json:"max_hp"`
	Mana       float64    `json:"mana"`
	MaxMana    float64    `json:"max_mana"`
	Stamina    float64    `json:"stamina"`
	MaxStamina float64    `json:"max_stamina"`
	Str        int        `json:"str"`
	Dex        int        `json:"dex"`
	Int        int        `json:"int"`
	StrLock    string     `json:"str_lock"`
	DexLock    string     `json:"dex_lock"`
	IntLock    string     `json:"int_lock"`
	Language   string     `json:"language"`
	Skills     []SkillRow `json:"skills"`
}

// Document captures the record for persistence and returns the version it
// reflects; pass that version to MarkSaved once the write is confirmed.
func (r *Record) Document() (Document, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := &r.state
	doc := Document{
		Identity:   r.id,
		Name:       s.Name,
		HP:         s.HP,
		MaxHP:      s.MaxHP,
		Mana:       s.Mana,
		MaxMana:    s.MaxMana,
		Stamina:    s.Stamina,
		MaxStamina: s.MaxStamina,
		Str:        s.Stats.Str,
		Dex:        s.Stats.Dex,
		Int:        s.Stats.Int,
		StrLock:    s.Locks[skill.Str].String(),
		DexLock:    s.Locks[skill.Dex].String(),
		IntLock:    s.Locks[skill.Int].String(),
		Language:   s.Language,
		Skills:     make([]SkillRow, 0, skill.Count),
	}
	for id := skill.ID(0); id < skill.Count; id++ {
		doc.Skills = append(doc.Skills, SkillRow{
			Key:      id.String(),
			Value:    s.Skills[id].Value,
			LastUsed: s.Skills[id].LastUsed,
		})
	}
	return doc, r.version
}

// FromDocument rebuilds a Record from its persisted form, sanitizing instead
// of rejecting: unknown or duplicate skill rows are skipped, out-of-range
// values are clamped, and skills with no row default to 0 last used at now.
// Each repair is described in issues.
//
// Postcondition: the returned record satisfies every State invariant. It is
// clean unless a repair was needed, in which case it is dirty so the repaired
// form gets written back.
func FromDocument(doc Document, now time.Time) (rec *Record, issues []string) {
	rec = &Record{id: doc.Identity}
	s := &rec.state
	s.Name = doc.Name
	s.HP, s.MaxHP = doc.HP, doc.MaxHP
	s.Mana, s.MaxMana = doc.Mana, doc.MaxMana
	s.Stamina, s.MaxStamina = doc.Stamina, doc.MaxStamina
	s.Stats = Stats{Str: doc.Str, Dex: doc.Dex, Int: doc.Int}
	s.Language = doc.Language

	for a, raw := range [skill.AxisCount]string{doc.StrLock, doc.DexLock, doc.IntLock} {
		mode, err := ParseLockMode(raw)
		if err != nil {
			issues = append(issues, fmt.Sprintf("%s lock: %v", skill.Axis(a), err))
		}
		s.Locks[a] = mode
	}

	var seen [skill.Count]bool
	for _, row := range doc.Skills {
		id, err := skill.ByKey(row.Key)
		if err != nil {
			issues = append(issues, fmt.Sprintf("skipping skill row: %v", err))
			continue
		}
		if seen[id] {
			issues = append(issues, fmt.Sprintf("skipping duplicate skill row %q", row.Key))
			continue
		}
		seen[id] = true
		v := row.Value
		if math.IsNaN(v) || v < 0 || v > MaxSkill {
			issues = append(issues, fmt.Sprintf("clamping skill %q value %v", row.Key, row.Value))
		}
		last := row.LastUsed
		if last.IsZero() {
			last = now
		}
		s.Skills[id] = SkillRecord{Value: v, LastUsed: last}
	}
	for id := range s.Skills {
		if !seen[id] {
			s.Skills[id] = SkillRecord{LastUsed: now}
		}
	}

	for _, st := range []struct {
		name string
		v    int
	}{{"str", doc.Str}, {"dex", doc.Dex}, {"int", doc.Int}} {
		if st.v < 0 || st.v > MaxStat {
			issues = append(issues, fmt.Sprintf("clamping %s %d", st.name, st.v))
		}
	}

	s.normalize()
	if len(issues) > 0 {
		rec.version = 1
	}
	return rec, issues
}
