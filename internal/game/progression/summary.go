package progression

import (
	"sort"

	"github.com/cory-johannsen/skillforge/internal/game/player"
	"github.com/cory-johannsen/skillforge/internal/game/skill"
)

// SkillLine is one row of a Summary.
type SkillLine struct {
	ID       skill.ID
	Name     string
	Category skill.Category
	Value    float64
}

// Summary is a read-only view of a player's skills for UI surfaces.
type Summary struct {
	Total      float64
	Cap        float64
	ByCategory map[skill.Category]float64
	// Skills lists every trained skill, highest value first, ties by ID.
	Skills []SkillLine
}

// Remaining returns the points left under the cap.
func (s Summary) Remaining() float64 { return max(s.Cap-s.Total, 0) }

// Summary snapshots rec's skills.
func (e *Engine) Summary(rec *player.Record) Summary {
	st := rec.Snapshot()
	out := Summary{Cap: e.cfg.TotalCap, ByCategory: make(map[skill.Category]float64)}
	for _, entry := range skill.All() {
		v := st.Skills[entry.ID].Value
		out.Total += v
		out.ByCategory[entry.Category] += v
		if v > 0 {
			out.Skills = append(out.Skills, SkillLine{ID: entry.ID, Name: entry.Name, Category: entry.Category, Value: v})
		}
	}
	sort.SliceStable(out.Skills, func(i, j int) bool {
		return out.Skills[i].Value > out.Skills[j].Value
	})
	return out
}
