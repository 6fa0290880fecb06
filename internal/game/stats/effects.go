package stats

import "github.com/cory-johannsen/skillforge/internal/game/player"

// Effects are the gameplay bonuses that follow from a stat line. Percentages
// are expressed in percent points (12.5 means +12.5%).
type Effects struct {
	BonusHP           float64
	GatherSpeed       float64
	AttackSpeed       float64
	MovementSpeed     float64
	ManaCostReduction float64
	CastSuccessBonus  float64
}

// BonusHP is one flat hit point per STR.
func BonusHP(str int) float64 { return float64(str) }

// GatherSpeedBonus is +0.1% mining and lumber speed per STR.
func GatherSpeedBonus(str int) float64 { return 0.1 * float64(str) }

// AttackSpeedBonus is +0.5% attack speed per DEX.
func AttackSpeedBonus(dex int) float64 { return 0.5 * float64(dex) }

// MovementSpeedBonus is +0.1% movement speed per DEX.
func MovementSpeedBonus(dex int) float64 { return 0.1 * float64(dex) }

// ManaCostReduction is -0.5% spell mana cost per INT.
func ManaCostReduction(in int) float64 { return 0.5 * float64(in) }

// CastSuccessBonus is +0.2% cast success per INT.
func CastSuccessBonus(in int) float64 { return 0.2 * float64(in) }

// EffectsOf evaluates every curve for st.
func EffectsOf(st player.Stats) Effects {
	return Effects{
		BonusHP:           BonusHP(st.Str),
		GatherSpeed:       GatherSpeedBonus(st.Str),
		AttackSpeed:       AttackSpeedBonus(st.Dex),
		MovementSpeed:     MovementSpeedBonus(st.Dex),
		ManaCostReduction: ManaCostReduction(st.Int),
		CastSuccessBonus:  CastSuccessBonus(st.Int),
	}
}

// ManaCost applies the INT reduction to a base spell cost.
//
// Postcondition: 0 <= result <= base for base >= 0.
func ManaCost(base float64, in int) float64 {
	cost := base * (1 - ManaCostReduction(in)/100)
	if cost < 0 {
		return 0
	}
	return cost
}
