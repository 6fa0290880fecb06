package combat

// minPrimaryMod keeps an untrained primary skill from zeroing damage.
const minPrimaryMod = 0.1

// DamageInput carries everything the weapon damage formula reads.
type DamageInput struct {
	BaseDamage float64
	Tactics    float64
	Anatomy    float64
	Str        int
	// Quality is the craft-quality multiplier (1.0 for normal).
	Quality float64
	// DamageIncrease is the aggregated enchantment bonus in percent.
	DamageIncrease float64
	TargetDefense  int
}

// MagicInput carries everything the spell damage formula reads. CastSkill
// plays the role of tactics and IntSkill the role of anatomy.
type MagicInput struct {
	BaseDamage     float64
	CastSkill      float64
	IntSkill       float64
	Int            int
	DamageIncrease float64
}

// Damage is the audit trail of one damage computation.
type Damage struct {
	PrimaryMod float64
	SupportMod float64
	StatMod    float64
	QualityMod float64
	DIMod      float64
	CritMod    float64
	CritChance float64
	CritRoll   float64
	Crit       bool
	Raw        float64
	Reduction  float64
	Final      float64
}

// Damage evaluates the weapon damage formula with the critical outcome fixed:
//
//	raw   = base * tactics * anatomy * str * quality * di * crit
//	final = raw * (1 - defense / (defense + K))
//
// Postcondition: Raw >= 0 and 0 <= Final <= Raw.
func (c Config) Damage(in DamageInput, crit bool) Damage {
	d := Damage{
		PrimaryMod: clamp(in.Tactics/100, minPrimaryMod, 1.0),
		SupportMod: 0.5 + max(in.Anatomy, 0)/100,
		StatMod:    1 + float64(max(in.Str, 0))/200,
		QualityMod: nonNegative(in.Quality),
		DIMod:      1 + max(in.DamageIncrease, 0)/100,
		CritMod:    1.0,
		CritChance: c.CritChance(in.Anatomy),
		Crit:       crit,
	}
	if crit {
		d.CritMod = c.CritMultiplier
	}
	d.Raw = nonNegative(in.BaseDamage) * d.PrimaryMod * d.SupportMod * d.StatMod * d.QualityMod * d.DIMod * d.CritMod
	d.Reduction = c.DefenseReduction(in.TargetDefense)
	d.Final = nonNegative(d.Raw * (1 - d.Reduction))
	return d
}

// MagicDamage evaluates the spell damage formula with the critical outcome
// fixed. Spells ignore physical defense and quality; the defender's resist is
// applied separately by DefendMagical.
//
// Postcondition: Final == Raw >= 0.
func (c Config) MagicDamage(in MagicInput, crit bool) Damage {
	d := Damage{
		PrimaryMod: clamp(in.CastSkill/100, minPrimaryMod, 1.0),
		SupportMod: 0.5 + max(in.IntSkill, 0)/100,
		StatMod:    1 + float64(max(in.Int, 0))/200,
		QualityMod: 1.0,
		DIMod:      1 + max(in.DamageIncrease, 0)/100,
		CritMod:    1.0,
		CritChance: c.CritChance(in.IntSkill),
		Crit:       crit,
	}
	if crit {
		d.CritMod = c.CritMultiplier
	}
	d.Raw = nonNegative(in.BaseDamage) * d.PrimaryMod * d.SupportMod * d.StatMod * d.DIMod * d.CritMod
	d.Final = d.Raw
	return d
}

func nonNegative(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}
