package messaging

// Message keys emitted by the core. Every key must exist in the base locale.
const (
	KeySkillGain     = "skill.gain"
	KeySkillDecrease = "skill.decrease"
	KeySkillCapped   = "skill.cap_reached"
	KeySkillSet      = "skill.set"
	KeyStatChanged   = "stat.changed"
	KeyCriticalHit   = "combat.critical_hit"
	KeyParried       = "combat.parried"
	KeyResisted      = "combat.resisted"
	KeyMissed        = "combat.missed"
	KeyWelcome       = "player.welcome"
	KeyWelcomeBack   = "player.welcome_back"
)

// Keys lists every key the core emits.
func Keys() []string {
	return []string{
		KeySkillGain, KeySkillDecrease, KeySkillCapped, KeySkillSet,
		KeyStatChanged, KeyCriticalHit, KeyParried, KeyResisted,
		KeyMissed, KeyWelcome, KeyWelcomeBack,
	}
}
