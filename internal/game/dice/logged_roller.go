package dice

import "go.uber.org/zap"

// Roller wraps a Source with debug logging of every check and damage roll.
// It is the only roll entry point used by the progression and combat engines.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that draws from src and logs to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Check rolls a percentile and reports whether it landed strictly under chance.
//
// Postcondition: ok == (roll < chance); a chance <= 0 never succeeds and a
// chance >= 100 always does.
func (r *Roller) Check(purpose string, chance float64) (roll float64, ok bool) {
	roll = Percent(r.src)
	ok = roll < chance
	r.logger.Debug("percentile check",
		zap.String("purpose", purpose),
		zap.Float64("chance", chance),
		zap.Float64("roll", roll),
		zap.Bool("success", ok),
	)
	return roll, ok
}

// Roll evaluates expr and logs the result at debug level.
func (r *Roller) Roll(expr Expression) RollResult {
	result := Roll(expr, r.src)
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result
}
