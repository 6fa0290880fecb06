package dice

// Roll evaluates expr using src.
//
// Precondition: expr must come from Parse; src must be non-nil.
// Postcondition: result.Total() is within the expression's bounds.
func Roll(expr Expression, src Source) RollResult {
	if expr.IsRange() {
		v := expr.Min + src.Intn(expr.Max-expr.Min+1)
		return RollResult{Expression: expr.Raw, Dice: []int{v}}
	}
	rolled := make([]int, expr.Count)
	for i := range rolled {
		rolled[i] = src.Intn(expr.Sides) + 1
	}
	return RollResult{Expression: expr.Raw, Dice: rolled, Modifier: expr.Modifier}
}

// Bounds returns the minimum and maximum totals expr can produce.
func (e Expression) Bounds() (lo, hi int) {
	if e.IsRange() {
		return e.Min, e.Max
	}
	return e.Count + e.Modifier, e.Count*e.Sides + e.Modifier
}
