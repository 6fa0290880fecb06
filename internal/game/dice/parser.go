package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Expression is a parsed damage expression. Two forms are accepted:
//
//	dice:  "d20", "2d6", "2d6+3", "4d8-2"
//	range: "11-13" (uniform integer in [Min, Max])
//
// Exactly one form is populated: Count > 0 for dice, Max > 0 for a range.
type Expression struct {
	Raw      string
	Count    int
	Sides    int
	Modifier int
	Min      int
	Max      int
}

// Upper bounds on the die count and on every other numeric term.
const (
	maxDice  = 1000
	maxValue = 1_000_000
)

var (
	diceExpr  = regexp.MustCompile(`^(\d*)d(\d+)([+-]\d+)?$`)
	rangeExpr = regexp.MustCompile(`^(\d+)-(\d+)$`)
)

// IsRange reports whether e is the "min-max" form.
func (e Expression) IsRange() bool { return e.Count == 0 && e.Max > 0 }

// Parse parses a damage expression.
//
// Precondition: expr must be non-empty.
// Postcondition: Returns a valid Expression or a descriptive error.
func Parse(expr string) (Expression, error) {
	s := strings.ToLower(strings.TrimSpace(expr))
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}

	if m := rangeExpr.FindStringSubmatch(s); m != nil {
		lo, err := term(m[1], maxValue)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid range minimum in %q: %w", expr, err)
		}
		hi, err := term(m[2], maxValue)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid range maximum in %q: %w", expr, err)
		}
		if hi < lo || hi == 0 {
			return Expression{}, fmt.Errorf("dice: invalid range %q: max must be >= min and > 0", expr)
		}
		return Expression{Raw: expr, Min: lo, Max: hi}, nil
	}

	m := diceExpr.FindStringSubmatch(s)
	if m == nil {
		return Expression{}, fmt.Errorf("dice: malformed expression %q", expr)
	}
	count := 1
	if m[1] != "" {
		n, err := term(m[1], maxDice)
		if err != nil || n <= 0 {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: must be 1-%d", expr, maxDice)
		}
		count = n
	}
	sides, err := term(m[2], maxValue)
	if err != nil || sides < 2 {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: must be 2-%d", expr, maxValue)
	}
	mod := 0
	if m[3] != "" {
		mod, err = strconv.Atoi(m[3])
		if err == nil && (mod > maxValue || mod < -maxValue) {
			err = fmt.Errorf("exceeds %d", maxValue)
		}
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", expr, err)
		}
	}
	return Expression{Raw: expr, Count: count, Sides: sides, Modifier: mod}, nil
}

// term parses an unsigned decimal no greater than limit.
func term(s string, limit int) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v > limit {
		return 0, fmt.Errorf("%d exceeds %d", v, limit)
	}
	return v, nil
}

// MustParse parses expr and panics on error. Useful for package-level values.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}
