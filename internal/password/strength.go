package password

import (
	"strings"
	"unicode"
)

type Strength string

const (
	StrengthWeak   Strength = "weak"
	StrengthMedium Strength = "medium"
	StrengthStrong Strength = "strong"
)

// Score rates pw 0..6: up to 2 points for length, one per character class.
func Score(pw string) int {
	score := 0
	switch n := len([]rune(pw)); {
	case n >= 12:
		score += 2
	case n >= 8:
		score++
	}

	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(Symbols, r):
			symbol = true
		}
	}
	for _, has := range []bool{upper, lower, digit, symbol} {
		if has {
			score++
		}
	}
	return score
}

func Evaluate(pw string) Strength {
	switch s := Score(pw); {
	case s >= 5:
		return StrengthStrong
	case s >= 3:
		return StrengthMedium
	default:
		return StrengthWeak
	}
}
