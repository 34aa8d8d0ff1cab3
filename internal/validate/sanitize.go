package validate

import "strings"

// MaxIntegerDigits caps the whole-dollar part of a typed amount.
const MaxIntegerDigits = 7

// SanitizeNumericInput drops everything but digits and the first decimal
// point, then truncates the integer part to MaxIntegerDigits. Applying it twice
// gives the same result as applying it once.
func SanitizeNumericInput(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	seenDot := false
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !seenDot:
			seenDot = true
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	intPart, frac, hasDot := strings.Cut(cleaned, ".")
	if len(intPart) > MaxIntegerDigits {
		intPart = intPart[:MaxIntegerDigits]
	}
	if hasDot {
		return intPart + "." + frac
	}
	return intPart
}
