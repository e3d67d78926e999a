package core

import (
	"math"
	"strconv"
	"strings"
)

// MaxCalories caps coerced calorie values so they always fit an int32 column.
const MaxCalories = math.MaxInt32

// NormalizeName trims surrounding whitespace and rejects an empty result.
func NormalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	return trimmed, nil
}

// CoerceCalories turns raw user input into a non-negative integer. It follows
// the number syntax a browser form would accept: surrounding whitespace is
// ignored, an empty value is 0, decimal, exponent and 0x/0o/0b forms are
// accepted and the fractional part is dropped. Anything malformed, negative or
// non-finite becomes 0.
func CoerceCalories(raw string) int {
	s := strings.TrimSpace(raw)
	if s == "" || strings.Contains(s, "_") {
		return 0
	}

	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return 0
			}
			if n > MaxCalories {
				return MaxCalories
			}
			return int(n)
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return ClampCalories(f)
}

// ClampCalories truncates f toward zero and clamps it into [0, MaxCalories].
func ClampCalories(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f >= MaxCalories {
		return MaxCalories
	}
	return int(math.Trunc(f))
}
