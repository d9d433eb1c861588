package errors

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ValidateEnum checks that value is one of allowed.
// The comparison is exact; callers normalize case beforehand.
func ValidateEnum(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return New(ErrCodeInvalidInput, "invalid %s: %q (must be one of: %s)", field, value, strings.Join(allowed, ", "))
}

// ValidateRange checks that lo <= value <= hi.
func ValidateRange(field string, value, lo, hi int) error {
	if value < lo || value > hi {
		return New(ErrCodeInvalidInput, "invalid %s: %d (must be between %d and %d)", field, value, lo, hi)
	}
	return nil
}

// ValidateNonNegative checks that value >= 0.
func ValidateNonNegative(field string, value int) error {
	if value < 0 {
		return New(ErrCodeInvalidInput, "invalid %s: %d (must not be negative)", field, value)
	}
	return nil
}

// ParseInt parses a form field as an integer.
//
// Values such as "4.0" are accepted and truncated toward zero, since browser
// range inputs occasionally serialize numbers that way. An empty string is
// reported as ok=false so callers can substitute a default. Values beyond
// the int range saturate to math.MaxInt or math.MinInt.
func ParseInt(field, raw string) (n int, ok bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	if i, err := strconv.Atoi(raw); err == nil {
		return i, true, nil
	}
	f, ferr := strconv.ParseFloat(raw, 64)
	if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, New(ErrCodeInvalidInput, "invalid %s: %q is not a number", field, raw)
	}
	// Saturate: converting an out-of-range float to int is undefined.
	switch {
	case f >= math.MaxInt:
		return math.MaxInt, true, nil
	case f <= math.MinInt:
		return math.MinInt, true, nil
	}
	return int(f), true, nil
}

// ValidateToken checks that s is a short, printable token with no control
// characters. It guards free-form strings that end up in log lines or
// history records.
func ValidateToken(field, s string) error {
	const maxLen = 64
	if len(s) > maxLen {
		return New(ErrCodeInvalidInput, "%s too long (max %d characters)", field, maxLen)
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s contains invalid control characters", field)
		}
	}
	return nil
}
