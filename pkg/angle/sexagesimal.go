package angle

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/soniakeys/unit"
)

// ParseError reports a string that could not be read as an angle.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse angle %q: %s", e.Input, e.Reason)
}

// Parse reads an angle in degrees from s. Accepted forms are "D", "D:M"
// and "D:M:S" where every field may carry a fraction, with an optional
// leading sign that applies to the whole value ("-0:30" is -0.5°).
func Parse(s string) (unit.Angle, error) {
	str := strings.TrimSpace(s)
	if str == "" {
		return 0, &ParseError{Input: s, Reason: "empty string"}
	}

	neg := false
	switch str[0] {
	case '-':
		neg = true
		str = str[1:]
	case '+':
		str = str[1:]
	}

	fields := strings.Split(str, ":")
	if len(fields) > 3 {
		return 0, &ParseError{Input: s, Reason: "too many fields"}
	}

	var parts [3]float64
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			return 0, &ParseError{Input: s, Reason: fmt.Sprintf("field %d is empty", i+1)}
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, &ParseError{Input: s, Reason: fmt.Sprintf("field %d is not a number", i+1)}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, &ParseError{Input: s, Reason: fmt.Sprintf("field %d is not finite", i+1)}
		}
		if v < 0 {
			return 0, &ParseError{Input: s, Reason: fmt.Sprintf("field %d is negative", i+1)}
		}
		parts[i] = v
	}

	a := unit.AngleFromDeg(parts[0]) + unit.AngleFromMin(parts[1]) + unit.AngleFromSec(parts[2])
	if neg {
		a = -a
	}
	return a, nil
}

// Format renders a as "D:MM:SS.s" degrees, the form Parse reads back.
func Format(a unit.Angle) string {
	return formatSexa(a.Deg(), 1, 0)
}

// FormatHours renders a right ascension as "H:MM:SS.ss".
func FormatHours(ra unit.RA) string {
	return formatSexa(ra.Hour(), 2, 24)
}

// formatSexa splits v into whole units, minutes and seconds rounded to
// the given number of decimals. When wrap is non-zero the whole units are
// taken modulo wrap, so 23:59:59.999 hours prints as 0:00:00.00.
func formatSexa(v float64, decimals int, wrap int64) string {
	neg := v < 0
	if neg {
		v = -v
	}

	scale := int64(math.Pow10(decimals))
	ticks := int64(math.Round(v * 3600 * float64(scale)))

	frac := ticks % scale
	secs := ticks / scale
	s := secs % 60
	m := (secs / 60) % 60
	whole := secs / 3600
	if wrap > 0 {
		whole %= wrap
	}

	sign := ""
	if neg && ticks != 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s%d:%02d:%02d.%0*d", sign, whole, m, s, decimals, frac)
}
