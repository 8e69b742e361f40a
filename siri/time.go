package siri

import (
	"strconv"
	"strings"
	"time"
)

// timeLayout is the BODS datetime shape: UTC, millisecond precision, literal
// trailing Z rather than a numeric offset.
const timeLayout = "2006-01-02T15:04:05.000Z"

// FormatTime renders a timestamp the way BODS consumers validate it.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ParseTime is the inverse of FormatTime.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// formatDecimal renders a float as locale-independent, non-exponential
// decimal text with at least one fractional digit, so 45.0 stays "45.0" and
// a zero velocity stays "0.0".
func formatDecimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
