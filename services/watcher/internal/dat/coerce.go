package dat

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the datalogger timestamp format.
const TimestampLayout = "2006-01-02 15:04:05"

// ParseTimestamp coerces a raw timestamp token into an instant in loc.
// Quotes are stripped; empty sentinels and format mismatches yield nil.
func ParseTimestamp(raw string, loc *time.Location) *time.Time {
	s := strings.TrimSpace(strings.ReplaceAll(raw, `"`, ""))
	switch s {
	case "", "nan", "NAN", "0":
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(TimestampLayout, s, loc)
	if err != nil {
		return nil
	}
	return &t
}

// ParseFloat coerces a raw numeric token. Unparseable, NaN and infinite
// values yield nil.
func ParseFloat(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ParseInt coerces a raw integer token, accepting float notation and
// truncating toward zero. Missing values yield 0.
func ParseInt(raw string) int {
	v := ParseFloat(raw)
	if v == nil || *v > math.MaxInt32 || *v < math.MinInt32 {
		return 0
	}
	return int(*v)
}
