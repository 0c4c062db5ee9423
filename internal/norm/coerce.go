package norm

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Float coerces a decoded JSON value into a float64. Accepts numbers,
// json.Number and numeric strings. Returns ok=false for anything else.
func Float(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// Int coerces a decoded JSON value into an int.
func Int(v any) (int, bool) {
	f, ok := Float(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Time normalizes a decoded JSON timestamp value to UTC. Accepts RFC 3339
// strings (with or without fractional seconds, "Z" or numeric offsets),
// bare "2006-01-02T15:04:05" strings, and epoch numbers in seconds,
// milliseconds, microseconds or nanoseconds (disambiguated by magnitude).
func Time(v any) (time.Time, bool) {
	switch ts := v.(type) {
	case time.Time:
		return ts.UTC(), true
	case string:
		s := strings.TrimSpace(ts)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return epochToTime(f), true
		}
		return time.Time{}, false
	default:
		if f, ok := Float(v); ok {
			return epochToTime(f), true
		}
	}
	return time.Time{}, false
}

// epochToTime guesses the epoch unit from magnitude. Anything before ~2001
// in seconds is still seconds; feeds do not carry sub-1970 bars.
func epochToTime(f float64) time.Time {
	abs := math.Abs(f)
	switch {
	case abs >= 1e17: // nanoseconds
		return time.Unix(0, int64(f)).UTC()
	case abs >= 1e14: // microseconds
		return time.UnixMicro(int64(f)).UTC()
	case abs >= 1e11: // milliseconds
		return time.UnixMilli(int64(f)).UTC()
	default: // seconds
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}
}

// field returns the first present key from a payload map.
func field(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// floatField coerces the first present key to a float64.
func floatField(m map[string]any, keys ...string) (float64, bool) {
	v, ok := field(m, keys...)
	if !ok {
		return 0, false
	}
	return Float(v)
}

// stringField returns the first present key as a string.
func stringField(m map[string]any, keys ...string) string {
	v, ok := field(m, keys...)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// timeField normalizes the first present key to a UTC timestamp.
func timeField(m map[string]any, keys ...string) (time.Time, bool) {
	v, ok := field(m, keys...)
	if !ok {
		return time.Time{}, false
	}
	return Time(v)
}
