package grading

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// DefaultPassingThreshold is the pass mark used when an exam does not set one.
const DefaultPassingThreshold = 60.0

// ResolveThreshold turns a loosely typed pass mark into a number. Absent,
// non-numeric, negative and non-finite values yield fallback.
func ResolveThreshold(v interface{}, fallback float64) float64 {
	var f float64

	switch t := v.(type) {
	case nil:
		return fallback
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case *float64:
		if t == nil {
			return fallback
		}
		f = *t
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return fallback
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return fallback
		}
		f = n
	default:
		return fallback
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return fallback
	}
	return f
}

// ParseThreshold resolves a pass mark straight from its JSON encoding.
func ParseThreshold(raw json.RawMessage, fallback float64) float64 {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fallback
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return fallback
	}
	return ResolveThreshold(v, fallback)
}
