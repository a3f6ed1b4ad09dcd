// Package year validates construction years and classifies them into historical eras.
package year

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Unknown is the sentinel for a missing or invalid construction year.
const Unknown Year = -1

// Earliest is the oldest construction year accepted as plausible.
const Earliest = 1700

// Year is a normalized construction year: either a value in
// [Earliest, current year] or Unknown.
type Year int

// Known reports whether y carries a real construction year.
func (y Year) Known() bool {
	return y != Unknown
}

// Int returns the year as a plain int (-1 for Unknown).
func (y Year) Int() int {
	return int(y)
}

// Normalize maps a raw attribute value to a Year.
// It never fails: anything that is absent, non-numeric or out of
// [Earliest, currentYear] becomes Unknown.
func Normalize(raw any, currentYear int) Year {
	v, ok := toInt(raw)
	if !ok {
		return Unknown
	}
	if v < Earliest || v > int64(currentYear) {
		return Unknown
	}
	return Year(v)
}

// toInt converts the scalar types produced by the dataset readers.
// Floats are truncated toward zero; strings must hold a base-10 integer.
func toInt(raw any) (int64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	t := math.Trunc(f)
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return 0, false
	}
	return int64(t), true
}
