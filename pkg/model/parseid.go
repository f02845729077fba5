package model

import (
	"math"
	"strconv"
)

// ParseID normalizes a loosely typed identifier to an int64 primary key.
// Accepted forms are positive integers of any width, positive floats with no
// fractional part, and strings made of decimal digits. Everything else,
// including negative numbers and zero, reports false; lookups treat that as
// no match rather than an error.
func ParseID(id any) (int64, bool) {
	switch v := id.(type) {
	case int:
		return checkID(int64(v))
	case int8:
		return checkID(int64(v))
	case int16:
		return checkID(int64(v))
	case int32:
		return checkID(int64(v))
	case int64:
		return checkID(v)
	case uint:
		return checkID(int64(v))
	case uint8:
		return checkID(int64(v))
	case uint16:
		return checkID(int64(v))
	case uint32:
		return checkID(int64(v))
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return checkID(int64(v))
	case float32:
		return parseFloatID(float64(v))
	case float64:
		return parseFloatID(v)
	case string:
		if v == "" {
			return 0, false
		}
		for _, r := range v {
			if r < '0' || r > '9' {
				return 0, false
			}
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return checkID(n)
	default:
		return 0, false
	}
}

func parseFloatID(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Trunc(f) != f || f > math.MaxInt64 {
		return 0, false
	}
	return checkID(int64(f))
}

func checkID(n int64) (int64, bool) {
	if n <= 0 {
		return 0, false
	}
	return n, true
}
