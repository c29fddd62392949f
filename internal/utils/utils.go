package utils

import (
	"strconv"
)

// F64ToS converts float to string using the maximum accuracy
func F64ToS(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ClampI clamps v to [lo, hi]
func ClampI(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
