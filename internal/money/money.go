// Package money keeps balance arithmetic at two decimal places so repeated
// credits and debits do not accumulate floating point drift.
package money

import "math"

// Round rounds to two decimal places. Every balance mutation goes through it.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}

// GTE reports a >= b on the rounded values.
func GTE(a, b float64) bool {
	return Round(a) >= Round(b)
}
