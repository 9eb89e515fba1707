package common

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Basic statistical helpers shared by the analysis stages, backed by gonum

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// TailMean returns the mean of the last n values of data.
// If data holds fewer than n values the whole slice is averaged.
func TailMean(data []float64, n int) float64 {
	if len(data) == 0 || n <= 0 {
		return 0.0
	}
	if n > len(data) {
		n = len(data)
	}
	return stat.Mean(data[len(data)-n:], nil)
}

// RelativeDeviation returns |value-reference|/reference.
// A non-positive reference yields +Inf so callers never divide by zero.
func RelativeDeviation(value, reference float64) float64 {
	if reference <= 0 {
		return math.Inf(1)
	}
	return math.Abs(value-reference) / reference
}

// IsFinite reports whether v is neither NaN nor infinite
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AllFinite reports whether every value in data is finite
func AllFinite(data []float64) bool {
	for _, v := range data {
		if !IsFinite(v) {
			return false
		}
	}
	return true
}
