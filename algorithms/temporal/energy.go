package temporal

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// MinLevelDBFS is reported for digital silence
const MinLevelDBFS = -120.0

// RMS returns the root-mean-square amplitude of a signal
func RMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(signal, signal) / float64(len(signal)))
}

// LevelDBFS converts an RMS amplitude to decibels relative to full scale,
// floored at MinLevelDBFS. NaN input yields MinLevelDBFS.
func LevelDBFS(rms float64) float64 {
	if !(rms > 0) {
		return MinLevelDBFS
	}
	return math.Max(MinLevelDBFS, 20*math.Log10(rms))
}
