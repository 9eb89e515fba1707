package filters

import (
	"math"
)

// DefaultHighPassCutoff is the cutoff used ahead of onset detection.
// Content below it (rumble, DC, sub-bass swells) would otherwise dominate
// frame-to-frame energy changes.
const DefaultHighPassCutoff = 100.0

// HighPass implements a single-pole RC high-pass filter.
//
// References:
//   - Julius O. Smith III, "Introduction to Digital Filters with Audio Applications"
//     https://ccrma.stanford.edu/~jos/filters/
//
// The smoothing factor is derived from the analog RC prototype:
//
//	rc    = 1 / (2*pi*fc)
//	dt    = 1 / fs
//	alpha = rc / (rc + dt)
//
// and the filter runs the difference equation
//
//	y[n] = alpha * (y[n-1] + x[n] - x[n-1])
//
// It is a rumble/DC suppressor, not a designed frequency response.
type HighPass struct {
	cutoffFreq float64 // -3dB cutoff frequency in Hz
	sampleRate int     // Sample rate in Hz
	alpha      float64

	// State variables
	x1 float64 // Previous input sample x[n-1]
	y1 float64 // Previous output sample y[n-1]

	primed bool // false until the first sample has passed through
}

// NewHighPass creates a high-pass filter for the given sample rate and
// cutoff frequency. A non-positive cutoff falls back to DefaultHighPassCutoff.
func NewHighPass(sampleRate int, cutoffFreq float64) *HighPass {
	if cutoffFreq <= 0 {
		cutoffFreq = DefaultHighPassCutoff
	}

	hp := &HighPass{
		sampleRate: sampleRate,
		cutoffFreq: cutoffFreq,
	}
	hp.computeAlpha()
	return hp
}

func (hp *HighPass) computeAlpha() {
	rc := 1.0 / (hp.cutoffFreq * 2.0 * math.Pi)
	dt := 1.0 / float64(hp.sampleRate)
	hp.alpha = rc / (rc + dt)
}

// Process filters a single sample.
// The first sample after construction or Reset passes through unchanged
// since there is no history to difference against.
func (hp *HighPass) Process(input float64) float64 {
	if !hp.primed {
		hp.primed = true
		hp.x1 = input
		hp.y1 = input
		return input
	}

	output := hp.alpha * (hp.y1 + input - hp.x1)

	hp.x1 = input
	hp.y1 = output

	return output
}

// ProcessBuffer filters an entire buffer and returns a new slice of the
// same length. The filter state is reset first, so every call is independent.
func (hp *HighPass) ProcessBuffer(input []float64) []float64 {
	hp.Reset()

	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = hp.Process(sample)
	}
	return output
}

// Reset clears the filter's internal state.
func (hp *HighPass) Reset() {
	hp.x1 = 0.0
	hp.y1 = 0.0
	hp.primed = false
}

// CutoffFrequency returns the configured cutoff in Hz.
func (hp *HighPass) CutoffFrequency() float64 {
	return hp.cutoffFreq
}
