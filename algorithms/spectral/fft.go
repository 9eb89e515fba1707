package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality backed by mjibson/go-dsp
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the complex spectrum of a real signal
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	// go-dsp handles non-power-of-2 sizes with Bluestein's algorithm
	return fft.FFTReal(x)
}

// MagnitudeSpectrumInto writes |X[k]| for the first len(x)/2 bins, the
// non-redundant half of a real signal's spectrum, into dst. dst grows when
// needed (nil is fine) and the filled slice is returned.
func (f *FFT) MagnitudeSpectrumInto(dst []float64, x []float64) []float64 {
	bins := len(x) / 2
	if cap(dst) < bins {
		dst = make([]float64, bins)
	}
	dst = dst[:bins]
	if bins == 0 {
		return dst
	}

	spectrum := f.Compute(x)
	for k := range bins {
		dst[k] = cmplx.Abs(spectrum[k])
	}
	return dst
}
