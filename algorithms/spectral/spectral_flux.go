package spectral

// SpectralFlux measures how much spectral energy rises between two frames
type SpectralFlux struct{}

// NewSpectralFlux creates a new spectral flux calculator
func NewSpectralFlux() *SpectralFlux {
	return &SpectralFlux{}
}

// Positive returns the half-wave rectified flux between two magnitude
// spectra: the sum over bins of max(0, current-previous). Only rising
// energy counts, since onsets correlate with energy increases.
//
// An empty previous spectrum is treated as silence.
func (sf *SpectralFlux) Positive(previous, current []float64) float64 {
	sum := 0.0
	for k, mag := range current {
		prev := 0.0
		if k < len(previous) {
			prev = previous[k]
		}
		if diff := mag - prev; diff > 0 {
			sum += diff
		}
	}
	return sum
}
