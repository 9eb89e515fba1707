package tempo

import (
	"math"
	"math/rand"
)

const testSampleRate = 44100

// clickTrack places unit impulses every 60/bpm seconds starting at offset
func clickTrack(bpm, seconds, offset, amplitude float64) []float64 {
	signal := make([]float64, int(seconds*testSampleRate))
	addClicks(signal, bpm, offset, amplitude)
	return signal
}

func addClicks(signal []float64, bpm, offset, amplitude float64) {
	period := 60.0 / bpm
	for k := 0; ; k++ {
		idx := int(math.Round((offset + float64(k)*period) * testSampleRate))
		if idx >= len(signal) {
			return
		}
		signal[idx] += amplitude
	}
}

func fullWindow(samples []float64) SampleWindow {
	return SampleWindow{
		Samples:    samples,
		SampleRate: testSampleRate,
		Start:      0,
		End:        float64(len(samples)) / testSampleRate,
	}
}

// withNoise adds seeded Gaussian noise of standard deviation sigma
func withNoise(signal []float64, sigma float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	for i := range signal {
		signal[i] += rng.NormFloat64() * sigma
	}
	return signal
}
