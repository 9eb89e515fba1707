package temporal

import "math"

// clickTrack places impulses of the given amplitude every 60/bpm seconds,
// starting at offset seconds.
func clickTrack(sampleRate int, bpm, seconds, offset, amplitude float64) []float64 {
	signal := make([]float64, int(seconds*float64(sampleRate)))
	addClicks(signal, sampleRate, bpm, offset, amplitude)
	return signal
}

func addClicks(signal []float64, sampleRate int, bpm, offset, amplitude float64) {
	period := 60.0 / bpm
	for k := 0; ; k++ {
		idx := int(math.Round((offset + float64(k)*period) * float64(sampleRate)))
		if idx >= len(signal) {
			return
		}
		signal[idx] += amplitude
	}
}
