package tempo

import (
	"fmt"
	"math"
)

// SampleWindow is the mono input to one analysis: channel-0 samples of the
// selected region and the [Start, End) time range, in seconds, they were
// sliced from.
type SampleWindow struct {
	Samples    []float64
	SampleRate int
	Start      float64
	End        float64
}

// NewSampleWindow slices [start, end) seconds out of a decoded channel.
// The samples are copied so the window owns its data. An end beyond the
// channel is clamped to its length; a negative end means "to the end".
func NewSampleWindow(channel []float64, sampleRate int, start, end float64) (SampleWindow, error) {
	if sampleRate <= 0 {
		return SampleWindow{}, fmt.Errorf("%w: sample rate must be positive: %d", ErrInvalidRange, sampleRate)
	}

	total := float64(len(channel)) / float64(sampleRate)
	if end < 0 || end > total {
		end = total
	}
	if start < 0 || math.IsNaN(start) || math.IsNaN(end) || start >= end {
		return SampleWindow{}, fmt.Errorf("%w: window [%.3f, %.3f) of a %.3fs signal", ErrInvalidRange, start, end, total)
	}

	from := int(math.Round(start * float64(sampleRate)))
	to := int(math.Round(end * float64(sampleRate)))
	to = min(to, len(channel))

	samples := make([]float64, to-from)
	copy(samples, channel[from:to])

	return SampleWindow{
		Samples:    samples,
		SampleRate: sampleRate,
		Start:      start,
		End:        end,
	}, nil
}

// Duration returns the window length in seconds
func (w SampleWindow) Duration() float64 {
	return w.End - w.Start
}

func (w SampleWindow) validate() error {
	if w.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive: %d", ErrInvalidRange, w.SampleRate)
	}
	if !(w.Start >= 0) || !(w.Duration() > 0) {
		return fmt.Errorf("%w: window [%.3f, %.3f) has no duration", ErrInvalidRange, w.Start, w.End)
	}
	if len(w.Samples) == 0 {
		return fmt.Errorf("%w: window holds no samples", ErrInvalidRange)
	}

	// The beat grid spans Duration, so it must describe the samples actually
	// held. Rounding both edges to whole samples moves it by at most one period.
	period := 1 / float64(w.SampleRate)
	held := float64(len(w.Samples)) * period
	if math.Abs(w.Duration()-held) > period*(1+1e-9) {
		return fmt.Errorf("%w: window [%.3f, %.3f) spans %.3fs but holds %.3fs of samples",
			ErrInvalidRange, w.Start, w.End, w.Duration(), held)
	}
	return nil
}
