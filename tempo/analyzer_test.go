package tempo

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-tempo/config"
)

func TestAnalyzeClickTrack120(t *testing.T) {
	a := NewAnalyzer(nil)

	res, err := a.Analyze(context.Background(), fullWindow(clickTrack(120, 10, 0, 1)), Params{MinBPM: 60, MaxBPM: 200, Sensitivity: 5})
	require.NoError(t, err)

	assert.InDelta(t, 120, res.BPM, 2)
	assert.GreaterOrEqual(t, res.Confidence, 80)
	assert.Len(t, res.Onsets, 20)
	assert.Len(t, res.BeatTimes, 20)
	assert.Equal(t, "4/4", res.TimeSignature)
	assert.True(t, res.TimeSignatureAssumed)
	assert.Equal(t, "fast", res.Category())
	require.NotEmpty(t, res.Candidates)
	assert.Equal(t, 120, res.Candidates[0].Bucket)
}

func TestAnalyzeProperties(t *testing.T) {
	signals := map[string][]float64{
		"click 120":  clickTrack(120, 10, 0, 1),
		"click 90":   clickTrack(90, 12, 0.2, 0.8),
		"click 140":  clickTrack(140, 8, 0.05, 0.5),
		"accented":   accented(),
		"jittered":   jittered(),
		"two layers": twoLayers(),
	}
	params := Params{MinBPM: 60, MaxBPM: 200, Sensitivity: 6}
	a := NewAnalyzer(nil)

	for name, signal := range signals {
		t.Run(name, func(t *testing.T) {
			res, err := a.Analyze(context.Background(), fullWindow(signal), params)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, res.BPM, params.MinBPM)
			assert.LessOrEqual(t, res.BPM, params.MaxBPM)
			assert.GreaterOrEqual(t, res.Confidence, 0)
			assert.LessOrEqual(t, res.Confidence, 100)

			period := 60.0 / float64(res.BPM)
			for i := 1; i < len(res.BeatTimes); i++ {
				assert.InDelta(t, period, res.BeatTimes[i]-res.BeatTimes[i-1], 1e-6)
			}
			for i := 1; i < len(res.Onsets); i++ {
				assert.GreaterOrEqual(t, res.Onsets[i], res.Onsets[i-1])
			}
			assert.False(t, math.IsNaN(res.RawBPM))
		})
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	a := NewAnalyzer(nil)
	window := fullWindow(jittered())
	params := DefaultParams()

	first, err := a.Analyze(context.Background(), window, params)
	require.NoError(t, err)

	for range 3 {
		again, err := a.Analyze(context.Background(), window, params)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	fresh, err := NewAnalyzer(nil).Analyze(context.Background(), window, params)
	require.NoError(t, err)
	assert.Equal(t, first, fresh)
}

func TestAnalyzeSilence(t *testing.T) {
	_, err := NewAnalyzer(nil).Analyze(context.Background(), fullWindow(make([]float64, 5*testSampleRate)), DefaultParams())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientOnsets))
}

func TestAnalyzeNaNInputDoesNotLeak(t *testing.T) {
	signal := make([]float64, 3*testSampleRate)
	for i := range signal {
		signal[i] = math.NaN()
	}

	res, err := NewAnalyzer(nil).Analyze(context.Background(), fullWindow(signal), DefaultParams())
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrInsufficientOnsets))
}

func TestAnalyzeSensitivityMonotonic(t *testing.T) {
	signal := clickTrack(120, 12, 0, 1)
	addClicks(signal, 120, 0.25, 0.05)

	a := NewAnalyzer(nil)
	prev := -1
	var first, last int
	for s := 1; s <= 10; s++ {
		res, err := a.Analyze(context.Background(), fullWindow(signal), Params{MinBPM: 60, MaxBPM: 300, Sensitivity: s})
		require.NoError(t, err, "sensitivity %d", s)

		n := len(res.Onsets)
		assert.GreaterOrEqual(t, n, prev, "sensitivity %d", s)
		prev = n
		if s == 1 {
			first = n
		}
		last = n
	}
	assert.Greater(t, last, first)
}

func TestAnalyzeValidation(t *testing.T) {
	a := NewAnalyzer(nil)
	window := fullWindow(clickTrack(120, 4, 0, 1))

	tests := []struct {
		name   string
		window SampleWindow
		params Params
		want   error
	}{
		{"min equals max", window, Params{MinBPM: 120, MaxBPM: 120, Sensitivity: 5}, ErrInvalidRange},
		{"min above max", window, Params{MinBPM: 200, MaxBPM: 60, Sensitivity: 5}, ErrInvalidRange},
		{"zero min", window, Params{MinBPM: 0, MaxBPM: 60, Sensitivity: 5}, ErrInvalidRange},
		{"sensitivity low", window, Params{MinBPM: 60, MaxBPM: 200, Sensitivity: 0}, ErrInvalidSensitivity},
		{"sensitivity high", window, Params{MinBPM: 60, MaxBPM: 200, Sensitivity: 11}, ErrInvalidSensitivity},
		{"zero duration", SampleWindow{Samples: window.Samples, SampleRate: testSampleRate, Start: 2, End: 2}, DefaultParams(), ErrInvalidRange},
		{"no sample rate", SampleWindow{Samples: window.Samples, Start: 0, End: 4}, DefaultParams(), ErrInvalidRange},
		{"no samples", SampleWindow{SampleRate: testSampleRate, Start: 0, End: 4}, DefaultParams(), ErrInvalidRange},
		{"negative start", SampleWindow{Samples: window.Samples, SampleRate: testSampleRate, Start: -1, End: 3}, DefaultParams(), ErrInvalidRange},
		{"end past samples", SampleWindow{Samples: window.Samples, SampleRate: testSampleRate, Start: 0, End: 1000}, DefaultParams(), ErrInvalidRange},
		{"end short of samples", SampleWindow{Samples: window.Samples, SampleRate: testSampleRate, Start: 0, End: 2}, DefaultParams(), ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.Analyze(context.Background(), tt.window, tt.params)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestAnalyzeOutOfRange(t *testing.T) {
	// 240 BPM pulse searched in 60-100
	_, err := NewAnalyzer(nil).Analyze(context.Background(), fullWindow(clickTrack(240, 6, 0, 1)), Params{MinBPM: 60, MaxBPM: 100, Sensitivity: 5})
	assert.True(t, errors.Is(err, ErrNoTempoInRange), "got %v", err)
}

func TestAnalyzeChannelOffsetsTimes(t *testing.T) {
	channel := clickTrack(120, 10, 0, 1)

	res, err := NewAnalyzer(nil).AnalyzeChannel(context.Background(), channel, testSampleRate, 2, 8, DefaultParams())
	require.NoError(t, err)

	assert.InDelta(t, 120, res.BPM, 2)
	assert.Equal(t, 2.0, res.Start)
	assert.InDelta(t, 6.0, res.Duration, 1e-9)
	require.NotEmpty(t, res.BeatTimes)
	assert.Equal(t, 2.0, res.BeatTimes[0])
	assert.Less(t, res.BeatTimes[len(res.BeatTimes)-1], 8.0)
	for _, onset := range res.Onsets {
		assert.GreaterOrEqual(t, onset, 2.0)
		assert.Less(t, onset, 8.0)
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAnalyzer(nil).Analyze(ctx, fullWindow(clickTrack(120, 10, 0, 1)), DefaultParams())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestAnalyzerFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.Window = "hann"
	cfg.Analysis.Sensitivity = 7

	a := NewAnalyzer(AnalyzerConfigFrom(cfg.Analysis))
	params := ParamsFrom(cfg.Analysis)
	assert.Equal(t, Params{MinBPM: 60, MaxBPM: 200, Sensitivity: 7}, params)

	res, err := a.Analyze(context.Background(), fullWindow(clickTrack(120, 10, 0.1, 1)), params)
	require.NoError(t, err)
	assert.InDelta(t, 120, res.BPM, 2)
}

func TestResultBeatPeriod(t *testing.T) {
	r := &Result{BPM: 120}
	assert.Equal(t, 0.5, r.BeatPeriod())
	assert.Equal(t, 0.0, (&Result{}).BeatPeriod())
}

// accented alternates loud and soft clicks at 100 BPM.
func accented() []float64 {
	signal := make([]float64, 10*testSampleRate)
	period := 0.6
	for k := 0; ; k++ {
		idx := int(float64(k) * period * testSampleRate)
		if idx >= len(signal) {
			break
		}
		amp := 0.4
		if k%2 == 0 {
			amp = 1.0
		}
		signal[idx] = amp
	}
	return signal
}

// jittered is a 128 BPM pulse with a deterministic few-millisecond wobble.
func jittered() []float64 {
	signal := make([]float64, 10*testSampleRate)
	period := 60.0 / 128
	for k := 0; ; k++ {
		jitter := 0.004 * math.Sin(float64(k)*1.7)
		idx := int((float64(k)*period + 0.01 + jitter) * testSampleRate)
		if idx >= len(signal) {
			break
		}
		signal[idx] = 0.9
	}
	return signal
}

// twoLayers mixes a 90 BPM kick with a quieter 180 BPM hat.
func twoLayers() []float64 {
	signal := clickTrack(90, 10, 0, 1)
	addClicks(signal, 180, 0.02, 0.3)
	return signal
}

// While fewer than ten onsets are recorded the threshold is a fraction of
// the frame's own flux, so any rising noise passes and onsets land one
// refractory period (nine hops) apart.
func TestAnalyzeNoiseFloodsBootstrap(t *testing.T) {
	bootstrapGap := 9 * 512.0 / testSampleRate
	params := Params{MinBPM: 60, MaxBPM: 200, Sensitivity: 5}

	t.Run("light noise keeps the pulse", func(t *testing.T) {
		res, err := NewAnalyzer(nil).Analyze(context.Background(), fullWindow(withNoise(clickTrack(120, 10, 0, 1), 0.001, 1)), params)
		require.NoError(t, err)

		require.Greater(t, len(res.Onsets), 10)
		for i := 1; i < 10; i++ {
			assert.InDelta(t, bootstrapGap, res.Onsets[i]-res.Onsets[i-1], 1e-9, "gap %d", i)
		}
		assert.InDelta(t, 120, res.BPM, 2)
		assert.Less(t, res.Confidence, 80, "bootstrap gaps count against confidence")
	})

	t.Run("heavy noise buries it", func(t *testing.T) {
		samples := withNoise(clickTrack(120, 10, 0, 1), 0.01, 1)

		res, err := NewAnalyzer(nil).Analyze(context.Background(), fullWindow(samples), params)
		assert.Nil(t, res)
		assert.True(t, errors.Is(err, ErrNoTempoInRange), "got %v", err)

		// Every gap stays near the refractory period, far above 200 BPM
		detected, err := NewAnalyzer(nil).Analyze(context.Background(), fullWindow(samples), Params{MinBPM: 60, MaxBPM: 1000, Sensitivity: 5})
		require.NoError(t, err)
		assert.Greater(t, len(detected.Onsets), 60)
		assert.Greater(t, detected.BPM, 400)
	})
}
