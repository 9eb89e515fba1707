package temporal

import (
	"context"
	"fmt"

	"github.com/RyanBlaney/sonido-tempo/algorithms/common"
	"github.com/RyanBlaney/sonido-tempo/algorithms/spectral"
	"github.com/RyanBlaney/sonido-tempo/algorithms/windowing"
	"github.com/RyanBlaney/sonido-tempo/logging"
)

// Analysis frame geometry: 1024-sample frames with 50% overlap
const (
	FrameSize = 1024
	HopSize   = 512
)

// Sensitivity bounds. Higher values lower the threshold and admit more onsets.
const (
	MinSensitivity = 1
	MaxSensitivity = 10
)

// DefaultMinInterOnset is the refractory period in seconds. A transient
// usually spans two overlapping frames; without it both would register.
const DefaultMinInterOnset = 0.1

const (
	bootstrapOnsets = 10  // onsets recorded before the history drives the threshold
	bootstrapRatio  = 0.3 // threshold factor during bootstrap
	historyLength   = 20  // onsets averaged by the adaptive threshold
	thresholdScale  = 0.7
)

// Onset is a detected transient
type Onset struct {
	Frame int     `json:"frame"`
	Time  float64 `json:"time"` // seconds from the start of the analysed signal
	Flux  float64 `json:"flux"` // spectral flux that triggered the detection
}

// OnsetDetectorConfig configures the spectral-flux onset detector
type OnsetDetectorConfig struct {
	FrameSize     int     `json:"frame_size"`
	HopSize       int     `json:"hop_size"`
	MinInterOnset float64 `json:"min_inter_onset"` // seconds, 0 disables the refractory period
	Window        string  `json:"window"`
}

// DefaultOnsetDetectorConfig returns the detector defaults
func DefaultOnsetDetectorConfig() *OnsetDetectorConfig {
	return &OnsetDetectorConfig{
		FrameSize:     FrameSize,
		HopSize:       HopSize,
		MinInterOnset: DefaultMinInterOnset,
		Window:        windowing.TypeRectangular,
	}
}

// OnsetDetector detects onsets by thresholding positive spectral flux
// against an adaptive threshold.
//
// A detector holds no per-signal state: the threshold history lives inside
// each Detect call, so one detector can serve concurrent analyses.
type OnsetDetector struct {
	config       *OnsetDetectorConfig
	stft         *spectral.STFT
	spectralFlux *spectral.SpectralFlux
	logger       logging.Logger
}

// NewOnsetDetector creates a new onset detector
func NewOnsetDetector(config *OnsetDetectorConfig) *OnsetDetector {
	if config == nil {
		config = DefaultOnsetDetectorConfig()
	}

	cfg := *config
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = FrameSize
	}
	if cfg.HopSize <= 0 {
		cfg.HopSize = HopSize
	}

	return &OnsetDetector{
		config:       &cfg,
		stft:         spectral.NewSTFT(),
		spectralFlux: spectral.NewSpectralFlux(),
		logger: logging.WithFields(logging.Fields{
			"component": "onset_detector",
		}),
	}
}

// Detect returns the onsets of a (pre-filtered) signal in ascending time order
func (od *OnsetDetector) Detect(ctx context.Context, signal []float64, sampleRate int, sensitivity int) ([]Onset, error) {
	if sensitivity < MinSensitivity || sensitivity > MaxSensitivity {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSensitivity, sensitivity)
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive: %d", sampleRate)
	}

	window, err := windowing.New(od.config.Window, od.config.FrameSize)
	if err != nil {
		return nil, err
	}

	hopSeconds := float64(od.config.HopSize) / float64(sampleRate)

	var (
		onsets   []Onset
		history  []float64
		previous = make([]float64, 0, od.config.FrameSize/2)
		frames   int
	)

	err = od.stft.Frames(ctx, signal, od.config.FrameSize, od.config.HopSize, window, func(frameIdx int, magnitude []float64) error {
		frames++

		flux := od.spectralFlux.Positive(previous, magnitude)
		previous = append(previous[:0], magnitude...)

		if flux <= AdaptiveThreshold(flux, history, sensitivity) {
			return nil
		}

		onsetTime := float64(frameIdx) * hopSeconds
		if n := len(onsets); n > 0 && onsetTime-onsets[n-1].Time < od.config.MinInterOnset {
			return nil
		}

		onsets = append(onsets, Onset{
			Frame: frameIdx,
			Time:  onsetTime,
			Flux:  flux,
		})
		history = append(history, flux)
		return nil
	})
	if err != nil {
		return nil, err
	}

	od.logger.Debug("Onset detection completed", logging.Fields{
		"frames":      frames,
		"onsets":      len(onsets),
		"sensitivity": sensitivity,
		"sample_rate": sampleRate,
		"window":      window.GetType(),
	})

	return onsets, nil
}

// AdaptiveThreshold returns the flux a frame must exceed to count as an onset.
//
// Until bootstrapOnsets onsets have been recorded the threshold is a fixed
// fraction of the frame's own flux. Afterwards it is the mean flux of the
// last historyLength onsets scaled by (11-sensitivity)/10 * 0.7.
func AdaptiveThreshold(flux float64, history []float64, sensitivity int) float64 {
	if len(history) < bootstrapOnsets {
		return flux * bootstrapRatio
	}

	scale := float64(MaxSensitivity+1-sensitivity) / 10.0 * thresholdScale
	return common.TailMean(history, historyLength) * scale
}

// OnsetTimes extracts onset times, shifted by offset seconds
func OnsetTimes(onsets []Onset, offset float64) []float64 {
	times := make([]float64, len(onsets))
	for i, onset := range onsets {
		times[i] = offset + onset.Time
	}
	return times
}
