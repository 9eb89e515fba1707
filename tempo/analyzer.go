// Package tempo estimates the tempo of a mono audio excerpt.
//
// The pipeline runs four stages in order on the calling goroutine:
//
//  1. high-pass pre-filter (rumble/DC removal)
//  2. spectral-flux onset detection with an adaptive threshold
//  3. inter-onset interval bucketing into BPM candidates
//  4. confidence scoring and beat-grid synthesis
//
// Every call builds its own filter state and threshold history, so an
// Analyzer is safe for concurrent use and repeated calls on the same input
// return identical results.
package tempo

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/RyanBlaney/sonido-tempo/algorithms/common"
	"github.com/RyanBlaney/sonido-tempo/algorithms/filters"
	"github.com/RyanBlaney/sonido-tempo/algorithms/temporal"
	"github.com/RyanBlaney/sonido-tempo/config"
	"github.com/RyanBlaney/sonido-tempo/logging"
)

// Params are the per-call knobs supplied by the caller
type Params struct {
	MinBPM      int `json:"min_bpm"`
	MaxBPM      int `json:"max_bpm"`
	Sensitivity int `json:"sensitivity"` // 1-10, higher detects more onsets
}

// DefaultParams returns a 60-200 BPM search at medium sensitivity
func DefaultParams() Params {
	return Params{
		MinBPM:      60,
		MaxBPM:      200,
		Sensitivity: 5,
	}
}

// Validate rejects ranges and sensitivities the pipeline cannot honour
func (p Params) Validate() error {
	if p.MinBPM <= 0 || p.MinBPM >= p.MaxBPM {
		return fmt.Errorf("%w: BPM range %d-%d", ErrInvalidRange, p.MinBPM, p.MaxBPM)
	}
	if p.Sensitivity < temporal.MinSensitivity || p.Sensitivity > temporal.MaxSensitivity {
		return fmt.Errorf("%w: got %d", ErrInvalidSensitivity, p.Sensitivity)
	}
	return nil
}

// AnalyzerConfig holds the fixed pipeline settings
type AnalyzerConfig struct {
	HighPassCutoff float64                       `json:"highpass_cutoff"`
	Detector       *temporal.OnsetDetectorConfig `json:"detector"`
}

// DefaultAnalyzerConfig returns the default pipeline settings
func DefaultAnalyzerConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		HighPassCutoff: filters.DefaultHighPassCutoff,
		Detector:       temporal.DefaultOnsetDetectorConfig(),
	}
}

// AnalyzerConfigFrom maps the file/env analysis section onto pipeline settings
func AnalyzerConfigFrom(c config.AnalysisConfig) *AnalyzerConfig {
	detector := temporal.DefaultOnsetDetectorConfig()
	detector.MinInterOnset = c.MinInterOnset
	detector.Window = c.Window

	return &AnalyzerConfig{
		HighPassCutoff: c.HighPassCutoff,
		Detector:       detector,
	}
}

// ParamsFrom returns the default per-call parameters of an analysis section
func ParamsFrom(c config.AnalysisConfig) Params {
	return Params{
		MinBPM:      c.MinBPM,
		MaxBPM:      c.MaxBPM,
		Sensitivity: c.Sensitivity,
	}
}

// Analyzer runs the tempo pipeline
type Analyzer struct {
	config   *AnalyzerConfig
	detector *temporal.OnsetDetector
	logger   logging.Logger
}

// NewAnalyzer creates an analyzer; a nil config uses the defaults
func NewAnalyzer(cfg *AnalyzerConfig) *Analyzer {
	if cfg == nil {
		cfg = DefaultAnalyzerConfig()
	}

	return &Analyzer{
		config:   cfg,
		detector: temporal.NewOnsetDetector(cfg.Detector),
		logger: logging.WithFields(logging.Fields{
			"component": "tempo_analyzer",
		}),
	}
}

// AnalyzeChannel slices [start, end) seconds out of a decoded channel and
// analyses it. A negative end analyses to the end of the channel.
func (a *Analyzer) AnalyzeChannel(ctx context.Context, channel []float64, sampleRate int, start, end float64, params Params) (*Result, error) {
	window, err := NewSampleWindow(channel, sampleRate, start, end)
	if err != nil {
		return nil, err
	}
	return a.Analyze(ctx, window, params)
}

// Analyze estimates tempo, confidence, beat grid and onsets for one window
func (a *Analyzer) Analyze(ctx context.Context, window SampleWindow, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := window.validate(); err != nil {
		return nil, err
	}

	logger := a.logger.WithContext(ctx).WithFields(logging.Fields{
		"function":    "Analyze",
		"sample_rate": window.SampleRate,
		"samples":     len(window.Samples),
		"start":       window.Start,
		"duration":    window.Duration(),
	})

	startTime := time.Now()
	level := temporal.LevelDBFS(temporal.RMS(window.Samples))

	highPass := filters.NewHighPass(window.SampleRate, a.config.HighPassCutoff)
	filtered := highPass.ProcessBuffer(window.Samples)

	onsets, err := a.detector.Detect(ctx, filtered, window.SampleRate, params.Sensitivity)
	if err != nil {
		return nil, fmt.Errorf("onset detection failed: %w", err)
	}

	if len(onsets) < 2 {
		logger.Debug("Too few onsets for tempo estimation", logging.Fields{
			"onsets":     len(onsets),
			"level_dbfs": level,
		})
		return nil, fmt.Errorf("%w: %d onsets in %.2fs at %.1f dBFS", ErrInsufficientOnsets, len(onsets), window.Duration(), level)
	}

	intervals := temporal.InterOnsetIntervals(onsets)

	candidates, err := temporal.RankTempoCandidates(intervals, float64(params.MinBPM), float64(params.MaxBPM))
	if err != nil {
		return nil, err
	}

	winner := candidates[0]
	if !common.IsFinite(winner.BPM) || !common.IsFinite(winner.Interval) {
		return nil, fmt.Errorf("%w: winning bucket %d", ErrNumeric, winner.Bucket)
	}

	bpm := roundBPM(winner.BPM, params)

	var alternative *int
	if len(candidates) > 1 && common.IsFinite(candidates[1].BPM) {
		alt := roundBPM(candidates[1].BPM, params)
		alternative = &alt
	}

	beats := temporal.BeatGrid(window.Start, window.Duration(), float64(bpm))
	onsetTimes := temporal.OnsetTimes(onsets, window.Start)
	if !common.AllFinite(beats) || !common.AllFinite(onsetTimes) {
		return nil, fmt.Errorf("%w: non-finite beat or onset time", ErrNumeric)
	}

	result := &Result{
		BPM:                  bpm,
		Confidence:           temporal.IntervalConfidence(intervals, winner.Interval),
		AlternativeBPM:       alternative,
		RawBPM:               winner.BPM,
		BeatTimes:            beats,
		Onsets:               onsetTimes,
		TimeSignature:        AssumedTimeSignature,
		TimeSignatureAssumed: true,
		Candidates:           candidates,
		Intervals:            len(intervals),
		Start:                window.Start,
		Duration:             window.Duration(),
		SampleRate:           window.SampleRate,
		LevelDBFS:            level,
		Params:               params,
	}

	logger.Debug("Tempo analysis completed", logging.Fields{
		"bpm":         result.BPM,
		"confidence":  result.Confidence,
		"onsets":      len(onsets),
		"candidates":  len(candidates),
		"highpass_hz": highPass.CutoffFrequency(),
		"analysis_ms": time.Since(startTime).Milliseconds(),
	})

	return result, nil
}

// roundBPM rounds to the nearest integer and keeps the result inside the
// requested range, which float error at the range edges could otherwise break.
func roundBPM(bpm float64, params Params) int {
	rounded := int(math.Round(bpm))
	return max(params.MinBPM, min(params.MaxBPM, rounded))
}
