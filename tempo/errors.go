package tempo

import (
	"errors"

	"github.com/RyanBlaney/sonido-tempo/algorithms/temporal"
)

var (
	// ErrInsufficientOnsets means fewer than two onsets were detected.
	// Widening the analysis window or raising sensitivity usually helps.
	ErrInsufficientOnsets = temporal.ErrInsufficientOnsets

	// ErrNoTempoInRange means onsets were found but no interval maps into
	// the requested BPM range.
	ErrNoTempoInRange = temporal.ErrNoTempoInRange

	// ErrInvalidSensitivity means the sensitivity knob is outside [1, 10].
	ErrInvalidSensitivity = temporal.ErrInvalidSensitivity

	// ErrInvalidRange covers malformed inputs: a BPM range with min >= max
	// or a non-positive bound, an empty analysis window, or a bad sample rate.
	ErrInvalidRange = errors.New("invalid analysis range")

	// ErrNumeric is returned if a stage produced NaN or Inf.
	ErrNumeric = errors.New("numeric degeneracy in tempo estimate")
)
