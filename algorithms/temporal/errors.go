package temporal

import "errors"

var (
	// ErrInsufficientOnsets is returned when fewer than two onsets were
	// detected, leaving no inter-onset interval to measure.
	ErrInsufficientOnsets = errors.New("no beats detected: fewer than two onsets")

	// ErrNoTempoInRange is returned when intervals exist but none of them
	// maps to a tempo inside the requested BPM range.
	ErrNoTempoInRange = errors.New("no inter-onset interval falls inside the BPM range")

	// ErrInvalidSensitivity is returned for a sensitivity outside [1, 10].
	ErrInvalidSensitivity = errors.New("sensitivity must be between 1 and 10")
)
