package tempo

import (
	"github.com/RyanBlaney/sonido-tempo/algorithms/temporal"
)

// AssumedTimeSignature is reported with every result. Nothing in the
// pipeline infers meter; consumers must treat it as a label.
const AssumedTimeSignature = "4/4"

// Result is the outcome of one analysis
type Result struct {
	BPM            int     `json:"bpm"`
	Confidence     int     `json:"confidence"` // 0-100
	AlternativeBPM *int    `json:"alternative_bpm"`
	RawBPM         float64 `json:"raw_bpm"` // unrounded winning tempo

	BeatTimes []float64 `json:"beat_times"` // seconds, absolute
	Onsets    []float64 `json:"onsets"`     // seconds, absolute

	TimeSignature        string `json:"time_signature"`
	TimeSignatureAssumed bool   `json:"time_signature_assumed"`

	Candidates []temporal.TempoCandidate `json:"candidates"`
	Intervals  int                       `json:"intervals"`

	Start      float64 `json:"start"`
	Duration   float64 `json:"duration"`
	SampleRate int     `json:"sample_rate"`
	LevelDBFS  float64 `json:"level_dbfs"` // RMS level of the unfiltered window
	Params     Params  `json:"params"`
}

// Category classifies the tempo into broad bands (slow, moderate, ...)
func (r *Result) Category() string {
	return temporal.ClassifyTempoCategory(float64(r.BPM))
}

// BeatPeriod returns the spacing of the beat grid in seconds
func (r *Result) BeatPeriod() float64 {
	if r.BPM <= 0 {
		return 0
	}
	return 60.0 / float64(r.BPM)
}
