package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-tempo/algorithms/temporal"
	"github.com/RyanBlaney/sonido-tempo/tempo"
)

func sampleResult() *tempo.Result {
	alt := 117
	return &tempo.Result{
		BPM:                  120,
		Confidence:           95,
		AlternativeBPM:       &alt,
		RawBPM:               120.19,
		BeatTimes:            []float64{0, 0.5, 1.0, 1.5},
		Onsets:               []float64{0, 0.499, 1.01, 1.5},
		TimeSignature:        tempo.AssumedTimeSignature,
		TimeSignatureAssumed: true,
		Candidates: []temporal.TempoCandidate{
			{Bucket: 120, BPM: 120.19, Interval: 0.4992, Support: 17, Score: 17},
			{Bucket: 115, BPM: 117.45, Interval: 0.5108, Support: 1, Score: 1},
		},
		Start:      0,
		Duration:   2,
		SampleRate: 44100,
		LevelDBFS:  -18.3,
		Params:     tempo.DefaultParams(),
	}
}

func TestTextPlain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, sampleResult(), false))

	out := buf.String()
	assert.NotContains(t, out, "\x1b[")
	assert.Contains(t, out, "BPM:")
	assert.Contains(t, out, "120 (120.19 raw, fast)")
	assert.Contains(t, out, " 95%")
	assert.Contains(t, out, "4/4 (assumed)")
	assert.Contains(t, out, "117")
	assert.Contains(t, out, "4 every 0.500s")
	assert.Contains(t, out, "-18.3 dBFS")
	assert.Contains(t, out, "bucket")
}

func TestTextWithoutAlternative(t *testing.T) {
	res := sampleResult()
	res.AlternativeBPM = nil
	res.Candidates = res.Candidates[:1]

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, res, true))
	assert.Contains(t, buf.String(), "none")
}

func TestTextNilResult(t *testing.T) {
	assert.Error(t, Text(&bytes.Buffer{}, nil, false))
}

func TestConfidenceBar(t *testing.T) {
	s := newStyles(false)

	assert.Equal(t, strings.Repeat("━", 20)+" 100%", confidenceBar(s, 100))
	assert.Equal(t, strings.Repeat("━", 20)+"   0%", confidenceBar(s, -5))
	assert.Equal(t, 20, strings.Count(confidenceBar(s, 42), "━"))
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sampleResult()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 120.0, decoded["bpm"])
	assert.Equal(t, 117.0, decoded["alternative_bpm"])
	assert.Equal(t, "4/4", decoded["time_signature"])
	assert.Equal(t, true, decoded["time_signature_assumed"])
	assert.Len(t, decoded["beat_times"], 4)
}
