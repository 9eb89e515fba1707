package temporal

import (
	"fmt"
	"math"
	"sort"

	"github.com/RyanBlaney/sonido-tempo/algorithms/common"
)

const (
	// BucketWidth groups tempos that differ only by detection jitter
	BucketWidth = 5

	// ConfidenceTolerance is the relative deviation from the winning interval
	// an interval may have and still count as consistent with it.
	ConfidenceTolerance = 0.10
)

// TempoCandidate is one BPM bucket of inter-onset intervals
type TempoCandidate struct {
	Bucket   int     `json:"bucket"`   // bucket key, a multiple of BucketWidth
	BPM      float64 `json:"bpm"`      // 60 / Interval
	Interval float64 `json:"interval"` // mean interval of the members in seconds
	Support  int     `json:"support"`  // number of intervals in the bucket
	Score    int     `json:"score"`
}

// InterOnsetIntervals returns the time gaps between consecutive onsets
func InterOnsetIntervals(onsets []Onset) []float64 {
	if len(onsets) < 2 {
		return []float64{}
	}

	intervals := make([]float64, len(onsets)-1)
	for i := range len(intervals) {
		intervals[i] = onsets[i+1].Time - onsets[i].Time
	}
	return intervals
}

// RankTempoCandidates buckets the intervals whose tempo lies in
// [minBPM, maxBPM] and ranks the buckets by support, best first.
//
// Equal scores are ordered by ascending bucket tempo, so the slower reading
// of an ambiguous pulse wins.
func RankTempoCandidates(intervals []float64, minBPM, maxBPM float64) ([]TempoCandidate, error) {
	if len(intervals) == 0 {
		return nil, ErrInsufficientOnsets
	}

	members := make(map[int][]float64)
	for _, interval := range intervals {
		if interval <= 0 || !common.IsFinite(interval) {
			continue
		}

		bpm := 60.0 / interval
		if bpm < minBPM || bpm > maxBPM {
			continue
		}

		bucket := int(math.Round(bpm/BucketWidth)) * BucketWidth
		members[bucket] = append(members[bucket], interval)
	}

	if len(members) == 0 {
		return nil, fmt.Errorf("%w: %d intervals, range %.0f-%.0f BPM", ErrNoTempoInRange, len(intervals), minBPM, maxBPM)
	}

	candidates := make([]TempoCandidate, 0, len(members))
	for bucket, bucketIntervals := range members {
		avg := common.Mean(bucketIntervals)
		candidates = append(candidates, TempoCandidate{
			Bucket:   bucket,
			BPM:      60.0 / avg,
			Interval: avg,
			Support:  len(bucketIntervals),
			Score:    len(bucketIntervals),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Bucket < candidates[j].Bucket
	})

	return candidates, nil
}

// IntervalConfidence returns the percentage (0-100, rounded) of intervals
// within ConfidenceTolerance of the winning interval.
func IntervalConfidence(intervals []float64, winningInterval float64) int {
	if len(intervals) == 0 || winningInterval <= 0 {
		return 0
	}

	consistent := 0
	for _, interval := range intervals {
		if common.RelativeDeviation(interval, winningInterval) <= ConfidenceTolerance {
			consistent++
		}
	}

	return int(math.Round(100.0 * float64(consistent) / float64(len(intervals))))
}

// BeatGrid lays out beats every 60/bpm seconds across a window of the given
// duration, offset by start. Beat k sits at start + k*60/bpm; positions are
// computed by multiplication so spacing error does not accumulate.
func BeatGrid(start, duration, bpm float64) []float64 {
	if bpm <= 0 || duration <= 0 || !common.IsFinite(bpm) || !common.IsFinite(duration) {
		return []float64{}
	}

	period := 60.0 / bpm
	beats := make([]float64, 0, int(duration/period)+1)
	for k := 0; ; k++ {
		t := float64(k) * period
		if t >= duration {
			break
		}
		beats = append(beats, start+t)
	}
	return beats
}

// ClassifyTempoCategory classifies tempo into broad categories
func ClassifyTempoCategory(tempo float64) string {
	if tempo < 60 {
		return "very_slow"
	} else if tempo < 90 {
		return "slow"
	} else if tempo < 120 {
		return "moderate"
	} else if tempo < 150 {
		return "fast"
	} else {
		return "very_fast"
	}
}
