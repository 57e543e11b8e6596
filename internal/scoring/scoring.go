// Package scoring implements the aggregation and escalation policy: weighted
// combination of whichever score channels are populated, the ambiguous band
// that routes segments to cheaper reinforcement before cloud review, and
// final ranking with explicit export selection.
package scoring

import (
	"sort"

	"cliplift/internal/config"
)

// Weights holds the configured weight for each score channel. The full set
// always sums to 1.0; config validation rejects anything else.
type Weights struct {
	Text           float64
	Vision         float64
	AudioEmphasis  float64
	FacialEmphasis float64
	Cloud          float64
}

// WeightsFromConfig extracts channel weights from the scoring config section.
func WeightsFromConfig(cfg config.Scoring) Weights {
	return Weights{
		Text:           cfg.WeightText,
		Vision:         cfg.WeightVision,
		AudioEmphasis:  cfg.WeightAudioEmphasis,
		FacialEmphasis: cfg.WeightFacialEmphasis,
		Cloud:          cfg.WeightCloud,
	}
}

// Thresholds bound the ambiguous band [Low, High).
type Thresholds struct {
	Low  float64
	High float64
}

// ThresholdsFromConfig extracts escalation thresholds from the scoring config
// section.
func ThresholdsFromConfig(cfg config.Scoring) Thresholds {
	return Thresholds{Low: cfg.ThresholdLow, High: cfg.ThresholdHigh}
}

// InAmbiguousBand reports whether a score falls in [Low, High): confident
// enough not to discard, not confident enough to accept.
func (t Thresholds) InAmbiguousBand(score float64) bool {
	return score >= t.Low && score < t.High
}

// Channels carries the per-channel score values for one segment. A nil
// pointer means the producing stage has not run for that channel.
type Channels struct {
	Text           *float64
	Vision         *float64
	AudioEmphasis  *float64
	FacialEmphasis *float64
	Cloud          *float64
}

// Combined computes the weighted score over populated channels. Weights are
// renormalized to the populated subset so an absent channel never deflates
// the result: a lone text score of 0.8 combines to 0.8, not 0.8 times the
// text weight. Returns false when no channel is populated. The computation
// is a pure function of its inputs, so recomputation is idempotent.
func Combined(w Weights, c Channels) (float64, bool) {
	type channel struct {
		weight float64
		value  *float64
	}
	channels := []channel{
		{w.Text, c.Text},
		{w.Vision, c.Vision},
		{w.AudioEmphasis, c.AudioEmphasis},
		{w.FacialEmphasis, c.FacialEmphasis},
		{w.Cloud, c.Cloud},
	}

	var weightSum, total float64
	for _, ch := range channels {
		if ch.value == nil {
			continue
		}
		weightSum += ch.weight
		total += ch.weight * *ch.value
	}
	if weightSum == 0 {
		return 0, false
	}
	return total / weightSum, true
}

// Candidate is one segment entering ranking.
type Candidate struct {
	SegmentID  int64
	StartTime  float64
	FinalScore float64
}

// Rank orders candidates by final score descending, breaking ties in favor of
// the earlier start time. The input slice is not modified.
func Rank(candidates []Candidate) []Candidate {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FinalScore != ranked[j].FinalScore {
			return ranked[i].FinalScore > ranked[j].FinalScore
		}
		return ranked[i].StartTime < ranked[j].StartTime
	})
	return ranked
}

// Selection is the result of export selection: the full ranking plus how many
// leading candidates were actually flagged. Flagged is explicit so callers
// can tell "asked for 3, got 2" apart from silent truncation.
type Selection struct {
	Ranked  []Candidate
	Flagged int
}

// SelectTopN ranks candidates and flags up to n for automatic export.
func SelectTopN(candidates []Candidate, n int) Selection {
	ranked := Rank(candidates)
	flagged := n
	if flagged > len(ranked) {
		flagged = len(ranked)
	}
	if flagged < 0 {
		flagged = 0
	}
	return Selection{Ranked: ranked, Flagged: flagged}
}
