package scoring_test

import (
	"math"
	"testing"

	"cliplift/internal/config"
	"cliplift/internal/scoring"
)

func ptr(v float64) *float64 { return &v }

func defaultWeights() scoring.Weights {
	return scoring.WeightsFromConfig(config.Default().Scoring)
}

func TestCombinedRenormalizesToPopulatedChannels(t *testing.T) {
	// A lone text score must come through undiluted.
	final, ok := scoring.Combined(defaultWeights(), scoring.Channels{Text: ptr(0.8)})
	if !ok {
		t.Fatal("expected a combined score")
	}
	if math.Abs(final-0.8) > 1e-12 {
		t.Fatalf("expected renormalized score 0.8, got %v", final)
	}
}

func TestCombinedAllChannels(t *testing.T) {
	w := defaultWeights()
	final, ok := scoring.Combined(w, scoring.Channels{
		Text:           ptr(1.0),
		Vision:         ptr(0.5),
		AudioEmphasis:  ptr(0.0),
		FacialEmphasis: ptr(1.0),
		Cloud:          ptr(0.5),
	})
	if !ok {
		t.Fatal("expected a combined score")
	}
	want := 0.30*1.0 + 0.30*0.5 + 0.15*0.0 + 0.15*1.0 + 0.10*0.5
	if math.Abs(final-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, final)
	}
	if final < 0 || final > 1 {
		t.Fatalf("combined score out of range: %v", final)
	}
}

func TestCombinedIsIdempotent(t *testing.T) {
	channels := scoring.Channels{Text: ptr(0.73), Vision: ptr(0.41)}
	first, _ := scoring.Combined(defaultWeights(), channels)
	second, _ := scoring.Combined(defaultWeights(), channels)
	if first != second {
		t.Fatalf("recomputation must be exact: %v vs %v", first, second)
	}
}

func TestCombinedNoChannels(t *testing.T) {
	if _, ok := scoring.Combined(defaultWeights(), scoring.Channels{}); ok {
		t.Fatal("expected no combined score with all channels absent")
	}
}

func TestCombinedStaysInRange(t *testing.T) {
	w := defaultWeights()
	values := []float64{0, 0.25, 0.5, 0.75, 1}
	for _, a := range values {
		for _, b := range values {
			for _, c := range values {
				final, ok := scoring.Combined(w, scoring.Channels{
					Text: ptr(a), Vision: ptr(b), Cloud: ptr(c),
				})
				if !ok {
					t.Fatal("expected combined score")
				}
				if final < 0 || final > 1 {
					t.Fatalf("score %v out of [0,1] for inputs %v %v %v", final, a, b, c)
				}
			}
		}
	}
}

func TestAmbiguousBand(t *testing.T) {
	th := scoring.ThresholdsFromConfig(config.Default().Scoring)

	cases := []struct {
		score float64
		in    bool
	}{
		{0.39, false},
		{0.40, true},
		{0.50, true},
		{0.6499, true},
		{0.65, false},
		{0.90, false},
	}
	for _, tc := range cases {
		if got := th.InAmbiguousBand(tc.score); got != tc.in {
			t.Fatalf("InAmbiguousBand(%v) = %v, want %v", tc.score, got, tc.in)
		}
	}
}

func TestRankBreaksTiesByEarlierStart(t *testing.T) {
	ranked := scoring.Rank([]scoring.Candidate{
		{SegmentID: 1, StartTime: 30, FinalScore: 0.7},
		{SegmentID: 2, StartTime: 10, FinalScore: 0.7},
		{SegmentID: 3, StartTime: 0, FinalScore: 0.9},
	})
	wantOrder := []int64{3, 2, 1}
	for i, want := range wantOrder {
		if ranked[i].SegmentID != want {
			t.Fatalf("position %d: expected segment %d, got %d", i, want, ranked[i].SegmentID)
		}
	}
}

func TestSelectTopNReportsExplicitCount(t *testing.T) {
	candidates := []scoring.Candidate{
		{SegmentID: 1, StartTime: 0, FinalScore: 0.9},
		{SegmentID: 2, StartTime: 5, FinalScore: 0.4},
	}

	selection := scoring.SelectTopN(candidates, 3)
	if selection.Flagged != 2 {
		t.Fatalf("expected 2 flagged when fewer than N exist, got %d", selection.Flagged)
	}
	if len(selection.Ranked) != 2 {
		t.Fatalf("ranking must keep every candidate, got %d", len(selection.Ranked))
	}

	selection = scoring.SelectTopN(candidates, 1)
	if selection.Flagged != 1 {
		t.Fatalf("expected 1 flagged, got %d", selection.Flagged)
	}
	if selection.Ranked[0].SegmentID != 1 {
		t.Fatalf("expected best segment first, got %d", selection.Ranked[0].SegmentID)
	}
}
