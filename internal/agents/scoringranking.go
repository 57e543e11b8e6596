package agents

import (
	"context"
	"log/slog"

	"cliplift/internal/agent"
	"cliplift/internal/logging"
	"cliplift/internal/scoring"
	"cliplift/internal/services"
	"cliplift/internal/store"
)

// ScoringRanking combines every populated score channel into the final score,
// ranks segments, and flags the leaders for automatic export.
type ScoringRanking struct {
	store   *store.Store
	weights scoring.Weights
	topN    int
	logger  *slog.Logger
}

// NewScoringRanking creates the aggregation and ranking stage.
func NewScoringRanking(st *store.Store, weights scoring.Weights, topN int, logger *slog.Logger) *ScoringRanking {
	return &ScoringRanking{
		store:   st,
		weights: weights,
		topN:    topN,
		logger:  logging.NewComponentLogger(logger, "scoring_ranking"),
	}
}

func (a *ScoringRanking) Name() string { return "scoring_ranking" }

func (a *ScoringRanking) Execute(ctx context.Context, ec agent.Context) agent.Result {
	segments, err := a.store.SegmentsForVideo(ctx, ec.VideoID)
	if err != nil {
		return agent.Fail(err)
	}
	if len(segments) == 0 {
		return agent.Fail(services.Wrap(services.ErrValidation, a.Name(), "load_segments",
			"no candidate segments for video", nil))
	}

	candidates := make([]scoring.Candidate, 0, len(segments))
	for _, segment := range segments {
		score, err := a.store.GetSegmentScore(ctx, segment.ID)
		if err != nil {
			return agent.Fail(err)
		}
		combined, ok := scoring.Combined(a.weights, scoring.Channels{
			Text:           score.TextScore,
			Vision:         score.VisionScore,
			AudioEmphasis:  score.AudioEmphasisScore,
			FacialEmphasis: score.FacialEmphasisScore,
			Cloud:          score.CloudScore,
		})
		if !ok {
			continue
		}
		if err := a.store.SetCombinedScore(ctx, segment.ID, combined); err != nil {
			return agent.Fail(err)
		}
		candidates = append(candidates, scoring.Candidate{
			SegmentID:  segment.ID,
			StartTime:  segment.StartTime,
			FinalScore: combined,
		})
	}
	if len(candidates) == 0 {
		return agent.Fail(services.Wrap(services.ErrValidation, a.Name(), "combine",
			"no segment has any populated score channel", nil))
	}

	selection := scoring.SelectTopN(candidates, a.topN)
	for i, candidate := range selection.Ranked {
		rank := int64(i + 1)
		flagged := i < selection.Flagged
		if err := a.store.SetExportRank(ctx, candidate.SegmentID, rank, flagged); err != nil {
			return agent.Fail(err)
		}
	}

	a.logger.InfoContext(ctx, "segments ranked",
		logging.Int("ranked", len(selection.Ranked)),
		logging.Int("flagged", selection.Flagged))

	return agent.OK(map[string]any{
		"ranked":  len(selection.Ranked),
		"flagged": selection.Flagged,
	})
}
