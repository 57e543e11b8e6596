package agents

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cliplift/internal/agent"
	"cliplift/internal/config"
	"cliplift/internal/logging"
	"cliplift/internal/protocol"
	"cliplift/internal/scoring"
	"cliplift/internal/services"
	"cliplift/internal/services/ollama"
	"cliplift/internal/store"
)

// previewRenderer is the slice of the ffmpeg service the QA stage calls.
type previewRenderer interface {
	RenderPreview(ctx context.Context, source string, start, duration float64, height int, dest string) error
}

// QualityAssurance escalates segments still ambiguous after micro-emphasis to
// the cloud reviewer. Only a short downsampled preview of the segment leaves
// the machine; escalation is recorded after the review call succeeds so a
// timeout never leaves a speculative escalation flag behind.
type QualityAssurance struct {
	store      *store.Store
	provider   *protocol.Provider
	model      generator
	media      previewRenderer
	cfg        config.CloudQA
	weights    scoring.Weights
	thresholds scoring.Thresholds
	logger     *slog.Logger
}

// NewQualityAssurance creates the cloud quality-assurance stage.
func NewQualityAssurance(st *store.Store, provider *protocol.Provider, model generator, media previewRenderer, cfg config.CloudQA, weights scoring.Weights, thresholds scoring.Thresholds, logger *slog.Logger) *QualityAssurance {
	return &QualityAssurance{
		store:      st,
		provider:   provider,
		model:      model,
		media:      media,
		cfg:        cfg,
		weights:    weights,
		thresholds: thresholds,
		logger:     logging.NewComponentLogger(logger, "quality_assurance"),
	}
}

func (a *QualityAssurance) Name() string { return "quality_assurance" }

func (a *QualityAssurance) Execute(ctx context.Context, ec agent.Context) agent.Result {
	segments, err := a.store.SegmentsForVideo(ctx, ec.VideoID)
	if err != nil {
		return agent.Fail(err)
	}
	lines, err := a.store.TranscriptForVideo(ctx, ec.VideoID)
	if err != nil {
		return agent.Fail(err)
	}
	prompt, err := a.provider.Get("quality_assurance", 1)
	if err != nil {
		return agent.Fail(err)
	}

	escalated := 0
	for _, segment := range segments {
		score, err := a.store.GetSegmentScore(ctx, segment.ID)
		if err != nil {
			return agent.Fail(err)
		}
		channels := scoring.Channels{
			Text:           score.TextScore,
			Vision:         score.VisionScore,
			AudioEmphasis:  score.AudioEmphasisScore,
			FacialEmphasis: score.FacialEmphasisScore,
		}
		combined, ok := scoring.Combined(a.weights, channels)
		if !ok || !a.thresholds.InAmbiguousBand(combined) {
			continue
		}

		cloudScore, err := a.review(ctx, ec, prompt, segment, channels, combined, lines)
		if err != nil {
			return agent.Fail(err)
		}
		if err := a.store.MarkEscalated(ctx, segment.ID); err != nil {
			return agent.Fail(err)
		}
		if err := a.store.SetCloudScore(ctx, segment.ID, cloudScore); err != nil {
			return agent.Fail(err)
		}
		escalated++
		a.logger.InfoContext(ctx, "segment escalated",
			logging.Int64("segment_id", segment.ID),
			logging.Float64("local_combined", combined),
			logging.Float64("cloud_score", cloudScore))
	}

	return agent.OK(map[string]any{"segments_escalated": escalated})
}

func (a *QualityAssurance) review(ctx context.Context, ec agent.Context, prompt *protocol.Prompt, segment store.Segment, channels scoring.Channels, combined float64, lines []store.TranscriptLine) (float64, error) {
	previewPath := filepath.Join(ec.TempDir(), fmt.Sprintf("preview_%d.mp4", segment.ID))
	duration := a.cfg.PreviewDuration
	if span := segment.EndTime - segment.StartTime; span < duration {
		duration = span
	}
	if err := a.media.RenderPreview(ctx, ec.VideoPath, segment.StartTime, duration, a.cfg.PreviewHeight, previewPath); err != nil {
		return 0, services.Wrap(services.ErrExternalCall, a.Name(), "render_preview", "", err)
	}
	preview, err := os.ReadFile(previewPath)
	if err != nil {
		return 0, fmt.Errorf("read preview: %w", err)
	}

	rendered, err := prompt.Format(map[string]string{
		"segment_start":      formatSeconds(segment.StartTime),
		"segment_end":        formatSeconds(segment.EndTime),
		"local_scores":       describeChannels(channels, combined),
		"transcript_excerpt": transcriptExcerpt(lines, segment.StartTime, segment.EndTime),
	})
	if err != nil {
		return 0, err
	}

	raw, err := a.model.Generate(ctx, ollama.Request{Prompt: rendered, Images: [][]byte{preview}})
	if err != nil {
		return 0, err
	}
	parsed, err := prompt.ParseOutput(raw)
	if err != nil {
		return 0, err
	}
	output := parsed.(*protocol.QualityAssuranceOutput)
	return cloudScoreFor(output), nil
}

// cloudScoreFor folds the reviewer's recommendation and confidence into one
// score channel: confident accepts land high, confident rejects land low,
// and an uncertain verdict contributes a neutral midpoint.
func cloudScoreFor(output *protocol.QualityAssuranceOutput) float64 {
	switch output.Recommendation {
	case "accept":
		return clamp01(output.ConfidenceScore)
	case "reject":
		return clamp01(1 - output.ConfidenceScore)
	default:
		return 0.5
	}
}

func describeChannels(channels scoring.Channels, combined float64) string {
	var parts []string
	appendChannel := func(name string, value *float64) {
		if value != nil {
			parts = append(parts, fmt.Sprintf("%s=%.2f", name, *value))
		}
	}
	appendChannel("text", channels.Text)
	appendChannel("vision", channels.Vision)
	appendChannel("audio_emphasis", channels.AudioEmphasis)
	appendChannel("facial_emphasis", channels.FacialEmphasis)
	parts = append(parts, fmt.Sprintf("combined=%.2f", combined))
	return strings.Join(parts, ", ")
}
