package agents

import (
	"context"
	"log/slog"

	"cliplift/internal/agent"
	"cliplift/internal/logging"
	"cliplift/internal/protocol"
	"cliplift/internal/services"
	"cliplift/internal/services/ollama"
	"cliplift/internal/store"
)

// segmentSourceText tags candidate segments proposed from the transcript by
// the text model.
const segmentSourceText = "transcript_llm"

// TextScoring asks the text model for highlight candidates and persists them
// as segments with their text-channel scores.
type TextScoring struct {
	store    *store.Store
	provider *protocol.Provider
	model    generator
	logger   *slog.Logger
}

// NewTextScoring creates the text scoring stage.
func NewTextScoring(st *store.Store, provider *protocol.Provider, model generator, logger *slog.Logger) *TextScoring {
	return &TextScoring{
		store:    st,
		provider: provider,
		model:    model,
		logger:   logging.NewComponentLogger(logger, "text_scoring"),
	}
}

func (a *TextScoring) Name() string { return "text_scoring" }

func (a *TextScoring) Execute(ctx context.Context, ec agent.Context) agent.Result {
	lines, err := a.store.TranscriptForVideo(ctx, ec.VideoID)
	if err != nil {
		return agent.Fail(err)
	}
	if len(lines) == 0 {
		return agent.Fail(services.Wrap(services.ErrValidation, a.Name(), "load_transcript",
			"no transcript lines for video", nil))
	}

	duration := ec.Metadata[MetadataVideoDuration]
	if duration == "" {
		duration = formatSeconds(lines[len(lines)-1].EndTime)
	}

	prompt, err := a.provider.Get("text_scoring", 1)
	if err != nil {
		return agent.Fail(err)
	}
	rendered, err := prompt.Format(map[string]string{
		"transcript":     renderTranscript(lines),
		"video_duration": duration,
	})
	if err != nil {
		return agent.Fail(err)
	}

	raw, err := a.model.Generate(ctx, ollama.Request{Prompt: rendered})
	if err != nil {
		return agent.Fail(err)
	}
	parsed, err := prompt.ParseOutput(raw)
	if err != nil {
		return agent.Fail(err)
	}
	output := parsed.(*protocol.TextScoringOutput)

	segments := make([]store.Segment, 0, len(output.Segments))
	for _, span := range output.Segments {
		segments = append(segments, store.Segment{
			VideoID:   ec.VideoID,
			StartTime: span.StartTime,
			EndTime:   span.EndTime,
			Source:    segmentSourceText,
		})
	}
	inserted, err := a.store.InsertSegments(ctx, ec.VideoID, segments)
	if err != nil {
		return agent.Fail(err)
	}
	for i, segment := range inserted {
		if err := a.store.SetTextScore(ctx, segment.ID, output.Segments[i].Score); err != nil {
			return agent.Fail(err)
		}
	}

	a.logger.InfoContext(ctx, "candidate segments persisted",
		logging.Int("segments", len(inserted)),
		logging.String("model", a.model.Model()))

	return agent.OK(map[string]any{"segment_count": len(inserted)})
}
