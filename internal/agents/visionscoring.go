package agents

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"cliplift/internal/agent"
	"cliplift/internal/logging"
	"cliplift/internal/protocol"
	"cliplift/internal/services"
	"cliplift/internal/services/ollama"
	"cliplift/internal/store"
)

// frameSampler is the slice of the ffmpeg service the vision stage calls.
type frameSampler interface {
	SampleFrames(ctx context.Context, source string, start, end float64, count int, destDir string) ([]string, error)
}

// VisionScoring samples frames from each candidate segment and asks the local
// vision model for a visual-appeal score.
type VisionScoring struct {
	store            *store.Store
	provider         *protocol.Provider
	model            generator
	media            frameSampler
	framesPerSegment int
	logger           *slog.Logger
}

// NewVisionScoring creates the vision scoring stage.
func NewVisionScoring(st *store.Store, provider *protocol.Provider, model generator, media frameSampler, framesPerSegment int, logger *slog.Logger) *VisionScoring {
	if framesPerSegment <= 0 {
		framesPerSegment = 3
	}
	return &VisionScoring{
		store:            st,
		provider:         provider,
		model:            model,
		media:            media,
		framesPerSegment: framesPerSegment,
		logger:           logging.NewComponentLogger(logger, "vision_scoring"),
	}
}

func (a *VisionScoring) Name() string { return "vision_scoring" }

func (a *VisionScoring) Execute(ctx context.Context, ec agent.Context) agent.Result {
	segments, err := a.store.SegmentsForVideo(ctx, ec.VideoID)
	if err != nil {
		return agent.Fail(err)
	}
	if len(segments) == 0 {
		return agent.Fail(services.Wrap(services.ErrValidation, a.Name(), "load_segments",
			"no candidate segments for video", nil))
	}
	lines, err := a.store.TranscriptForVideo(ctx, ec.VideoID)
	if err != nil {
		return agent.Fail(err)
	}

	prompt, err := a.provider.Get("vision_scoring", 1)
	if err != nil {
		return agent.Fail(err)
	}

	for _, segment := range segments {
		frameDir := filepath.Join(ec.TempDir(), fmt.Sprintf("frames_%d", segment.ID))
		if err := os.MkdirAll(frameDir, 0o755); err != nil {
			return agent.Fail(fmt.Errorf("create frame directory: %w", err))
		}
		framePaths, err := a.media.SampleFrames(ctx, ec.VideoPath, segment.StartTime, segment.EndTime, a.framesPerSegment, frameDir)
		if err != nil {
			return agent.Fail(services.Wrap(services.ErrExternalCall, a.Name(), "sample_frames", "", err))
		}
		images, err := readFrames(framePaths)
		if err != nil {
			return agent.Fail(err)
		}

		rendered, err := prompt.Format(map[string]string{
			"segment_start":      formatSeconds(segment.StartTime),
			"segment_end":        formatSeconds(segment.EndTime),
			"transcript_excerpt": transcriptExcerpt(lines, segment.StartTime, segment.EndTime),
		})
		if err != nil {
			return agent.Fail(err)
		}

		raw, err := a.model.Generate(ctx, ollama.Request{Prompt: rendered, Images: images})
		if err != nil {
			return agent.Fail(err)
		}
		parsed, err := prompt.ParseOutput(raw)
		if err != nil {
			return agent.Fail(err)
		}
		output := parsed.(*protocol.VisionScoringOutput)

		if err := a.store.SetVisionScore(ctx, segment.ID, output.VisionScore); err != nil {
			return agent.Fail(err)
		}
		a.logger.DebugContext(ctx, "segment scored",
			logging.Int64("segment_id", segment.ID),
			logging.Float64("vision_score", output.VisionScore))
	}

	return agent.OK(map[string]any{"segments_scored": len(segments)})
}

func readFrames(paths []string) ([][]byte, error) {
	images := make([][]byte, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read frame %s: %w", path, err)
		}
		images = append(images, data)
	}
	return images, nil
}
