package agents

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"cliplift/internal/agent"
	"cliplift/internal/logging"
	"cliplift/internal/media/ffmpeg"
	"cliplift/internal/scoring"
	"cliplift/internal/services"
	"cliplift/internal/store"
)

// loudnessMeter is the slice of the ffmpeg service the emphasis stage calls.
type loudnessMeter interface {
	MeasureLoudness(ctx context.Context, source string, start, end float64) (ffmpeg.Loudness, error)
	SampleFrames(ctx context.Context, source string, start, end float64, count int, destDir string) ([]string, error)
}

// emphasisFrameCount is the number of frames differenced per segment for the
// motion proxy.
const emphasisFrameCount = 4

// MicroEmphasis reinforces segments in the ambiguous band with two cheap
// signal measurements: audio prosody from the segment's dynamic range and a
// facial-motion proxy from frame-to-frame visual change. Segments outside the
// band are left untouched so escalation stays bounded.
type MicroEmphasis struct {
	store      *store.Store
	media      loudnessMeter
	weights    scoring.Weights
	thresholds scoring.Thresholds
	logger     *slog.Logger
}

// NewMicroEmphasis creates the micro-emphasis stage.
func NewMicroEmphasis(st *store.Store, media loudnessMeter, weights scoring.Weights, thresholds scoring.Thresholds, logger *slog.Logger) *MicroEmphasis {
	return &MicroEmphasis{
		store:      st,
		media:      media,
		weights:    weights,
		thresholds: thresholds,
		logger:     logging.NewComponentLogger(logger, "micro_emphasis"),
	}
}

func (a *MicroEmphasis) Name() string { return "micro_emphasis" }

func (a *MicroEmphasis) Execute(ctx context.Context, ec agent.Context) agent.Result {
	segments, err := a.store.SegmentsForVideo(ctx, ec.VideoID)
	if err != nil {
		return agent.Fail(err)
	}
	reinforced := 0
	for _, segment := range segments {
		score, err := a.store.GetSegmentScore(ctx, segment.ID)
		if err != nil {
			return agent.Fail(err)
		}
		combined, ok := scoring.Combined(a.weights, scoring.Channels{
			Text:   score.TextScore,
			Vision: score.VisionScore,
		})
		if !ok || !a.thresholds.InAmbiguousBand(combined) {
			continue
		}

		audio, err := a.audioEmphasis(ctx, ec.VideoPath, segment)
		if err != nil {
			return agent.Fail(services.Wrap(services.ErrExternalCall, a.Name(), "audio_emphasis", "", err))
		}
		facial, err := a.facialEmphasis(ctx, ec, segment)
		if err != nil {
			return agent.Fail(services.Wrap(services.ErrExternalCall, a.Name(), "facial_emphasis", "", err))
		}

		if err := a.store.SetAudioEmphasisScore(ctx, segment.ID, audio); err != nil {
			return agent.Fail(err)
		}
		if err := a.store.SetFacialEmphasisScore(ctx, segment.ID, facial); err != nil {
			return agent.Fail(err)
		}
		reinforced++
		a.logger.DebugContext(ctx, "segment reinforced",
			logging.Int64("segment_id", segment.ID),
			logging.Float64("audio_emphasis", audio),
			logging.Float64("facial_emphasis", facial))
	}

	return agent.OK(map[string]any{"segments_reinforced": reinforced})
}

// audioEmphasis maps the segment's dynamic range onto [0, 1]. A flat delivery
// has peak close to mean; an emphatic one spreads 20 dB or more.
func (a *MicroEmphasis) audioEmphasis(ctx context.Context, videoPath string, segment store.Segment) (float64, error) {
	loudness, err := a.media.MeasureLoudness(ctx, videoPath, segment.StartTime, segment.EndTime)
	if err != nil {
		return 0, err
	}
	spread := loudness.MaxVolume - loudness.MeanVolume
	return clamp01(spread / 20), nil
}

// facialEmphasis estimates visual motion from the relative change in
// compressed size between consecutively sampled frames. Frames are extracted
// at a fixed quality, so size deltas track how much the picture changes.
func (a *MicroEmphasis) facialEmphasis(ctx context.Context, ec agent.Context, segment store.Segment) (float64, error) {
	frameDir := filepath.Join(ec.TempDir(), fmt.Sprintf("emphasis_%d", segment.ID))
	if err := os.MkdirAll(frameDir, 0o755); err != nil {
		return 0, err
	}
	paths, err := a.media.SampleFrames(ctx, ec.VideoPath, segment.StartTime, segment.EndTime, emphasisFrameCount, frameDir)
	if err != nil {
		return 0, err
	}

	sizes := make([]float64, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return 0, err
		}
		sizes = append(sizes, float64(info.Size()))
	}
	if len(sizes) < 2 {
		return 0, nil
	}

	var deltaSum float64
	for i := 1; i < len(sizes); i++ {
		larger := math.Max(sizes[i-1], sizes[i])
		if larger == 0 {
			continue
		}
		deltaSum += math.Abs(sizes[i]-sizes[i-1]) / larger
	}
	mean := deltaSum / float64(len(sizes)-1)
	return clamp01(mean * 5), nil
}
