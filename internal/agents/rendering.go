package agents

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"cliplift/internal/agent"
	"cliplift/internal/config"
	"cliplift/internal/logging"
	"cliplift/internal/media/ffmpeg"
	"cliplift/internal/services"
	"cliplift/internal/store"
)

// clipRenderer is the slice of the ffmpeg service the rendering stage calls.
type clipRenderer interface {
	RenderClip(ctx context.Context, source string, start, end float64, opts ffmpeg.ClipOptions, dest string) error
}

// Rendering exports every flagged segment as a finished clip with burned-in
// captions cut from the transcript.
type Rendering struct {
	store  *store.Store
	media  clipRenderer
	cfg    config.Rendering
	logger *slog.Logger
}

// NewRendering creates the clip rendering stage.
func NewRendering(st *store.Store, media clipRenderer, cfg config.Rendering, logger *slog.Logger) *Rendering {
	return &Rendering{
		store:  st,
		media:  media,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "rendering"),
	}
}

func (a *Rendering) Name() string { return "rendering" }

func (a *Rendering) Execute(ctx context.Context, ec agent.Context) agent.Result {
	segments, err := a.store.SegmentsForVideo(ctx, ec.VideoID)
	if err != nil {
		return agent.Fail(err)
	}
	lines, err := a.store.TranscriptForVideo(ctx, ec.VideoID)
	if err != nil {
		return agent.Fail(err)
	}

	rendered := 0
	for _, segment := range segments {
		score, err := a.store.GetSegmentScore(ctx, segment.ID)
		if err != nil {
			return agent.Fail(err)
		}
		if !score.FlaggedForExport || score.ExportRank == nil {
			continue
		}

		clipPath, err := a.renderClip(ctx, ec, segment, *score.ExportRank, lines)
		if err != nil {
			return agent.Fail(err)
		}
		if err := a.store.SetClipPath(ctx, segment.ID, clipPath); err != nil {
			return agent.Fail(err)
		}
		rendered++
		a.logger.InfoContext(ctx, "clip exported",
			logging.Int64("segment_id", segment.ID),
			logging.Int64("rank", *score.ExportRank),
			logging.String("path", clipPath))
	}

	return agent.OK(map[string]any{"clips_rendered": rendered})
}

func (a *Rendering) renderClip(ctx context.Context, ec agent.Context, segment store.Segment, rank int64, lines []store.TranscriptLine) (string, error) {
	opts := ffmpeg.ClipOptions{
		VideoCodec:      a.cfg.VideoCodec,
		AudioCodec:      a.cfg.AudioCodec,
		Preset:          a.cfg.Preset,
		CaptionFontSize: a.cfg.CaptionFontSize,
		CaptionOutline:  a.cfg.CaptionOutline,
		CaptionShadow:   a.cfg.CaptionShadow,
		Vertical:        a.cfg.Vertical,
	}

	captions := captionsFor(lines, segment.StartTime, segment.EndTime)
	if len(captions) > 0 {
		srtPath := filepath.Join(ec.TempDir(), fmt.Sprintf("clip_%02d.srt", rank))
		if err := ffmpeg.WriteSRT(captions, segment.StartTime, srtPath); err != nil {
			return "", err
		}
		opts.SubtitlePath = srtPath
	}

	clipPath := filepath.Join(ec.ClipsDir(), fmt.Sprintf("clip_%02d.mp4", rank))
	if err := a.media.RenderClip(ctx, ec.VideoPath, segment.StartTime, segment.EndTime, opts, clipPath); err != nil {
		return "", services.Wrap(services.ErrExternalCall, a.Name(), "render_clip", "", err)
	}
	return clipPath, nil
}

func captionsFor(lines []store.TranscriptLine, start, end float64) []ffmpeg.Caption {
	var captions []ffmpeg.Caption
	for _, line := range lines {
		if line.EndTime > start && line.StartTime < end {
			captions = append(captions, ffmpeg.Caption{
				Start: line.StartTime,
				End:   line.EndTime,
				Text:  line.Text,
			})
		}
	}
	return captions
}
