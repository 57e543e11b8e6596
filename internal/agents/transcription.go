package agents

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"cliplift/internal/agent"
	"cliplift/internal/logging"
	"cliplift/internal/media/ffprobe"
	"cliplift/internal/services"
	"cliplift/internal/store"
)

// MetadataVideoDuration is the context metadata key carrying the container
// duration in seconds, set by the transcription stage for later stages.
const MetadataVideoDuration = "video_duration"

// Transcription probes the source file, extracts its audio, and persists the
// timed transcript.
type Transcription struct {
	store         *store.Store
	service       transcriber
	ffprobeBinary string
	probe         func(ctx context.Context, binary, path string) (ffprobe.Result, error)
	logger        *slog.Logger
}

// NewTranscription creates the transcription stage.
func NewTranscription(st *store.Store, service transcriber, ffprobeBinary string, logger *slog.Logger) *Transcription {
	return &Transcription{
		store:         st,
		service:       service,
		ffprobeBinary: ffprobeBinary,
		probe:         ffprobe.Inspect,
		logger:        logging.NewComponentLogger(logger, "transcription"),
	}
}

func (a *Transcription) Name() string { return "transcription" }

func (a *Transcription) Execute(ctx context.Context, ec agent.Context) agent.Result {
	probe, err := a.probe(ctx, a.ffprobeBinary, ec.VideoPath)
	if err != nil {
		return agent.Fail(services.Wrap(services.ErrExternalCall, a.Name(), "probe", "", err))
	}
	if probe.AudioStreamCount() == 0 {
		return agent.Fail(services.Wrap(services.ErrValidation, a.Name(), "probe",
			fmt.Sprintf("%s has no audio stream", ec.VideoPath), nil))
	}
	duration := probe.DurationSeconds()

	audioPath := filepath.Join(ec.TempDir(), "audio.wav")
	if err := a.service.ExtractAudio(ctx, ec.VideoPath, audioPath); err != nil {
		return agent.Fail(err)
	}

	lines, err := a.service.Transcribe(ctx, audioPath, ec.TempDir())
	if err != nil {
		return agent.Fail(err)
	}

	records := make([]store.TranscriptLine, 0, len(lines))
	for _, line := range lines {
		records = append(records, store.TranscriptLine{
			VideoID:   ec.VideoID,
			StartTime: line.StartTime,
			EndTime:   line.EndTime,
			Text:      line.Text,
		})
	}
	if err := a.store.InsertTranscript(ctx, ec.VideoID, records); err != nil {
		return agent.Fail(err)
	}

	a.logger.InfoContext(ctx, "transcript persisted",
		logging.Int("lines", len(records)),
		logging.Float64("duration_seconds", duration))

	result := agent.OK(map[string]any{
		"line_count":       len(records),
		"duration_seconds": duration,
	})
	result.Metadata = map[string]string{MetadataVideoDuration: formatSeconds(duration)}
	return result
}
