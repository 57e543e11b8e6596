package agents

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"cliplift/internal/agent"
	"cliplift/internal/config"
	"cliplift/internal/logging"
	"cliplift/internal/media/ffmpeg"
	"cliplift/internal/media/ffprobe"
	"cliplift/internal/protocol"
	"cliplift/internal/scoring"
	"cliplift/internal/services"
	"cliplift/internal/services/ollama"
	"cliplift/internal/services/whisperx"
	"cliplift/internal/store"
	"cliplift/internal/testsupport"
)

type fakeGenerator struct {
	response string
	err      error
	images   int
	prompts  []string
}

func (f *fakeGenerator) Generate(_ context.Context, req ollama.Request) (string, error) {
	f.prompts = append(f.prompts, req.Prompt)
	f.images += len(req.Images)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeGenerator) Model() string { return "fake-model" }

type fakeTranscriber struct {
	lines []whisperx.Line
}

func (f *fakeTranscriber) ExtractAudio(context.Context, string, string) error { return nil }

func (f *fakeTranscriber) Transcribe(context.Context, string, string) ([]whisperx.Line, error) {
	return f.lines, nil
}

type fakeMedia struct {
	loudness    ffmpeg.Loudness
	frameSizes  []int
	clipCalls   int
	previewErr  error
	renderedSRT []string
}

func (f *fakeMedia) SampleFrames(_ context.Context, _ string, _, _ float64, count int, destDir string) ([]string, error) {
	paths := make([]string, 0, count)
	for i := 0; i < count; i++ {
		size := 1000
		if i < len(f.frameSizes) {
			size = f.frameSizes[i]
		}
		path := filepath.Join(destDir, fmt.Sprintf("frame_%02d.jpg", i))
		if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (f *fakeMedia) MeasureLoudness(context.Context, string, float64, float64) (ffmpeg.Loudness, error) {
	return f.loudness, nil
}

func (f *fakeMedia) RenderPreview(_ context.Context, _ string, _, _ float64, _ int, dest string) error {
	if f.previewErr != nil {
		return f.previewErr
	}
	return os.WriteFile(dest, []byte("preview"), 0o644)
}

func (f *fakeMedia) RenderClip(_ context.Context, _ string, _, _ float64, opts ffmpeg.ClipOptions, dest string) error {
	f.clipCalls++
	f.renderedSRT = append(f.renderedSRT, opts.SubtitlePath)
	return os.WriteFile(dest, []byte("clip"), 0o644)
}

type fixture struct {
	cfg   *config.Config
	store *store.Store
	video *store.Video
	ec    agent.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	st := testsupport.MustOpenStore(t, cfg)

	video, err := st.NewVideo(context.Background(), "/videos/demo.mp4", "Demo", "user-1", nil)
	if err != nil {
		t.Fatalf("new video: %v", err)
	}

	ec := agent.Context{
		VideoID:   video.ID,
		UserID:    video.UserID,
		BasePath:  cfg.Paths.BaseDataDir,
		VideoPath: video.FilePath,
	}
	if err := ec.EnsureDirectories(); err != nil {
		t.Fatalf("ensure context directories: %v", err)
	}
	return &fixture{cfg: cfg, store: st, video: video, ec: ec}
}

func (f *fixture) seedTranscript(t *testing.T) {
	t.Helper()
	lines := []store.TranscriptLine{
		{VideoID: f.video.ID, StartTime: 0, EndTime: 10, Text: "welcome back everyone"},
		{VideoID: f.video.ID, StartTime: 10, EndTime: 25, Text: "this is the big reveal"},
		{VideoID: f.video.ID, StartTime: 25, EndTime: 40, Text: "thanks for watching"},
	}
	if err := f.store.InsertTranscript(context.Background(), f.video.ID, lines); err != nil {
		t.Fatalf("insert transcript: %v", err)
	}
}

func (f *fixture) seedSegment(t *testing.T, start, end, textScore float64) store.Segment {
	t.Helper()
	inserted, err := f.store.InsertSegments(context.Background(), f.video.ID, []store.Segment{
		{VideoID: f.video.ID, StartTime: start, EndTime: end, Source: segmentSourceText},
	})
	if err != nil {
		t.Fatalf("insert segment: %v", err)
	}
	if err := f.store.SetTextScore(context.Background(), inserted[0].ID, textScore); err != nil {
		t.Fatalf("set text score: %v", err)
	}
	return inserted[0]
}

func defaultWeights() scoring.Weights {
	return scoring.WeightsFromConfig(config.Default().Scoring)
}

func defaultThresholds() scoring.Thresholds {
	return scoring.ThresholdsFromConfig(config.Default().Scoring)
}

func TestTranscriptionPersistsLines(t *testing.T) {
	f := newFixture(t)
	svc := &fakeTranscriber{lines: []whisperx.Line{
		{StartTime: 0, EndTime: 4, Text: "hello"},
		{StartTime: 4, EndTime: 9, Text: "world"},
	}}
	a := NewTranscription(f.store, svc, "ffprobe", logging.NewNop())
	a.probe = func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{
			Streams: []ffprobe.Stream{{CodecType: "video"}, {CodecType: "audio"}},
			Format:  ffprobe.Format{Duration: "42.5"},
		}, nil
	}

	result := a.Execute(context.Background(), f.ec)
	if !result.Success {
		t.Fatalf("transcription failed: %v", result.Errs)
	}
	if result.Metadata[MetadataVideoDuration] != "42.5" {
		t.Fatalf("duration metadata missing: %v", result.Metadata)
	}

	lines, err := f.store.TranscriptForVideo(context.Background(), f.video.ID)
	if err != nil {
		t.Fatalf("load transcript: %v", err)
	}
	if len(lines) != 2 || lines[0].Text != "hello" {
		t.Fatalf("unexpected transcript %+v", lines)
	}
}

func TestTranscriptionRejectsSilentVideo(t *testing.T) {
	f := newFixture(t)
	a := NewTranscription(f.store, &fakeTranscriber{}, "ffprobe", logging.NewNop())
	a.probe = func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video"}}}, nil
	}

	result := a.Execute(context.Background(), f.ec)
	if result.Success {
		t.Fatal("expected failure for video without audio")
	}
	if !errors.Is(result.Errs[0], services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", result.Errs[0])
	}
}

func TestTextScoringPersistsSegmentsAndScores(t *testing.T) {
	f := newFixture(t)
	f.seedTranscript(t)

	model := &fakeGenerator{response: `{"segments":[
		{"start_time":10,"end_time":25,"score":0.8,"reason":"the big reveal moment"},
		{"start_time":0,"end_time":10,"score":0.3,"reason":"standard intro greeting"}
	]}`}
	a := NewTextScoring(f.store, protocol.NewProvider(), model, logging.NewNop())

	result := a.Execute(context.Background(), f.ec)
	if !result.Success {
		t.Fatalf("text scoring failed: %v", result.Errs)
	}

	segments, err := f.store.SegmentsForVideo(context.Background(), f.video.ID)
	if err != nil {
		t.Fatalf("load segments: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	for _, segment := range segments {
		score, err := f.store.GetSegmentScore(context.Background(), segment.ID)
		if err != nil {
			t.Fatalf("load score: %v", err)
		}
		if score.TextScore == nil {
			t.Fatalf("segment %d missing text score", segment.ID)
		}
	}
}

func TestTextScoringFailsOnMalformedModelOutput(t *testing.T) {
	f := newFixture(t)
	f.seedTranscript(t)

	model := &fakeGenerator{response: "I think segment two is best!"}
	a := NewTextScoring(f.store, protocol.NewProvider(), model, logging.NewNop())

	result := a.Execute(context.Background(), f.ec)
	if result.Success {
		t.Fatal("expected failure for non-JSON model output")
	}
	if !errors.Is(result.Errs[0], services.ErrMalformedOutput) {
		t.Fatalf("expected malformed output error, got %v", result.Errs[0])
	}
}

func TestVisionScoringAttachesFramesAndPersists(t *testing.T) {
	f := newFixture(t)
	f.seedTranscript(t)
	segment := f.seedSegment(t, 10, 25, 0.8)

	model := &fakeGenerator{response: `{
		"vision_score":0.7,
		"key_visual_elements":["animated gestures"],
		"emotional_intensity":"high",
		"reason":"speaker is highly animated"
	}`}
	media := &fakeMedia{}
	a := NewVisionScoring(f.store, protocol.NewProvider(), model, media, 3, logging.NewNop())

	result := a.Execute(context.Background(), f.ec)
	if !result.Success {
		t.Fatalf("vision scoring failed: %v", result.Errs)
	}
	if model.images != 3 {
		t.Fatalf("expected 3 frames attached, got %d", model.images)
	}

	score, err := f.store.GetSegmentScore(context.Background(), segment.ID)
	if err != nil {
		t.Fatalf("load score: %v", err)
	}
	if score.VisionScore == nil || *score.VisionScore != 0.7 {
		t.Fatalf("vision score not persisted: %+v", score)
	}
}

func TestMicroEmphasisOnlyReinforcesAmbiguousBand(t *testing.T) {
	f := newFixture(t)
	ambiguous := f.seedSegment(t, 10, 25, 0.5)
	confident := f.seedSegment(t, 30, 40, 0.9)

	media := &fakeMedia{
		loudness:   ffmpeg.Loudness{MeanVolume: -25, MaxVolume: -15},
		frameSizes: []int{1000, 1000, 1000, 1000},
	}
	a := NewMicroEmphasis(f.store, media, defaultWeights(), defaultThresholds(), logging.NewNop())

	result := a.Execute(context.Background(), f.ec)
	if !result.Success {
		t.Fatalf("micro emphasis failed: %v", result.Errs)
	}

	ambScore, err := f.store.GetSegmentScore(context.Background(), ambiguous.ID)
	if err != nil {
		t.Fatalf("load score: %v", err)
	}
	if ambScore.AudioEmphasisScore == nil || ambScore.FacialEmphasisScore == nil {
		t.Fatalf("ambiguous segment not reinforced: %+v", ambScore)
	}
	// 10 dB spread over a 20 dB scale.
	if *ambScore.AudioEmphasisScore != 0.5 {
		t.Fatalf("unexpected audio emphasis %v", *ambScore.AudioEmphasisScore)
	}

	confScore, err := f.store.GetSegmentScore(context.Background(), confident.ID)
	if err != nil {
		t.Fatalf("load score: %v", err)
	}
	if confScore.AudioEmphasisScore != nil || confScore.FacialEmphasisScore != nil {
		t.Fatalf("confident segment must be left untouched: %+v", confScore)
	}
}

func TestQualityAssuranceEscalatesAmbiguousSegment(t *testing.T) {
	f := newFixture(t)
	f.seedTranscript(t)
	ambiguous := f.seedSegment(t, 10, 25, 0.5)
	confident := f.seedSegment(t, 30, 40, 0.9)

	model := &fakeGenerator{response: `{
		"confidence_score":0.9,
		"recommendation":"accept",
		"key_factors":["strong hook"],
		"reason":"clear standalone moment"
	}`}
	media := &fakeMedia{}
	a := NewQualityAssurance(f.store, protocol.NewProvider(), model, media,
		config.Default().CloudQA, defaultWeights(), defaultThresholds(), logging.NewNop())

	result := a.Execute(context.Background(), f.ec)
	if !result.Success {
		t.Fatalf("quality assurance failed: %v", result.Errs)
	}

	ambScore, err := f.store.GetSegmentScore(context.Background(), ambiguous.ID)
	if err != nil {
		t.Fatalf("load score: %v", err)
	}
	if !ambScore.EscalatedToCloud {
		t.Fatal("ambiguous segment must be marked escalated")
	}
	if ambScore.CloudScore == nil || *ambScore.CloudScore != 0.9 {
		t.Fatalf("cloud score not persisted: %+v", ambScore)
	}
	if model.images != 1 {
		t.Fatalf("exactly one preview must be attached, got %d", model.images)
	}

	confScore, err := f.store.GetSegmentScore(context.Background(), confident.ID)
	if err != nil {
		t.Fatalf("load score: %v", err)
	}
	if confScore.EscalatedToCloud || confScore.CloudScore != nil {
		t.Fatalf("confident segment must not be escalated: %+v", confScore)
	}
}

func TestQualityAssuranceFailureLeavesEscalationUntouched(t *testing.T) {
	f := newFixture(t)
	f.seedTranscript(t)
	ambiguous := f.seedSegment(t, 10, 25, 0.5)

	model := &fakeGenerator{err: services.Wrap(services.ErrTimeout, "quality_assurance", "generate", "", context.DeadlineExceeded)}
	a := NewQualityAssurance(f.store, protocol.NewProvider(), model, &fakeMedia{},
		config.Default().CloudQA, defaultWeights(), defaultThresholds(), logging.NewNop())

	result := a.Execute(context.Background(), f.ec)
	if result.Success {
		t.Fatal("expected failure when cloud review fails")
	}

	score, err := f.store.GetSegmentScore(context.Background(), ambiguous.ID)
	if err != nil {
		t.Fatalf("load score: %v", err)
	}
	if score.EscalatedToCloud {
		t.Fatal("escalation must not be flipped speculatively before a successful review")
	}
}

func TestScoringRankingFlagsTopN(t *testing.T) {
	f := newFixture(t)
	low := f.seedSegment(t, 0, 10, 0.3)
	high := f.seedSegment(t, 10, 25, 0.9)
	mid := f.seedSegment(t, 30, 40, 0.7)

	a := NewScoringRanking(f.store, defaultWeights(), 2, logging.NewNop())
	result := a.Execute(context.Background(), f.ec)
	if !result.Success {
		t.Fatalf("scoring ranking failed: %v", result.Errs)
	}
	if result.Data["flagged"] != 2 {
		t.Fatalf("expected 2 flagged, got %v", result.Data["flagged"])
	}

	expect := map[int64]struct {
		rank    int64
		flagged bool
	}{
		high.ID: {1, true},
		mid.ID:  {2, true},
		low.ID:  {3, false},
	}
	for segmentID, want := range expect {
		score, err := f.store.GetSegmentScore(context.Background(), segmentID)
		if err != nil {
			t.Fatalf("load score: %v", err)
		}
		if score.ExportRank == nil || *score.ExportRank != want.rank {
			t.Fatalf("segment %d wrong rank: %+v", segmentID, score)
		}
		if score.FlaggedForExport != want.flagged {
			t.Fatalf("segment %d wrong flag: %+v", segmentID, score)
		}
		if score.CombinedScore == nil {
			t.Fatalf("segment %d missing combined score", segmentID)
		}
	}
}

func TestRenderingExportsOnlyFlaggedSegments(t *testing.T) {
	f := newFixture(t)
	f.seedTranscript(t)
	flagged := f.seedSegment(t, 10, 25, 0.9)
	skipped := f.seedSegment(t, 30, 40, 0.3)
	if err := f.store.SetExportRank(context.Background(), flagged.ID, 1, true); err != nil {
		t.Fatalf("set export rank: %v", err)
	}
	if err := f.store.SetExportRank(context.Background(), skipped.ID, 2, false); err != nil {
		t.Fatalf("set export rank: %v", err)
	}

	media := &fakeMedia{}
	a := NewRendering(f.store, media, config.Default().Rendering, logging.NewNop())

	result := a.Execute(context.Background(), f.ec)
	if !result.Success {
		t.Fatalf("rendering failed: %v", result.Errs)
	}
	if media.clipCalls != 1 {
		t.Fatalf("expected 1 clip render, got %d", media.clipCalls)
	}
	if len(media.renderedSRT) != 1 || media.renderedSRT[0] == "" {
		t.Fatalf("captions must be burned in when the segment has speech: %v", media.renderedSRT)
	}

	score, err := f.store.GetSegmentScore(context.Background(), flagged.ID)
	if err != nil {
		t.Fatalf("load score: %v", err)
	}
	if score.ClipPath == "" {
		t.Fatal("clip path not persisted")
	}
	unflaggedScore, err := f.store.GetSegmentScore(context.Background(), skipped.ID)
	if err != nil {
		t.Fatalf("load score: %v", err)
	}
	if unflaggedScore.ClipPath != "" {
		t.Fatalf("unflagged segment must not be rendered: %+v", unflaggedScore)
	}
}
