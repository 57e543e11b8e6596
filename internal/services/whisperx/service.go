// Package whisperx shells out to the whisperx CLI for word-timed
// transcription, with ffmpeg handling audio extraction.
package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"cliplift/internal/services"
)

// Config holds transcription runtime settings.
type Config struct {
	WhisperModel   string
	Device         string
	TimeoutSeconds int
}

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Service coordinates audio extraction and transcription.
type Service struct {
	cfg            Config
	ffmpegBinary   string
	whisperxBinary string
	runner         commandRunner
}

// NewService creates a transcription service.
func NewService(cfg Config, ffmpegBinary, whisperxBinary string) *Service {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(whisperxBinary) == "" {
		whisperxBinary = "whisperx"
	}
	return &Service{
		cfg:            cfg,
		ffmpegBinary:   ffmpegBinary,
		whisperxBinary: whisperxBinary,
		runner:         defaultCommandRunner,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner commandRunner) *Service {
	s.runner = runner
	return s
}

// Line is one transcript line with timing in seconds from the start of the
// source video.
type Line struct {
	StartTime float64
	EndTime   float64
	Text      string
}

// ExtractAudio pulls the first audio track into a mono 16 kHz WAV file, the
// input format whisperx expects.
func (s *Service) ExtractAudio(ctx context.Context, source, dest string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", source,
		"-map", "0:a:0",
		"-vn", "-sn", "-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	if output, err := s.runner(ctx, s.ffmpegBinary, args...); err != nil {
		return services.Wrap(services.ErrExternalCall, "transcription", "extract_audio",
			strings.TrimSpace(string(output)), err)
	}
	return nil
}

// Transcribe runs whisperx on an audio file and parses its JSON output into
// timed lines. outputDir receives whisperx's result files.
func (s *Service) Transcribe(ctx context.Context, audioPath, outputDir string) ([]Line, error) {
	if s.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	args := []string{
		audioPath,
		"--model", s.cfg.WhisperModel,
		"--device", s.cfg.Device,
		"--output_format", "json",
		"--output_dir", outputDir,
	}
	output, err := s.runner(ctx, s.whisperxBinary, args...)
	if err != nil {
		marker := services.ErrExternalCall
		if ctx.Err() == context.DeadlineExceeded {
			marker = services.ErrTimeout
		}
		return nil, services.Wrap(marker, "transcription", "whisperx",
			strings.TrimSpace(string(output)), err)
	}

	jsonPath := filepath.Join(outputDir, baseNameWithoutExt(audioPath)+".json")
	return parseResultFile(jsonPath)
}

type resultFile struct {
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
	Language string `json:"language"`
}

func parseResultFile(path string) ([]Line, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalCall, "transcription", "read_output",
			fmt.Sprintf("whisperx output missing at %s", path), err)
	}

	var result resultFile
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, services.Wrap(services.ErrMalformedOutput, "transcription", "parse_output", "", err)
	}
	if len(result.Segments) == 0 {
		return nil, services.Wrap(services.ErrMalformedOutput, "transcription", "parse_output",
			"whisperx produced no segments", nil)
	}

	lines := make([]Line, 0, len(result.Segments))
	for i, segment := range result.Segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		if segment.End <= segment.Start {
			return nil, services.Wrap(services.ErrMalformedOutput, "transcription", "parse_output",
				fmt.Sprintf("segment %d has end %.3f before start %.3f", i, segment.End, segment.Start), nil)
		}
		lines = append(lines, Line{StartTime: segment.Start, EndTime: segment.End, Text: text})
	}
	if len(lines) == 0 {
		return nil, services.Wrap(services.ErrMalformedOutput, "transcription", "parse_output",
			"whisperx produced only empty segments", nil)
	}
	return lines, nil
}

func baseNameWithoutExt(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
