// Package ffmpeg drives the ffmpeg binary for frame sampling, preview
// generation, and clip rendering.
package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes an external command. Tests inject a fake to capture
// arguments without shelling out.
type Runner func(ctx context.Context, name string, args ...string) error

func defaultRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Service wraps ffmpeg invocations behind a small surface.
type Service struct {
	binary string
	runner Runner
	output OutputRunner
}

// NewService creates an ffmpeg service for the given binary name.
func NewService(binary string) *Service {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Service{binary: binary, runner: defaultRunner, output: defaultOutputRunner}
}

// WithRunner sets a custom command runner (for testing).
func (s *Service) WithRunner(runner Runner) *Service {
	s.runner = runner
	return s
}

func baseArgs() []string {
	return []string{"-y", "-hide_banner", "-loglevel", "error"}
}

// ExtractFrame grabs a single frame at the given timestamp.
func (s *Service) ExtractFrame(ctx context.Context, source string, atSeconds float64, dest string) error {
	args := append(baseArgs(),
		"-ss", formatSeconds(atSeconds),
		"-i", source,
		"-frames:v", "1",
		"-q:v", "2",
		dest,
	)
	return s.runner(ctx, s.binary, args...)
}

// SampleFrames grabs count frames spaced evenly across [start, end), writing
// frame_<n>.jpg files into destDir and returning their paths in order.
func (s *Service) SampleFrames(ctx context.Context, source string, start, end float64, count int, destDir string) ([]string, error) {
	if count <= 0 {
		return nil, fmt.Errorf("sample frames: count must be positive, got %d", count)
	}
	if end <= start {
		return nil, fmt.Errorf("sample frames: end %.3f must be after start %.3f", end, start)
	}

	span := end - start
	paths := make([]string, 0, count)
	for i := 0; i < count; i++ {
		at := start + span*(float64(i)+0.5)/float64(count)
		dest := fmt.Sprintf("%s/frame_%02d.jpg", strings.TrimRight(destDir, "/"), i)
		if err := s.ExtractFrame(ctx, source, at, dest); err != nil {
			return nil, err
		}
		paths = append(paths, dest)
	}
	return paths, nil
}

// RenderPreview writes a short, downsampled, silent preview of a segment.
// Previews exist to bound cloud review cost, so duration and height stay
// small by configuration.
func (s *Service) RenderPreview(ctx context.Context, source string, start, duration float64, height int, dest string) error {
	args := append(baseArgs(),
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-i", source,
		"-vf", fmt.Sprintf("scale=-2:%d", height),
		"-an",
		"-c:v", "libx264",
		"-preset", "veryfast",
		dest,
	)
	return s.runner(ctx, s.binary, args...)
}

// ClipOptions controls clip rendering.
type ClipOptions struct {
	VideoCodec      string
	AudioCodec      string
	Preset          string
	SubtitlePath    string
	CaptionFontSize int
	CaptionOutline  int
	CaptionShadow   int
	Vertical        bool
}

// RenderClip cuts [start, end) from the source into dest, optionally burning
// in captions and reframing to 9:16.
func (s *Service) RenderClip(ctx context.Context, source string, start, end float64, opts ClipOptions, dest string) error {
	if end <= start {
		return fmt.Errorf("render clip: end %.3f must be after start %.3f", end, start)
	}

	args := append(baseArgs(),
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-i", source,
	)

	var filters []string
	if opts.Vertical {
		filters = append(filters, "crop=ih*9/16:ih", "scale=1080:1920")
	}
	if opts.SubtitlePath != "" {
		style := fmt.Sprintf("FontSize=%d,Outline=%d,Shadow=%d",
			opts.CaptionFontSize, opts.CaptionOutline, opts.CaptionShadow)
		filters = append(filters, fmt.Sprintf("subtitles=%s:force_style='%s'", escapeFilterPath(opts.SubtitlePath), style))
	}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}

	args = append(args,
		"-c:v", opts.VideoCodec,
		"-preset", opts.Preset,
		"-c:a", opts.AudioCodec,
		dest,
	)
	return s.runner(ctx, s.binary, args...)
}

func formatSeconds(value float64) string {
	return fmt.Sprintf("%.3f", value)
}

// escapeFilterPath escapes characters that the ffmpeg filter parser treats
// specially inside the subtitles filter argument.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
	)
	return replacer.Replace(path)
}
