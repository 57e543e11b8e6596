package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
)

// OutputRunner executes a command and returns its combined output. Separate
// from Runner because volumedetect reports on stderr.
type OutputRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultOutputRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// WithOutputRunner sets a custom output-capturing runner (for testing).
func (s *Service) WithOutputRunner(runner OutputRunner) *Service {
	s.output = runner
	return s
}

// Loudness summarizes volumedetect results for a time range, in dBFS.
type Loudness struct {
	MeanVolume float64
	MaxVolume  float64
}

var (
	meanVolumePattern = regexp.MustCompile(`mean_volume:\s*(-?\d+(?:\.\d+)?)\s*dB`)
	maxVolumePattern  = regexp.MustCompile(`max_volume:\s*(-?\d+(?:\.\d+)?)\s*dB`)
)

// MeasureLoudness runs volumedetect over [start, end) of the source audio and
// parses the mean and peak levels from the filter report.
func (s *Service) MeasureLoudness(ctx context.Context, source string, start, end float64) (Loudness, error) {
	if end <= start {
		return Loudness{}, fmt.Errorf("measure loudness: end %.3f must be after start %.3f", end, start)
	}
	args := []string{
		"-hide_banner",
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-i", source,
		"-vn",
		"-af", "volumedetect",
		"-f", "null", "-",
	}
	output, err := s.output(ctx, s.binary, args...)
	if err != nil {
		return Loudness{}, fmt.Errorf("measure loudness: %w", err)
	}

	mean, ok := extractDB(meanVolumePattern, output)
	if !ok {
		return Loudness{}, fmt.Errorf("measure loudness: no mean_volume in volumedetect output")
	}
	max, ok := extractDB(maxVolumePattern, output)
	if !ok {
		return Loudness{}, fmt.Errorf("measure loudness: no max_volume in volumedetect output")
	}
	return Loudness{MeanVolume: mean, MaxVolume: max}, nil
}

func extractDB(pattern *regexp.Regexp, output []byte) (float64, bool) {
	match := pattern.FindSubmatch(output)
	if match == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(string(match[1]), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
