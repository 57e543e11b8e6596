// Package agents contains the concrete pipeline stage implementations. Each
// agent persists its own outputs through the store and reports back through
// the uniform result envelope; state transitions stay with the orchestrator.
package agents

import (
	"context"
	"fmt"
	"strings"

	"cliplift/internal/services/ollama"
	"cliplift/internal/services/whisperx"
	"cliplift/internal/store"
)

// generator is the slice of the model client agents call.
type generator interface {
	Generate(ctx context.Context, req ollama.Request) (string, error)
	Model() string
}

// transcriber is the slice of the whisperx service the transcription agent
// calls.
type transcriber interface {
	ExtractAudio(ctx context.Context, source, dest string) error
	Transcribe(ctx context.Context, audioPath, outputDir string) ([]whisperx.Line, error)
}

// renderTranscript flattens timed lines into the one-line-per-row form the
// text model prompt expects.
func renderTranscript(lines []store.TranscriptLine) string {
	var builder strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&builder, "[%.1f-%.1f] %s\n", line.StartTime, line.EndTime, line.Text)
	}
	return builder.String()
}

// transcriptExcerpt returns the text of lines overlapping [start, end), or a
// placeholder when the range is silent.
func transcriptExcerpt(lines []store.TranscriptLine, start, end float64) string {
	var parts []string
	for _, line := range lines {
		if line.EndTime > start && line.StartTime < end {
			parts = append(parts, line.Text)
		}
	}
	if len(parts) == 0 {
		return "(no speech in this range)"
	}
	return strings.Join(parts, " ")
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func formatSeconds(value float64) string {
	return fmt.Sprintf("%.1f", value)
}
