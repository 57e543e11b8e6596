package ffmpeg

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Caption is one timed caption line for SRT generation.
type Caption struct {
	Start float64
	End   float64
	Text  string
}

// WriteSRT writes captions as an SRT file. Timestamps are shifted by offset
// so captions cut from the middle of a source line up with a clip that
// starts at zero. Captions that fall entirely before the offset are dropped.
func WriteSRT(captions []Caption, offset float64, path string) error {
	var builder strings.Builder
	index := 1
	for _, caption := range captions {
		start := caption.Start - offset
		end := caption.End - offset
		if end <= 0 {
			continue
		}
		if start < 0 {
			start = 0
		}
		fmt.Fprintf(&builder, "%d\n%s --> %s\n%s\n\n",
			index, srtTimestamp(start), srtTimestamp(end), strings.TrimSpace(caption.Text))
		index++
	}
	if err := os.WriteFile(path, []byte(builder.String()), 0o644); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}

func srtTimestamp(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	millis := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
