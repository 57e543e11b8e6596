package store

import (
	"time"

	"cliplift/internal/state"
)

// Video is one registered source file moving through the pipeline.
type Video struct {
	ID               int64
	FilePath         string
	Title            string
	UserID           string
	State            state.VideoState
	ErrorMessage     string
	WatchDirectoryID *int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// WatchDirectory is a directory the daemon polls for new source files.
type WatchDirectory struct {
	ID            int64
	UserID        string
	DirectoryPath string
	IsActive      bool
	CreatedAt     time.Time
}

// TranscriptLine is one timed line of speech. Immutable once written.
type TranscriptLine struct {
	ID        int64
	VideoID   int64
	StartTime float64
	EndTime   float64
	Text      string
}

// Segment is a candidate clip time range. Source records how it was proposed.
type Segment struct {
	ID        int64
	VideoID   int64
	StartTime float64
	EndTime   float64
	Source    string
}

// SegmentScore carries every scoring channel for one segment. Channel fields
// stay nil until their producing stage runs.
type SegmentScore struct {
	SegmentID           int64
	TextScore           *float64
	VisionScore         *float64
	AudioEmphasisScore  *float64
	FacialEmphasisScore *float64
	CloudScore          *float64
	CombinedScore       *float64
	EscalatedToCloud    bool
	ExportRank          *int64
	FlaggedForExport    bool
	ClipPath            string
}

// LogStatus is the outcome recorded in a processing log entry.
type LogStatus string

const (
	LogStatusOK   LogStatus = "ok"
	LogStatusFail LogStatus = "fail"
)

// ProcessingLogEntry is one append-only audit record for a pipeline step.
type ProcessingLogEntry struct {
	ID        int64
	VideoID   int64
	Step      string
	Status    LogStatus
	Message   string
	CreatedAt time.Time
}
