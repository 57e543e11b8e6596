package store

import (
	"context"
	"fmt"

	"cliplift/internal/services"
)

// InsertTranscript writes the full transcript for a video in one transaction.
// Lines with end <= start are rejected before anything is written.
func (s *Store) InsertTranscript(ctx context.Context, videoID int64, lines []TranscriptLine) error {
	for _, line := range lines {
		if line.EndTime <= line.StartTime {
			return services.Wrap(services.ErrValidation, "store", "insert transcript",
				fmt.Sprintf("line end %.3f must be after start %.3f", line.EndTime, line.StartTime), nil)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transcript tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transcript (video_id, start_time, end_time, text) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare transcript insert: %w", err)
	}
	defer stmt.Close()

	for _, line := range lines {
		if _, err := stmt.ExecContext(ctx, videoID, line.StartTime, line.EndTime, line.Text); err != nil {
			return fmt.Errorf("insert transcript line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transcript: %w", err)
	}
	return nil
}

// TranscriptForVideo returns the video's transcript ordered by start time.
func (s *Store) TranscriptForVideo(ctx context.Context, videoID int64) ([]TranscriptLine, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, video_id, start_time, end_time, text FROM transcript
         WHERE video_id = ? ORDER BY start_time, id`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	var lines []TranscriptLine
	for rows.Next() {
		var line TranscriptLine
		if err := rows.Scan(&line.ID, &line.VideoID, &line.StartTime, &line.EndTime, &line.Text); err != nil {
			return nil, fmt.Errorf("scan transcript line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
