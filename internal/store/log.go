package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AppendLog writes one audit record for a pipeline step. The log is
// append-only; there is no update or delete path.
func (s *Store) AppendLog(ctx context.Context, videoID int64, step string, status LogStatus, message string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO processing_log (video_id, step, status, message, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		videoID, step, status, nullableString(message), timestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("append processing log: %w", err)
	}
	return nil
}

// LogForVideo returns a video's audit trail in insertion order.
func (s *Store) LogForVideo(ctx context.Context, videoID int64) ([]ProcessingLogEntry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, video_id, step, status, message, created_at FROM processing_log
         WHERE video_id = ? ORDER BY id`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("query processing log: %w", err)
	}
	defer rows.Close()

	var entries []ProcessingLogEntry
	for rows.Next() {
		var (
			entry      ProcessingLogEntry
			statusStr  string
			message    sql.NullString
			createdRaw sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.VideoID, &entry.Step, &statusStr, &message, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		entry.Status = LogStatus(statusStr)
		entry.Message = message.String
		if created, err := parseTimeString(createdRaw.String); err == nil {
			entry.CreatedAt = created
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
