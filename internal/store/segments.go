package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cliplift/internal/services"
)

// InsertSegments writes candidate segments for a video and returns them with
// assigned identifiers. Each segment also gets an empty score row so later
// stages update rather than create.
func (s *Store) InsertSegments(ctx context.Context, videoID int64, segments []Segment) ([]Segment, error) {
	for _, seg := range segments {
		if seg.EndTime <= seg.StartTime {
			return nil, services.Wrap(services.ErrValidation, "store", "insert segments",
				fmt.Sprintf("segment end %.3f must be after start %.3f", seg.EndTime, seg.StartTime), nil)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin segments tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		res, err := tx.ExecContext(
			ctx,
			`INSERT INTO segments (video_id, start_time, end_time, source) VALUES (?, ?, ?, ?)`,
			videoID, seg.StartTime, seg.EndTime, seg.Source,
		)
		if err != nil {
			return nil, fmt.Errorf("insert segment: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO segment_scores (segment_id) VALUES (?)`,
			id,
		); err != nil {
			return nil, fmt.Errorf("insert segment score row: %w", err)
		}
		seg.ID = id
		seg.VideoID = videoID
		inserted = append(inserted, seg)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit segments: %w", err)
	}
	return inserted, nil
}

// GetSegment fetches a segment by identifier. Returns nil when no row exists.
func (s *Store) GetSegment(ctx context.Context, id int64) (*Segment, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, video_id, start_time, end_time, source FROM segments WHERE id = ?`,
		id,
	)
	var seg Segment
	err := row.Scan(&seg.ID, &seg.VideoID, &seg.StartTime, &seg.EndTime, &seg.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get segment: %w", err)
	}
	return &seg, nil
}

// SegmentsForVideo returns a video's candidate segments ordered by start time.
func (s *Store) SegmentsForVideo(ctx context.Context, videoID int64) ([]Segment, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, video_id, start_time, end_time, source FROM segments
         WHERE video_id = ? ORDER BY start_time, id`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var segments []Segment
	for rows.Next() {
		var seg Segment
		if err := rows.Scan(&seg.ID, &seg.VideoID, &seg.StartTime, &seg.EndTime, &seg.Source); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}
