package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Per-channel setters keep score writes explicit: each stage owns its column
// and nothing else. Every setter fails with an IntegrityError when the
// segment's score row does not exist.

// SetTextScore records the text channel value for a segment.
func (s *Store) SetTextScore(ctx context.Context, segmentID int64, score float64) error {
	return s.setScoreColumn(ctx, segmentID, "text_score", score)
}

// SetVisionScore records the local vision channel value for a segment.
func (s *Store) SetVisionScore(ctx context.Context, segmentID int64, score float64) error {
	return s.setScoreColumn(ctx, segmentID, "vision_score", score)
}

// SetAudioEmphasisScore records the audio prosody channel value for a segment.
func (s *Store) SetAudioEmphasisScore(ctx context.Context, segmentID int64, score float64) error {
	return s.setScoreColumn(ctx, segmentID, "audio_emphasis_score", score)
}

// SetFacialEmphasisScore records the facial motion channel value for a segment.
func (s *Store) SetFacialEmphasisScore(ctx context.Context, segmentID int64, score float64) error {
	return s.setScoreColumn(ctx, segmentID, "facial_emphasis_score", score)
}

// SetCloudScore records the cloud review channel value for a segment.
func (s *Store) SetCloudScore(ctx context.Context, segmentID int64, score float64) error {
	return s.setScoreColumn(ctx, segmentID, "cloud_score", score)
}

// SetCombinedScore records the weighted aggregate for a segment.
func (s *Store) SetCombinedScore(ctx context.Context, segmentID int64, score float64) error {
	return s.setScoreColumn(ctx, segmentID, "combined_score", score)
}

func (s *Store) setScoreColumn(ctx context.Context, segmentID int64, column string, score float64) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE segment_scores SET `+column+` = ? WHERE segment_id = ?`,
		score, segmentID,
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", column, err)
	}
	return requireRow(res, "segment score", segmentID, "set "+column)
}

// MarkEscalated flags a segment as escalated to cloud review. The flag is
// monotonic: the OR in SQL means it can be raised but never lowered, no
// matter what callers pass later.
func (s *Store) MarkEscalated(ctx context.Context, segmentID int64) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE segment_scores SET escalated_to_cloud = escalated_to_cloud OR 1 WHERE segment_id = ?`,
		segmentID,
	)
	if err != nil {
		return fmt.Errorf("mark escalated: %w", err)
	}
	return requireRow(res, "segment score", segmentID, "mark escalated")
}

// SetExportRank records a segment's rank and whether it was flagged for
// automatic export.
func (s *Store) SetExportRank(ctx context.Context, segmentID int64, rank int64, flagged bool) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE segment_scores SET export_rank = ?, flagged_for_export = ? WHERE segment_id = ?`,
		rank, boolToInt(flagged), segmentID,
	)
	if err != nil {
		return fmt.Errorf("set export rank: %w", err)
	}
	return requireRow(res, "segment score", segmentID, "set export rank")
}

// SetClipPath records where the rendered clip for a segment was written.
func (s *Store) SetClipPath(ctx context.Context, segmentID int64, clipPath string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE segment_scores SET clip_path = ? WHERE segment_id = ?`,
		nullableString(clipPath), segmentID,
	)
	if err != nil {
		return fmt.Errorf("set clip path: %w", err)
	}
	return requireRow(res, "segment score", segmentID, "set clip path")
}

const scoreColumns = "segment_id, text_score, vision_score, audio_emphasis_score, facial_emphasis_score, cloud_score, combined_score, escalated_to_cloud, export_rank, flagged_for_export, clip_path"

// GetSegmentScore fetches the score row for a segment. Returns nil when no
// row exists.
func (s *Store) GetSegmentScore(ctx context.Context, segmentID int64) (*SegmentScore, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+scoreColumns+` FROM segment_scores WHERE segment_id = ?`,
		segmentID,
	)
	score, err := scanSegmentScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get segment score: %w", err)
	}
	return score, nil
}

// ScoresForVideo returns score rows for all of a video's segments keyed by
// segment, ordered by segment start time.
func (s *Store) ScoresForVideo(ctx context.Context, videoID int64) ([]*SegmentScore, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT sc.segment_id, sc.text_score, sc.vision_score, sc.audio_emphasis_score,
                sc.facial_emphasis_score, sc.cloud_score, sc.combined_score,
                sc.escalated_to_cloud, sc.export_rank, sc.flagged_for_export, sc.clip_path
         FROM segment_scores sc
         JOIN segments seg ON seg.id = sc.segment_id
         WHERE seg.video_id = ?
         ORDER BY seg.start_time, seg.id`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var scores []*SegmentScore
	for rows.Next() {
		score, err := scanSegmentScore(rows)
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}
	return scores, rows.Err()
}

func scanSegmentScore(scanner interface{ Scan(dest ...any) error }) (*SegmentScore, error) {
	var (
		segmentID int64
		text      sql.NullFloat64
		vision    sql.NullFloat64
		audio     sql.NullFloat64
		facial    sql.NullFloat64
		cloud     sql.NullFloat64
		combined  sql.NullFloat64
		escalated int64
		rank      sql.NullInt64
		flagged   int64
		clipPath  sql.NullString
	)
	if err := scanner.Scan(
		&segmentID, &text, &vision, &audio, &facial, &cloud, &combined,
		&escalated, &rank, &flagged, &clipPath,
	); err != nil {
		return nil, err
	}

	score := &SegmentScore{
		SegmentID:        segmentID,
		EscalatedToCloud: escalated != 0,
		FlaggedForExport: flagged != 0,
		ClipPath:         clipPath.String,
	}
	if text.Valid {
		v := text.Float64
		score.TextScore = &v
	}
	if vision.Valid {
		v := vision.Float64
		score.VisionScore = &v
	}
	if audio.Valid {
		v := audio.Float64
		score.AudioEmphasisScore = &v
	}
	if facial.Valid {
		v := facial.Float64
		score.FacialEmphasisScore = &v
	}
	if cloud.Valid {
		v := cloud.Float64
		score.CloudScore = &v
	}
	if combined.Valid {
		v := combined.Float64
		score.CombinedScore = &v
	}
	if rank.Valid {
		v := rank.Int64
		score.ExportRank = &v
	}
	return score, nil
}
