package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cliplift/internal/state"
)

const videoColumns = "id, file_path, title, user_id, status, error_message, watch_directory_id, created_at, updated_at"

// NewVideo registers a source file at the start of the lifecycle.
func (s *Store) NewVideo(ctx context.Context, filePath, title, userID string, watchDirectoryID *int64) (*Video, error) {
	now := timestamp(time.Now())

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO videos (file_path, title, user_id, status, watch_directory_id, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		filePath,
		nullableString(title),
		userID,
		state.StateIngested,
		nullableInt64(watchDirectoryID),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert video: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetVideo(ctx, id)
}

// GetVideo fetches a video by identifier. Returns nil when no row exists.
func (s *Store) GetVideo(ctx context.Context, id int64) (*Video, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	return video, nil
}

// FindVideoByPath returns the most recent video registered for a file path.
func (s *Store) FindVideoByPath(ctx context.Context, filePath string) (*Video, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+videoColumns+` FROM videos WHERE file_path = ? ORDER BY id DESC LIMIT 1`,
		filePath,
	)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find video by path: %w", err)
	}
	return video, nil
}

// ListVideos returns videos filtered by state set, or all videos when no state
// is provided, ordered by creation time.
func (s *Store) ListVideos(ctx context.Context, states ...state.VideoState) ([]*Video, error) {
	baseQuery := `SELECT ` + videoColumns + ` FROM videos`
	orderClause := ` ORDER BY created_at, id`

	var (
		rows *sql.Rows
		err  error
	)
	if len(states) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(states))
		args := make([]any, len(states))
		for i, st := range states {
			args[i] = st
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

// TransitionVideo moves a video to the requested state after validating the
// edge against the lifecycle table. The read and write happen in one
// transaction so concurrent transitions cannot interleave.
func (s *Store) TransitionVideo(ctx context.Context, id int64, to state.VideoState) (*Video, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM videos WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &IntegrityError{Entity: "video", ID: id, Operation: "transition"}
	}
	if err != nil {
		return nil, fmt.Errorf("read video status: %w", err)
	}

	from, err := state.ParseState(current)
	if err != nil {
		return nil, err
	}
	if err := state.ValidateTransition(from, to); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE videos SET status = ?, updated_at = ? WHERE id = ?`,
		to, timestamp(time.Now()), id,
	); err != nil {
		return nil, fmt.Errorf("update video status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}

	return s.GetVideo(ctx, id)
}

// MarkVideoError moves a video to the error state and records the failure
// message. Legal from every non-terminal state.
func (s *Store) MarkVideoError(ctx context.Context, id int64, message string) (*Video, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin error tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM videos WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &IntegrityError{Entity: "video", ID: id, Operation: "mark error"}
	}
	if err != nil {
		return nil, fmt.Errorf("read video status: %w", err)
	}

	from, err := state.ParseState(current)
	if err != nil {
		return nil, err
	}
	if err := state.ValidateTransition(from, state.StateError); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE videos SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		state.StateError, nullableString(message), timestamp(time.Now()), id,
	); err != nil {
		return nil, fmt.Errorf("update video error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit error transition: %w", err)
	}

	return s.GetVideo(ctx, id)
}

// SetVideoTitle updates the display title for a video.
func (s *Store) SetVideoTitle(ctx context.Context, id int64, title string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE videos SET title = ?, updated_at = ? WHERE id = ?`,
		nullableString(title), timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set video title: %w", err)
	}
	return requireRow(res, "video", id, "set title")
}

// SetVideoFilePath records the video's relocated source path.
func (s *Store) SetVideoFilePath(ctx context.Context, id int64, filePath string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE videos SET file_path = ?, updated_at = ? WHERE id = ?`,
		filePath, timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set video file path: %w", err)
	}
	return requireRow(res, "video", id, "set file path")
}

func scanVideo(scanner interface{ Scan(dest ...any) error }) (*Video, error) {
	var (
		id           int64
		filePath     string
		title        sql.NullString
		userID       string
		statusStr    string
		errorMessage sql.NullString
		watchDirID   sql.NullInt64
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&filePath,
		&title,
		&userID,
		&statusStr,
		&errorMessage,
		&watchDirID,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	video := &Video{
		ID:           id,
		FilePath:     filePath,
		Title:        title.String,
		UserID:       userID,
		State:        state.VideoState(statusStr),
		ErrorMessage: errorMessage.String,
	}
	if watchDirID.Valid {
		v := watchDirID.Int64
		video.WatchDirectoryID = &v
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		video.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		video.UpdatedAt = updated
	}
	return video, nil
}

func requireRow(res sql.Result, entity string, id int64, operation string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return &IntegrityError{Entity: entity, ID: id, Operation: operation}
	}
	return nil
}
