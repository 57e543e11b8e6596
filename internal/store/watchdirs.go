package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cliplift/internal/services"
)

// ErrDuplicateWatchDirectory indicates the directory is already registered.
var ErrDuplicateWatchDirectory = errors.New("watch directory already registered")

const watchDirColumns = "id, user_id, directory_path, is_active, created_at"

// AddWatchDirectory registers a directory for polling. Paths are unique; a
// duplicate registration returns ErrDuplicateWatchDirectory rather than a
// second row.
func (s *Store) AddWatchDirectory(ctx context.Context, userID, directoryPath string) (*WatchDirectory, error) {
	directoryPath = strings.TrimSpace(directoryPath)
	if directoryPath == "" {
		return nil, services.Wrap(services.ErrValidation, "store", "add watch directory", "directory path is empty", nil)
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO watch_directories (user_id, directory_path, is_active, created_at)
         VALUES (?, ?, 1, ?)`,
		userID,
		directoryPath,
		timestamp(time.Now()),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateWatchDirectory, directoryPath)
		}
		return nil, fmt.Errorf("insert watch directory: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetWatchDirectory(ctx, id)
}

// GetWatchDirectory fetches a watch directory by identifier.
func (s *Store) GetWatchDirectory(ctx context.Context, id int64) (*WatchDirectory, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+watchDirColumns+` FROM watch_directories WHERE id = ?`, id)
	dir, err := scanWatchDirectory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get watch directory: %w", err)
	}
	return dir, nil
}

// ListWatchDirectories returns watch directories, optionally restricted to
// active ones, ordered by creation time.
func (s *Store) ListWatchDirectories(ctx context.Context, activeOnly bool) ([]*WatchDirectory, error) {
	query := `SELECT ` + watchDirColumns + ` FROM watch_directories`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list watch directories: %w", err)
	}
	defer rows.Close()

	var dirs []*WatchDirectory
	for rows.Next() {
		dir, err := scanWatchDirectory(rows)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, dir)
	}
	return dirs, rows.Err()
}

// SetWatchDirectoryActive toggles polling for a watch directory.
func (s *Store) SetWatchDirectoryActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE watch_directories SET is_active = ? WHERE id = ?`,
		boolToInt(active), id,
	)
	if err != nil {
		return fmt.Errorf("set watch directory active: %w", err)
	}
	return requireRow(res, "watch directory", id, "set active")
}

func scanWatchDirectory(scanner interface{ Scan(dest ...any) error }) (*WatchDirectory, error) {
	var (
		id         int64
		userID     string
		path       string
		isActive   int64
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&id, &userID, &path, &isActive, &createdRaw); err != nil {
		return nil, err
	}
	dir := &WatchDirectory{
		ID:            id,
		UserID:        userID,
		DirectoryPath: path,
		IsActive:      isActive != 0,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		dir.CreatedAt = created
	}
	return dir, nil
}
