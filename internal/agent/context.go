// Package agent defines the contract between the orchestrator and stage
// agents: the immutable per-video execution context, the uniform result
// envelope, and the Agent interface itself.
package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Context is the immutable per-video record handed to every stage. Stage
// outputs flow through the result envelope and the store, never back into
// the Context.
type Context struct {
	VideoID          int64
	UserID           string
	BasePath         string
	VideoPath        string
	WatchDirectoryID *int64
	Metadata         map[string]string
}

// ProcessedDir returns the per-video working directory.
func (c Context) ProcessedDir() string {
	return filepath.Join(c.BasePath, "processed", strconv.FormatInt(c.VideoID, 10))
}

// ClipsDir returns the per-video exported-clip directory.
func (c Context) ClipsDir() string {
	return filepath.Join(c.BasePath, "clips", strconv.FormatInt(c.VideoID, 10))
}

// TempDir returns the per-video scratch directory.
func (c Context) TempDir() string {
	return filepath.Join(c.BasePath, "tmp", strconv.FormatInt(c.VideoID, 10))
}

// EnsureDirectories creates the processed, clips, and temp directories if
// absent. Idempotent; safe to call before every stage.
func (c Context) EnsureDirectories() error {
	for _, dir := range []string{c.ProcessedDir(), c.ClipsDir(), c.TempDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Flatten renders the context as the flat string map agents receive per the
// call contract: identity and path fields plus accumulated metadata. Metadata
// keys never override the fixed fields.
func (c Context) Flatten() map[string]string {
	flat := make(map[string]string, len(c.Metadata)+5)
	for key, value := range c.Metadata {
		flat[key] = value
	}
	flat["video_id"] = strconv.FormatInt(c.VideoID, 10)
	flat["user_id"] = c.UserID
	flat["base_path"] = c.BasePath
	flat["video_path"] = c.VideoPath
	if c.WatchDirectoryID != nil {
		flat["watch_directory_id"] = strconv.FormatInt(*c.WatchDirectoryID, 10)
	}
	return flat
}

// WithMetadata returns a copy of the context with the given metadata entries
// merged in. The receiver is unchanged.
func (c Context) WithMetadata(entries map[string]string) Context {
	merged := make(map[string]string, len(c.Metadata)+len(entries))
	for key, value := range c.Metadata {
		merged[key] = value
	}
	for key, value := range entries {
		merged[key] = value
	}
	clone := c
	clone.Metadata = merged
	return clone
}
