// Package watcher polls the registered watch directories for new source
// files and registers them for processing.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"cliplift/internal/config"
	"cliplift/internal/logging"
	"cliplift/internal/store"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Handler receives each newly registered video. Implementations own any
// queuing or concurrency limits; the watcher calls it once per registration.
type Handler func(ctx context.Context, video *store.Video)

// Watcher polls active watch directories on a fixed interval. An in-flight
// set keyed by file path is the sole guard against registering the same file
// twice when polls overlap a slow registration.
type Watcher struct {
	store    *store.Store
	cfg      config.Watcher
	basePath string
	handler  Handler
	logger   *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New creates a watcher.
func New(st *store.Store, cfg config.Watcher, basePath string, handler Handler, logger *slog.Logger) *Watcher {
	return &Watcher{
		store:    st,
		cfg:      cfg,
		basePath: basePath,
		handler:  handler,
		logger:   logging.NewComponentLogger(logger, "watcher"),
		inFlight: make(map[string]struct{}),
	}
}

// Run polls until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	interval := time.Duration(w.cfg.PollInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.Scan(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Scan(ctx)
		}
	}
}

// Scan performs one pass over every active watch directory.
func (w *Watcher) Scan(ctx context.Context) {
	dirs, err := w.store.ListWatchDirectories(ctx, true)
	if err != nil {
		w.logger.ErrorContext(ctx, "list watch directories failed", logging.Error(err))
		return
	}
	for _, dir := range dirs {
		w.scanDirectory(ctx, dir)
	}
}

func (w *Watcher) scanDirectory(ctx context.Context, dir *store.WatchDirectory) {
	entries, err := os.ReadDir(dir.DirectoryPath)
	if err != nil {
		w.logger.WarnContext(ctx, "watch directory unreadable",
			logging.String("path", dir.DirectoryPath),
			logging.Error(err))
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !w.supportedFormat(entry.Name()) {
			continue
		}
		path := filepath.Join(dir.DirectoryPath, entry.Name())
		if !w.claim(path) {
			continue
		}
		w.register(ctx, dir, path)
		w.release(path)
	}
}

func (w *Watcher) supportedFormat(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, format := range w.cfg.SupportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// claim adds the path to the in-flight set, returning false if another poll
// already holds it.
func (w *Watcher) claim(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, held := w.inFlight[path]; held {
		return false
	}
	w.inFlight[path] = struct{}{}
	return true
}

func (w *Watcher) release(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inFlight, path)
}

// register creates the video record, moves the file into the per-video
// processed directory, and hands the video to the handler.
func (w *Watcher) register(ctx context.Context, dir *store.WatchDirectory, path string) {
	// A slower overlapping poll may have listed this file before another poll
	// moved it. The claim serializes us behind that move, so a stat here is
	// authoritative.
	if _, err := os.Stat(path); err != nil {
		return
	}
	if existing, err := w.store.FindVideoByPath(ctx, path); err != nil {
		w.logger.ErrorContext(ctx, "duplicate lookup failed", logging.Error(err))
		return
	} else if existing != nil {
		return
	}

	video, err := w.store.NewVideo(ctx, path, TitleFromFilename(path), dir.UserID, &dir.ID)
	if err != nil {
		w.logger.ErrorContext(ctx, "video registration failed",
			logging.String("path", path),
			logging.Error(err))
		return
	}

	destDir := filepath.Join(w.basePath, "processed", strconv.FormatInt(video.ID, 10))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		w.logger.ErrorContext(ctx, "processed directory creation failed", logging.Error(err))
		return
	}
	dest := filepath.Join(destDir, filepath.Base(path))
	if err := moveFile(path, dest); err != nil {
		w.logger.ErrorContext(ctx, "file move failed",
			logging.String("path", path),
			logging.Error(err))
		return
	}
	if err := w.store.SetVideoFilePath(ctx, video.ID, dest); err != nil {
		w.logger.ErrorContext(ctx, "file path update failed", logging.Error(err))
		return
	}
	video.FilePath = dest

	w.logger.InfoContext(ctx, "video registered",
		logging.Int64("video_id", video.ID),
		logging.String("path", dest))
	if w.handler != nil {
		w.handler(ctx, video)
	}
}

func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err != nil {
		return fmt.Errorf("move %s: %w", src, err)
	}
	return nil
}

var titleCaser = cases.Title(language.English)

// TitleFromFilename derives a display title from a file name: extension
// stripped, separators spaced, title-cased.
func TitleFromFilename(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return "Untitled"
	}
	return titleCaser.String(base)
}
