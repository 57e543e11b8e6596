// Package daemon runs the long-lived process: single-instance locking,
// startup resume of pending videos, the watch-directory poller, and the
// bounded pipeline worker pool.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"cliplift/internal/config"
	"cliplift/internal/logging"
	"cliplift/internal/services"
	"cliplift/internal/state"
	"cliplift/internal/store"
	"cliplift/internal/watcher"
)

// pipelineRunner is the slice of the orchestrator the daemon drives.
type pipelineRunner interface {
	Run(ctx context.Context, video *store.Video) error
}

// Daemon owns the watcher loop and the pipeline worker pool.
type Daemon struct {
	cfg      *config.Config
	store    *store.Store
	pipeline pipelineRunner
	logger   *slog.Logger

	lock *flock.Flock
	sem  chan struct{}
	wg   sync.WaitGroup
}

// New creates a daemon. MaxParallelPipelines bounds how many videos process
// concurrently; local model stages contend for one accelerator, so the
// default is one.
func New(cfg *config.Config, st *store.Store, pipeline pipelineRunner, logger *slog.Logger) *Daemon {
	parallel := cfg.Watcher.MaxParallelPipelines
	if parallel <= 0 {
		parallel = 1
	}
	return &Daemon{
		cfg:      cfg,
		store:    st,
		pipeline: pipeline,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lock:     flock.New(filepath.Join(cfg.Paths.BaseDataDir, "cliplift.lock")),
		sem:      make(chan struct{}, parallel),
	}
}

// Run blocks until the context is cancelled, then drains in-flight pipelines
// before returning.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.acquireLock(); err != nil {
		return err
	}
	defer d.releaseLock()

	d.resume(ctx)

	w := watcher.New(d.store, d.cfg.Watcher, d.cfg.Paths.BaseDataDir, d.enqueue, d.logger)
	err := w.Run(ctx)

	d.logger.Info("draining in-flight pipelines")
	d.wg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (d *Daemon) acquireLock() error {
	locked, err := d.lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "", "lock", "acquire instance lock", err)
	}
	if !locked {
		return services.Wrap(services.ErrConfiguration, "", "lock",
			"another instance is already running", nil)
	}
	return nil
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Error("instance lock release failed", logging.Error(err))
	}
}

// resume re-queues videos that were registered but never processed, so a
// restart picks up exactly where the previous run stopped.
func (d *Daemon) resume(ctx context.Context) {
	videos, err := d.store.ListVideos(ctx, state.StateIngested)
	if err != nil {
		d.logger.ErrorContext(ctx, "resume scan failed", logging.Error(err))
		return
	}
	for _, video := range videos {
		d.logger.InfoContext(ctx, "resuming pending video", logging.Int64("video_id", video.ID))
		d.enqueue(ctx, video)
	}
}

// enqueue starts the pipeline for one video, bounded by the worker pool.
func (d *Daemon) enqueue(ctx context.Context, video *store.Video) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		select {
		case d.sem <- struct{}{}:
			defer func() { <-d.sem }()
		case <-ctx.Done():
			return
		}
		if err := d.pipeline.Run(ctx, video); err != nil {
			d.logger.ErrorContext(ctx, "pipeline run failed",
				logging.Int64("video_id", video.ID),
				logging.Error(err))
		}
	}()
}
