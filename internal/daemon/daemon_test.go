package daemon

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cliplift/internal/logging"
	"cliplift/internal/services"
	"cliplift/internal/store"
	"cliplift/internal/testsupport"
)

type countingRunner struct {
	mu      sync.Mutex
	active  int
	peak    int
	total   atomic.Int64
	release chan struct{}
}

func (r *countingRunner) Run(_ context.Context, _ *store.Video) error {
	r.mu.Lock()
	r.active++
	if r.active > r.peak {
		r.peak = r.active
	}
	r.mu.Unlock()

	if r.release != nil {
		<-r.release
	}

	r.mu.Lock()
	r.active--
	r.mu.Unlock()
	r.total.Add(1)
	return nil
}

func TestSecondInstanceIsRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	st := testsupport.MustOpenStore(t, cfg)

	first := New(cfg, st, &countingRunner{}, logging.NewNop())
	if err := first.acquireLock(); err != nil {
		t.Fatalf("first lock: %v", err)
	}
	defer first.releaseLock()

	second := New(cfg, st, &countingRunner{}, logging.NewNop())
	err := second.acquireLock()
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for second instance, got %v", err)
	}
}

func TestEnqueueBoundsParallelism(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Watcher.MaxParallelPipelines = 2
	st := testsupport.MustOpenStore(t, cfg)

	runner := &countingRunner{release: make(chan struct{})}
	d := New(cfg, st, runner, logging.NewNop())

	for i := 0; i < 5; i++ {
		d.enqueue(context.Background(), &store.Video{ID: int64(i + 1)})
	}

	deadline := time.After(2 * time.Second)
	for {
		runner.mu.Lock()
		active := runner.active
		runner.mu.Unlock()
		if active == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("workers never reached the pool bound")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	close(runner.release)
	d.wg.Wait()

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.peak > 2 {
		t.Fatalf("pool bound exceeded: peak %d", runner.peak)
	}
	if runner.total.Load() != 5 {
		t.Fatalf("expected 5 runs, got %d", runner.total.Load())
	}
}

func TestResumePicksUpIngestedVideos(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	for _, path := range []string{"/v/a.mp4", "/v/b.mp4"} {
		if _, err := st.NewVideo(context.Background(), path, "T", "user-1", nil); err != nil {
			t.Fatalf("new video: %v", err)
		}
	}

	runner := &countingRunner{}
	d := New(cfg, st, runner, logging.NewNop())
	d.resume(context.Background())
	d.wg.Wait()

	if runner.total.Load() != 2 {
		t.Fatalf("expected both pending videos resumed, got %d", runner.total.Load())
	}
}
