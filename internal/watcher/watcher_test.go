package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"cliplift/internal/logging"
	"cliplift/internal/state"
	"cliplift/internal/store"
	"cliplift/internal/testsupport"
)

func TestScanRegistersSupportedFilesOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	watchDir := t.TempDir()
	if _, err := st.AddWatchDirectory(context.Background(), "user-1", watchDir); err != nil {
		t.Fatalf("add watch directory: %v", err)
	}
	for _, name := range []string{"my_clip.mp4", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(watchDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var handled []*store.Video
	w := New(st, cfg.Watcher, cfg.Paths.BaseDataDir, func(_ context.Context, v *store.Video) {
		handled = append(handled, v)
	}, logging.NewNop())

	w.Scan(context.Background())
	w.Scan(context.Background())

	videos, err := st.ListVideos(context.Background())
	if err != nil {
		t.Fatalf("list videos: %v", err)
	}
	if len(videos) != 1 {
		t.Fatalf("expected exactly one registered video, got %d", len(videos))
	}
	video := videos[0]
	if video.State != state.StateIngested {
		t.Fatalf("expected INGESTED, got %s", video.State)
	}
	if video.Title != "My Clip" {
		t.Fatalf("unexpected title %q", video.Title)
	}
	if !strings.Contains(video.FilePath, "processed") {
		t.Fatalf("file must be moved into the processed tree, got %s", video.FilePath)
	}
	if _, err := os.Stat(video.FilePath); err != nil {
		t.Fatalf("moved file missing: %v", err)
	}
	if len(handled) != 1 {
		t.Fatalf("handler must fire once, got %d", len(handled))
	}
}

func TestConcurrentScansRegisterOneVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	watchDir := t.TempDir()
	if _, err := st.AddWatchDirectory(context.Background(), "user-1", watchDir); err != nil {
		t.Fatalf("add watch directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(watchDir, "race.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := New(st, cfg.Watcher, cfg.Paths.BaseDataDir, nil, logging.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Scan(context.Background())
		}()
	}
	wg.Wait()

	videos, err := st.ListVideos(context.Background())
	if err != nil {
		t.Fatalf("list videos: %v", err)
	}
	if len(videos) != 1 {
		t.Fatalf("in-flight set must prevent duplicate registration, got %d videos", len(videos))
	}
}

func TestTitleFromFilename(t *testing.T) {
	cases := map[string]string{
		"/w/my_summer-trip.final.mp4": "My Summer Trip Final",
		"/w/REVEAL.mov":               "Reveal",
		"/w/.mp4":                     "Untitled",
	}
	for input, want := range cases {
		if got := TitleFromFilename(input); got != want {
			t.Fatalf("TitleFromFilename(%q) = %q, want %q", input, got, want)
		}
	}
}
