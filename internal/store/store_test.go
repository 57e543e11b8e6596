package store_test

import (
	"context"
	"errors"
	"testing"

	"cliplift/internal/services"
	"cliplift/internal/state"
	"cliplift/internal/store"
	"cliplift/internal/testsupport"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	return testsupport.MustOpenStore(t, testsupport.NewConfig(t))
}

func newVideo(t *testing.T, st *store.Store) *store.Video {
	t.Helper()
	video, err := st.NewVideo(context.Background(), "/videos/input.mp4", "Input", "user-1", nil)
	if err != nil {
		t.Fatalf("new video: %v", err)
	}
	return video
}

func TestNewVideoStartsIngested(t *testing.T) {
	st := newStore(t)
	video := newVideo(t, st)

	if video.State != state.StateIngested {
		t.Fatalf("expected ingested, got %s", video.State)
	}
	if video.FilePath != "/videos/input.mp4" {
		t.Fatalf("unexpected file path %q", video.FilePath)
	}
	if video.CreatedAt.IsZero() || video.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be recorded")
	}
}

func TestTransitionVideoFollowsTable(t *testing.T) {
	st := newStore(t)
	video := newVideo(t, st)
	ctx := context.Background()

	updated, err := st.TransitionVideo(ctx, video.ID, state.StateTranscribed)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.State != state.StateTranscribed {
		t.Fatalf("expected transcribed, got %s", updated.State)
	}

	if _, err := st.TransitionVideo(ctx, video.ID, state.StateReady); err == nil {
		t.Fatal("expected skip transition to be rejected")
	} else {
		var invalid *state.InvalidTransitionError
		if !errors.As(err, &invalid) {
			t.Fatalf("expected InvalidTransitionError, got %v", err)
		}
	}

	current, err := st.GetVideo(ctx, video.ID)
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if current.State != state.StateTranscribed {
		t.Fatalf("rejected transition must not change state, got %s", current.State)
	}
}

func TestMarkVideoErrorRecordsMessage(t *testing.T) {
	st := newStore(t)
	video := newVideo(t, st)

	updated, err := st.MarkVideoError(context.Background(), video.ID, "transcription timed out")
	if err != nil {
		t.Fatalf("mark error: %v", err)
	}
	if updated.State != state.StateError {
		t.Fatalf("expected error state, got %s", updated.State)
	}
	if updated.ErrorMessage != "transcription timed out" {
		t.Fatalf("unexpected error message %q", updated.ErrorMessage)
	}

	if _, err := st.MarkVideoError(context.Background(), video.ID, "again"); err == nil {
		t.Fatal("expected error state to be terminal")
	}
}

func TestInsertTranscriptRejectsInvertedTimes(t *testing.T) {
	st := newStore(t)
	video := newVideo(t, st)

	err := st.InsertTranscript(context.Background(), video.ID, []store.TranscriptLine{
		{StartTime: 5, EndTime: 2, Text: "backwards"},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	lines, err := st.TranscriptForVideo(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("transcript for video: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected no lines after rejected insert, got %d", len(lines))
	}
}

func TestSegmentScoresLifecycle(t *testing.T) {
	st := newStore(t)
	video := newVideo(t, st)
	ctx := context.Background()

	segments, err := st.InsertSegments(ctx, video.ID, []store.Segment{
		{StartTime: 0, EndTime: 5, Source: "transcript"},
		{StartTime: 10, EndTime: 18, Source: "transcript"},
	})
	if err != nil {
		t.Fatalf("insert segments: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}

	if err := st.SetTextScore(ctx, segments[0].ID, 0.8); err != nil {
		t.Fatalf("set text score: %v", err)
	}
	if err := st.SetVisionScore(ctx, segments[0].ID, 0.6); err != nil {
		t.Fatalf("set vision score: %v", err)
	}
	if err := st.SetCombinedScore(ctx, segments[0].ID, 0.7); err != nil {
		t.Fatalf("set combined score: %v", err)
	}

	score, err := st.GetSegmentScore(ctx, segments[0].ID)
	if err != nil {
		t.Fatalf("get segment score: %v", err)
	}
	if score.TextScore == nil || *score.TextScore != 0.8 {
		t.Fatalf("unexpected text score %v", score.TextScore)
	}
	if score.CloudScore != nil {
		t.Fatal("cloud score should remain unset")
	}

	other, err := st.GetSegmentScore(ctx, segments[1].ID)
	if err != nil {
		t.Fatalf("get other score: %v", err)
	}
	if other.TextScore != nil {
		t.Fatal("scores must not leak across segments")
	}
}

func TestScoreMissingSegmentFailsIntegrity(t *testing.T) {
	st := newStore(t)
	newVideo(t, st)

	err := st.SetTextScore(context.Background(), 9999, 0.5)
	if err == nil {
		t.Fatal("expected integrity error")
	}
	var integrity *store.IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
	if !errors.Is(err, services.ErrStoreIntegrity) {
		t.Fatalf("expected store integrity sentinel, got %v", err)
	}
}

func TestEscalationIsMonotonic(t *testing.T) {
	st := newStore(t)
	video := newVideo(t, st)
	ctx := context.Background()

	segments, err := st.InsertSegments(ctx, video.ID, []store.Segment{
		{StartTime: 0, EndTime: 4, Source: "transcript"},
	})
	if err != nil {
		t.Fatalf("insert segments: %v", err)
	}
	segID := segments[0].ID

	if err := st.MarkEscalated(ctx, segID); err != nil {
		t.Fatalf("mark escalated: %v", err)
	}
	// Later stage writes must not clear the flag.
	if err := st.SetCloudScore(ctx, segID, 0.9); err != nil {
		t.Fatalf("set cloud score: %v", err)
	}
	if err := st.MarkEscalated(ctx, segID); err != nil {
		t.Fatalf("mark escalated again: %v", err)
	}

	score, err := st.GetSegmentScore(ctx, segID)
	if err != nil {
		t.Fatalf("get segment score: %v", err)
	}
	if !score.EscalatedToCloud {
		t.Fatal("escalation flag must stay set")
	}
}

func TestAppendLogBuildsAuditTrail(t *testing.T) {
	st := newStore(t)
	video := newVideo(t, st)
	ctx := context.Background()

	if err := st.AppendLog(ctx, video.ID, "transcription", store.LogStatusOK, ""); err != nil {
		t.Fatalf("append ok: %v", err)
	}
	if err := st.AppendLog(ctx, video.ID, "text_scoring", store.LogStatusFail, "model unreachable"); err != nil {
		t.Fatalf("append fail: %v", err)
	}

	entries, err := st.LogForVideo(ctx, video.ID)
	if err != nil {
		t.Fatalf("log for video: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Step != "transcription" || entries[0].Status != store.LogStatusOK {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Message != "model unreachable" {
		t.Fatalf("unexpected failure message %q", entries[1].Message)
	}
}

func TestAddWatchDirectoryRejectsDuplicates(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	dir, err := st.AddWatchDirectory(ctx, "user-1", "/watch/in")
	if err != nil {
		t.Fatalf("add watch directory: %v", err)
	}
	if !dir.IsActive {
		t.Fatal("new watch directory should be active")
	}

	if _, err := st.AddWatchDirectory(ctx, "user-2", "/watch/in"); !errors.Is(err, store.ErrDuplicateWatchDirectory) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	if err := st.SetWatchDirectoryActive(ctx, dir.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	active, err := st.ListWatchDirectories(ctx, true)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active directories, got %d", len(active))
	}
}
