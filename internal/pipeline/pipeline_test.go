package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"cliplift/internal/agent"
	"cliplift/internal/logging"
	"cliplift/internal/pipeline"
	"cliplift/internal/services"
	"cliplift/internal/state"
	"cliplift/internal/store"
	"cliplift/internal/testsupport"
)

type scriptedAgent struct {
	name     string
	fail     bool
	metadata map[string]string
	order    *[]string
	seen     map[string]string
}

func (a *scriptedAgent) Name() string { return a.name }

func (a *scriptedAgent) Execute(_ context.Context, ec agent.Context) agent.Result {
	*a.order = append(*a.order, a.name)
	if a.seen != nil {
		for key := range a.seen {
			a.seen[key] = ec.Metadata[key]
		}
	}
	if a.fail {
		return agent.Fail(services.Wrap(services.ErrExternalCall, a.name, "execute", "scripted failure", nil))
	}
	result := agent.OK(map[string]any{"stage": a.name})
	result.Metadata = a.metadata
	return result
}

var stageNames = []string{
	"transcription", "text_scoring", "vision_scoring", "micro_emphasis",
	"quality_assurance", "scoring_ranking", "rendering",
}

func scriptedAgents(order *[]string, overrides map[string]*scriptedAgent) map[string]agent.Agent {
	agents := make(map[string]agent.Agent, len(stageNames))
	for _, name := range stageNames {
		if override, ok := overrides[name]; ok {
			override.name = name
			override.order = order
			agents[name] = override
			continue
		}
		agents[name] = &scriptedAgent{name: name, order: order}
	}
	return agents
}

func newVideo(t *testing.T, st *store.Store) *store.Video {
	t.Helper()
	video, err := st.NewVideo(context.Background(), "/videos/run.mp4", "Run", "user-1", nil)
	if err != nil {
		t.Fatalf("new video: %v", err)
	}
	return video
}

func TestRunExecutesAllStagesInOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	video := newVideo(t, st)

	var order []string
	orch, err := pipeline.New(st, cfg.Paths.BaseDataDir, scriptedAgents(&order, nil), logging.NewNop())
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	if err := orch.Run(context.Background(), video); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(order) != len(stageNames) {
		t.Fatalf("expected %d stages, got %v", len(stageNames), order)
	}
	for i, name := range stageNames {
		if order[i] != name {
			t.Fatalf("stage %d out of order: %v", i, order)
		}
	}

	updated, err := st.GetVideo(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if updated.State != state.StateReady {
		t.Fatalf("expected READY after full run, got %s", updated.State)
	}

	entries, err := st.LogForVideo(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("log for video: %v", err)
	}
	if len(entries) != len(stageNames) {
		t.Fatalf("expected %d audit entries, got %d", len(stageNames), len(entries))
	}
	for i, entry := range entries {
		if entry.Step != stageNames[i] || entry.Status != store.LogStatusOK {
			t.Fatalf("unexpected audit entry %d: %+v", i, entry)
		}
	}
}

func TestRunHaltsOnFirstFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	video := newVideo(t, st)

	var order []string
	agents := scriptedAgents(&order, map[string]*scriptedAgent{
		"vision_scoring": {fail: true},
	})
	orch, err := pipeline.New(st, cfg.Paths.BaseDataDir, agents, logging.NewNop())
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}

	runErr := orch.Run(context.Background(), video)
	if runErr == nil {
		t.Fatal("expected run to fail")
	}
	if !errors.Is(runErr, services.ErrExternalCall) {
		t.Fatalf("stage error must propagate: %v", runErr)
	}
	if len(order) != 3 {
		t.Fatalf("no stage may run after a failure, got %v", order)
	}

	updated, err := st.GetVideo(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if updated.State != state.StateError {
		t.Fatalf("expected ERROR state, got %s", updated.State)
	}
	if updated.ErrorMessage == "" {
		t.Fatal("error message must be recorded")
	}

	entries, err := st.LogForVideo(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("log for video: %v", err)
	}
	last := entries[len(entries)-1]
	if last.Step != "vision_scoring" || last.Status != store.LogStatusFail {
		t.Fatalf("failure must be the last audit entry: %+v", last)
	}
}

func TestRunAccumulatesStageMetadata(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	video := newVideo(t, st)

	seen := map[string]string{"video_duration": ""}
	var order []string
	agents := scriptedAgents(&order, map[string]*scriptedAgent{
		"transcription": {metadata: map[string]string{"video_duration": "42.5"}},
		"text_scoring":  {seen: seen},
	})
	orch, err := pipeline.New(st, cfg.Paths.BaseDataDir, agents, logging.NewNop())
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	if err := orch.Run(context.Background(), video); err != nil {
		t.Fatalf("run: %v", err)
	}
	if seen["video_duration"] != "42.5" {
		t.Fatalf("later stages must see earlier metadata, got %q", seen["video_duration"])
	}
}

func TestNewRejectsMissingAgent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	var order []string
	agents := scriptedAgents(&order, nil)
	delete(agents, "rendering")

	_, err := pipeline.New(st, cfg.Paths.BaseDataDir, agents, logging.NewNop())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
