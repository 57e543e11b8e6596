// Package pipeline drives the stage sequence for one video: invoke the stage
// agent, persist the audit entry, request the forward state transition, and
// halt on the first failure.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"cliplift/internal/agent"
	"cliplift/internal/logging"
	"cliplift/internal/services"
	"cliplift/internal/state"
	"cliplift/internal/store"
)

// stageSpec binds a stage name to the state the video moves to after the
// stage succeeds. An empty next state means the stage refines data without
// advancing the lifecycle.
type stageSpec struct {
	name string
	next state.VideoState
}

// stageSequence is the fixed stage order. Every video runs these strictly in
// order; there is no per-stage retry at this layer.
var stageSequence = []stageSpec{
	{name: "transcription", next: state.StateTranscribed},
	{name: "text_scoring", next: state.StateSegmented},
	{name: "vision_scoring"},
	{name: "micro_emphasis"},
	{name: "quality_assurance", next: state.StateScored},
	{name: "scoring_ranking", next: state.StateReady},
	{name: "rendering"},
}

type boundStage struct {
	spec  stageSpec
	agent agent.Agent
}

// Orchestrator runs the full pipeline for single videos. It holds no
// cross-video mutable state; concurrent Run calls for different videos are
// safe.
type Orchestrator struct {
	store    *store.Store
	basePath string
	stages   []boundStage
	logger   *slog.Logger
}

// New builds an orchestrator from a name-to-agent mapping. Every stage in the
// sequence must have an agent registered.
func New(st *store.Store, basePath string, agents map[string]agent.Agent, logger *slog.Logger) (*Orchestrator, error) {
	stages := make([]boundStage, 0, len(stageSequence))
	for _, spec := range stageSequence {
		bound, ok := agents[spec.name]
		if !ok {
			return nil, services.Wrap(services.ErrConfiguration, spec.name, "register",
				"no agent registered for stage", nil)
		}
		stages = append(stages, boundStage{spec: spec, agent: bound})
	}
	return &Orchestrator{
		store:    st,
		basePath: basePath,
		stages:   stages,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}, nil
}

// Run executes every stage for the video in order. The first stage failure
// appends a fail audit entry, moves the video to the error state, and halts;
// no later stage runs and no partial result is reported as success.
func (o *Orchestrator) Run(ctx context.Context, video *store.Video) error {
	ec := agent.Context{
		VideoID:          video.ID,
		UserID:           video.UserID,
		BasePath:         o.basePath,
		VideoPath:        video.FilePath,
		WatchDirectoryID: video.WatchDirectoryID,
	}

	ctx = services.WithVideoID(ctx, video.ID)
	for _, stage := range o.stages {
		var err error
		ec, err = o.runStage(ctx, stage, ec)
		if err != nil {
			return err
		}
	}

	o.logger.InfoContext(ctx, "pipeline complete", logging.Int64("video_id", video.ID))
	return nil
}

func (o *Orchestrator) runStage(ctx context.Context, stage boundStage, ec agent.Context) (agent.Context, error) {
	stageCtx := services.WithStage(ctx, stage.spec.name)
	stageCtx = services.WithRequestID(stageCtx, uuid.NewString())

	if err := ec.EnsureDirectories(); err != nil {
		return ec, o.fail(stageCtx, stage.spec.name, ec.VideoID, err)
	}

	o.logger.InfoContext(stageCtx, "stage starting", logging.String("stage", stage.spec.name))
	result := stage.agent.Execute(stageCtx, ec)
	if !result.Success {
		err := errors.Join(result.Errs...)
		if err == nil {
			err = fmt.Errorf("stage %s reported failure without errors", stage.spec.name)
		}
		return ec, o.fail(stageCtx, stage.spec.name, ec.VideoID, err)
	}

	if err := o.store.AppendLog(stageCtx, ec.VideoID, stage.spec.name, store.LogStatusOK, summarize(result.Data)); err != nil {
		return ec, o.fail(stageCtx, stage.spec.name, ec.VideoID, err)
	}
	if stage.spec.next != "" {
		if _, err := o.store.TransitionVideo(stageCtx, ec.VideoID, stage.spec.next); err != nil {
			return ec, o.fail(stageCtx, stage.spec.name, ec.VideoID, err)
		}
	}

	if len(result.Metadata) > 0 {
		ec = ec.WithMetadata(result.Metadata)
	}
	return ec, nil
}

// fail records the failure in the audit log and moves the video to the error
// state. Bookkeeping failures are logged but never mask the stage error.
func (o *Orchestrator) fail(ctx context.Context, stageName string, videoID int64, stageErr error) error {
	if err := o.store.AppendLog(ctx, videoID, stageName, store.LogStatusFail, stageErr.Error()); err != nil {
		o.logger.ErrorContext(ctx, "audit entry write failed", logging.Error(err))
	}
	if _, err := o.store.MarkVideoError(ctx, videoID, stageErr.Error()); err != nil {
		o.logger.ErrorContext(ctx, "error-state transition failed", logging.Error(err))
	}
	o.logger.ErrorContext(ctx, "stage failed",
		logging.String("stage", stageName),
		logging.Error(stageErr))
	return fmt.Errorf("stage %s: %w", stageName, stageErr)
}

// summarize renders the stage's data map as a stable one-line audit message.
func summarize(data map[string]any) string {
	if len(data) == 0 {
		return "completed"
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return "completed"
	}
	return string(encoded)
}
