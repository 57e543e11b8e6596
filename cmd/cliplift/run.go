package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cliplift/internal/agent"
	"cliplift/internal/agents"
	"cliplift/internal/daemon"
	"cliplift/internal/media/ffmpeg"
	"cliplift/internal/pipeline"
	"cliplift/internal/preflight"
	"cliplift/internal/protocol"
	"cliplift/internal/scoring"
	"cliplift/internal/services/ollama"
	"cliplift/internal/services/whisperx"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the processing daemon",
		Long:  "Watches the registered directories, processes new videos through the full pipeline, and exports flagged clips. Stops cleanly on SIGINT or SIGTERM.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if err := preflight.Check(app.cfg); err != nil {
				return err
			}

			orch, err := pipeline.New(app.store, app.cfg.Paths.BaseDataDir, buildAgents(app), app.logger)
			if err != nil {
				return err
			}
			d := daemon.New(app.cfg, app.store, orch, app.logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app.logger.Info("daemon starting")
			return d.Run(ctx)
		},
	}
}

func buildAgents(app *app) map[string]agent.Agent {
	cfg := app.cfg
	provider := protocol.NewProvider()
	media := ffmpeg.NewService(cfg.FFmpegBinary())
	weights := scoring.WeightsFromConfig(cfg.Scoring)
	thresholds := scoring.ThresholdsFromConfig(cfg.Scoring)

	transcription := whisperx.NewService(whisperx.Config{
		WhisperModel:   cfg.Transcription.WhisperModel,
		Device:         cfg.Transcription.Device,
		TimeoutSeconds: cfg.Transcription.TimeoutSeconds,
	}, cfg.FFmpegBinary(), cfg.WhisperXBinary())

	textModel := ollama.NewClient(ollama.Config{
		BaseURL:        cfg.TextScoring.BaseURL,
		Model:          cfg.TextScoring.Model,
		TimeoutSeconds: cfg.TextScoring.TimeoutSeconds,
	})
	visionModel := ollama.NewClient(ollama.Config{
		BaseURL:        cfg.Vision.BaseURL,
		Model:          cfg.Vision.Model,
		TimeoutSeconds: cfg.Vision.TimeoutSeconds,
	})
	cloudModel := ollama.NewClient(ollama.Config{
		BaseURL:        cfg.CloudQA.BaseURL,
		Model:          cfg.CloudQA.Model,
		APIKey:         cfg.CloudQA.APIKey,
		TimeoutSeconds: cfg.CloudQA.TimeoutSeconds,
	})

	return map[string]agent.Agent{
		"transcription":     agents.NewTranscription(app.store, transcription, cfg.FFprobeBinary(), app.logger),
		"text_scoring":      agents.NewTextScoring(app.store, provider, textModel, app.logger),
		"vision_scoring":    agents.NewVisionScoring(app.store, provider, visionModel, media, cfg.Vision.FramesPerSegment, app.logger),
		"micro_emphasis":    agents.NewMicroEmphasis(app.store, media, weights, thresholds, app.logger),
		"quality_assurance": agents.NewQualityAssurance(app.store, provider, cloudModel, media, cfg.CloudQA, weights, thresholds, app.logger),
		"scoring_ranking":   agents.NewScoringRanking(app.store, weights, cfg.Scoring.TopNAutoExport, app.logger),
		"rendering":         agents.NewRendering(app.store, media, cfg.Rendering, app.logger),
	}
}
