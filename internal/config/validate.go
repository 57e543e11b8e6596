package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const weightSumTolerance = 1e-9

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWatcher(); err != nil {
		return err
	}
	if err := c.validateModels(); err != nil {
		return err
	}
	if err := c.validateScoring(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWatcher() error {
	if len(c.Watcher.SupportedFormats) == 0 {
		return errors.New("watcher.supported_formats must include at least one extension")
	}
	return ensurePositiveMap(map[string]int{
		"watcher.poll_interval":          c.Watcher.PollInterval,
		"watcher.max_parallel_pipelines": c.Watcher.MaxParallelPipelines,
	})
}

func (c *Config) validateModels() error {
	if strings.TrimSpace(c.TextScoring.Model) == "" {
		return errors.New("text_scoring.model must be set")
	}
	if strings.TrimSpace(c.Vision.Model) == "" {
		return errors.New("vision.model must be set")
	}
	if strings.TrimSpace(c.CloudQA.Model) == "" {
		return errors.New("cloud_qa.model must be set")
	}
	return ensurePositiveMap(map[string]int{
		"transcription.timeout_seconds": c.Transcription.TimeoutSeconds,
		"text_scoring.timeout_seconds":  c.TextScoring.TimeoutSeconds,
		"vision.timeout_seconds":        c.Vision.TimeoutSeconds,
		"cloud_qa.timeout_seconds":      c.CloudQA.TimeoutSeconds,
		"vision.frames_per_segment":     c.Vision.FramesPerSegment,
	})
}

func (c *Config) validateScoring() error {
	s := c.Scoring
	for key, weight := range map[string]float64{
		"scoring.weight_text":            s.WeightText,
		"scoring.weight_vision":          s.WeightVision,
		"scoring.weight_audio_emphasis":  s.WeightAudioEmphasis,
		"scoring.weight_facial_emphasis": s.WeightFacialEmphasis,
		"scoring.weight_cloud":           s.WeightCloud,
	} {
		if weight < 0 || weight > 1 {
			return fmt.Errorf("%s must be between 0 and 1", key)
		}
	}
	sum := s.WeightText + s.WeightVision + s.WeightAudioEmphasis + s.WeightFacialEmphasis + s.WeightCloud
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.6f", sum)
	}
	if s.ThresholdLow < 0 || s.ThresholdLow > 1 {
		return errors.New("scoring.threshold_low must be between 0 and 1")
	}
	if s.ThresholdHigh < 0 || s.ThresholdHigh > 1 {
		return errors.New("scoring.threshold_high must be between 0 and 1")
	}
	if s.ThresholdLow >= s.ThresholdHigh {
		return errors.New("scoring.threshold_low must be less than scoring.threshold_high")
	}
	if s.TopNAutoExport < 1 {
		return errors.New("scoring.top_n_auto_export must be >= 1")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
