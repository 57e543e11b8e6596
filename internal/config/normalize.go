package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWatcher()
	c.normalizeModels()
	c.normalizeRendering()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.BaseDataDir) == "" {
		c.Paths.BaseDataDir = defaultBaseDataDir
	}
	if c.Paths.BaseDataDir, err = expandPath(c.Paths.BaseDataDir); err != nil {
		return fmt.Errorf("paths.base_data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DatabasePath) == "" {
		c.Paths.DatabasePath = defaultDatabasePath
	}
	if c.Paths.DatabasePath, err = expandPath(c.Paths.DatabasePath); err != nil {
		return fmt.Errorf("paths.database_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeWatcher() {
	if c.Watcher.PollInterval <= 0 {
		c.Watcher.PollInterval = defaultPollInterval
	}
	if c.Watcher.MaxParallelPipelines <= 0 {
		c.Watcher.MaxParallelPipelines = defaultMaxParallel
	}
	formats := make([]string, 0, len(c.Watcher.SupportedFormats))
	seen := make(map[string]struct{}, len(c.Watcher.SupportedFormats))
	for _, ext := range c.Watcher.SupportedFormats {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		formats = append(formats, normalized)
	}
	c.Watcher.SupportedFormats = formats
}

func (c *Config) normalizeModels() {
	c.TextScoring.Model = strings.TrimSpace(c.TextScoring.Model)
	c.TextScoring.BaseURL = strings.TrimRight(strings.TrimSpace(c.TextScoring.BaseURL), "/")
	if c.TextScoring.BaseURL == "" {
		c.TextScoring.BaseURL = defaultOllamaBaseURL
	}
	c.Vision.Model = strings.TrimSpace(c.Vision.Model)
	c.Vision.BaseURL = strings.TrimRight(strings.TrimSpace(c.Vision.BaseURL), "/")
	if c.Vision.BaseURL == "" {
		c.Vision.BaseURL = defaultOllamaBaseURL
	}
	if c.Vision.FramesPerSegment <= 0 {
		c.Vision.FramesPerSegment = defaultFramesPerSeg
	}
	c.CloudQA.Model = strings.TrimSpace(c.CloudQA.Model)
	c.CloudQA.BaseURL = strings.TrimRight(strings.TrimSpace(c.CloudQA.BaseURL), "/")
	if c.CloudQA.BaseURL == "" {
		c.CloudQA.BaseURL = defaultCloudBaseURL
	}
	c.CloudQA.APIKey = strings.TrimSpace(c.CloudQA.APIKey)
	if c.CloudQA.APIKey == "" {
		if value, ok := os.LookupEnv("CLIPLIFT_CLOUD_API_KEY"); ok {
			c.CloudQA.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("DASHSCOPE_API_KEY"); ok {
			c.CloudQA.APIKey = strings.TrimSpace(value)
		}
	}
	if c.CloudQA.PreviewDuration <= 0 {
		c.CloudQA.PreviewDuration = defaultPreviewDuration
	}
	if c.CloudQA.PreviewHeight <= 0 {
		c.CloudQA.PreviewHeight = defaultPreviewHeight
	}
	c.Transcription.WhisperModel = strings.TrimSpace(c.Transcription.WhisperModel)
	if c.Transcription.WhisperModel == "" {
		c.Transcription.WhisperModel = defaultWhisperModel
	}
	c.Transcription.Device = strings.ToLower(strings.TrimSpace(c.Transcription.Device))
	if c.Transcription.Device == "" {
		c.Transcription.Device = defaultWhisperDevice
	}
}

func (c *Config) normalizeRendering() {
	c.Rendering.VideoCodec = strings.TrimSpace(c.Rendering.VideoCodec)
	if c.Rendering.VideoCodec == "" {
		c.Rendering.VideoCodec = defaultVideoCodec
	}
	c.Rendering.AudioCodec = strings.TrimSpace(c.Rendering.AudioCodec)
	if c.Rendering.AudioCodec == "" {
		c.Rendering.AudioCodec = defaultAudioCodec
	}
	c.Rendering.Preset = strings.TrimSpace(c.Rendering.Preset)
	if c.Rendering.Preset == "" {
		c.Rendering.Preset = defaultRenderPreset
	}
	if c.Rendering.CaptionFontSize <= 0 {
		c.Rendering.CaptionFontSize = defaultCaptionFontSize
	}
	if c.Rendering.CaptionOutline < 0 {
		c.Rendering.CaptionOutline = defaultCaptionOutline
	}
	if c.Rendering.CaptionShadow < 0 {
		c.Rendering.CaptionShadow = defaultCaptionShadow
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
