package config

const (
	defaultBaseDataDir     = "~/.local/share/cliplift/data"
	defaultLogDir          = "~/.local/share/cliplift/logs"
	defaultDatabasePath    = "~/.local/share/cliplift/cliplift.db"
	defaultPollInterval    = 5
	defaultMaxParallel     = 1
	defaultWhisperModel    = "large-v2"
	defaultWhisperDevice   = "auto"
	defaultTextModel       = "llama3.1:8b"
	defaultVisionModel     = "qwen2.5vl:7b"
	defaultCloudModel      = "qwen3-vl-plus"
	defaultOllamaBaseURL   = "http://localhost:11434"
	defaultCloudBaseURL    = "https://dashscope-intl.aliyuncs.com/api/v1"
	defaultFramesPerSeg    = 3
	defaultPreviewDuration = 2.0
	defaultPreviewHeight   = 320
	defaultStageTimeout    = 300
	defaultWeightText      = 0.30
	defaultWeightVision    = 0.30
	defaultWeightAudio     = 0.15
	defaultWeightFacial    = 0.15
	defaultWeightCloud     = 0.10
	defaultThresholdLow    = 0.40
	defaultThresholdHigh   = 0.65
	defaultTopNAutoExport  = 3
	defaultVideoCodec      = "libx264"
	defaultAudioCodec      = "aac"
	defaultRenderPreset    = "medium"
	defaultCaptionFontSize = 24
	defaultCaptionOutline  = 2
	defaultCaptionShadow   = 1
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			BaseDataDir:  defaultBaseDataDir,
			LogDir:       defaultLogDir,
			DatabasePath: defaultDatabasePath,
		},
		Watcher: Watcher{
			PollInterval:         defaultPollInterval,
			SupportedFormats:     []string{".mp4", ".mov", ".mkv", ".webm"},
			MaxParallelPipelines: defaultMaxParallel,
		},
		Transcription: Transcription{
			WhisperModel:   defaultWhisperModel,
			Device:         defaultWhisperDevice,
			TimeoutSeconds: 1800,
		},
		TextScoring: TextScoring{
			Model:          defaultTextModel,
			BaseURL:        defaultOllamaBaseURL,
			TimeoutSeconds: defaultStageTimeout,
		},
		Vision: Vision{
			Model:            defaultVisionModel,
			BaseURL:          defaultOllamaBaseURL,
			FramesPerSegment: defaultFramesPerSeg,
			TimeoutSeconds:   defaultStageTimeout,
		},
		CloudQA: CloudQA{
			Model:           defaultCloudModel,
			BaseURL:         defaultCloudBaseURL,
			PreviewDuration: defaultPreviewDuration,
			PreviewHeight:   defaultPreviewHeight,
			TimeoutSeconds:  defaultStageTimeout,
		},
		Scoring: Scoring{
			WeightText:           defaultWeightText,
			WeightVision:         defaultWeightVision,
			WeightAudioEmphasis:  defaultWeightAudio,
			WeightFacialEmphasis: defaultWeightFacial,
			WeightCloud:          defaultWeightCloud,
			ThresholdLow:         defaultThresholdLow,
			ThresholdHigh:        defaultThresholdHigh,
			TopNAutoExport:       defaultTopNAutoExport,
		},
		Rendering: Rendering{
			VideoCodec:      defaultVideoCodec,
			AudioCodec:      defaultAudioCodec,
			Preset:          defaultRenderPreset,
			CaptionFontSize: defaultCaptionFontSize,
			CaptionOutline:  defaultCaptionOutline,
			CaptionShadow:   defaultCaptionShadow,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
