package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and database location configuration.
type Paths struct {
	BaseDataDir  string `toml:"base_data_dir"`
	LogDir       string `toml:"log_dir"`
	DatabasePath string `toml:"database_path"`
}

// Watcher contains configuration for watch directory polling.
type Watcher struct {
	PollInterval         int      `toml:"poll_interval"`
	SupportedFormats     []string `toml:"supported_formats"`
	MaxParallelPipelines int      `toml:"max_parallel_pipelines"`
}

// Transcription contains WhisperX transcription settings.
type Transcription struct {
	WhisperModel   string `toml:"whisper_model"`
	Device         string `toml:"device"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TextScoring contains the local text model connection settings.
type TextScoring struct {
	Model          string `toml:"model"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Vision contains the local vision model connection settings.
type Vision struct {
	Model            string `toml:"model"`
	BaseURL          string `toml:"base_url"`
	FramesPerSegment int    `toml:"frames_per_segment"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
}

// CloudQA contains the cloud vision model used for escalated review.
type CloudQA struct {
	Model           string  `toml:"model"`
	BaseURL         string  `toml:"base_url"`
	APIKey          string  `toml:"api_key"`
	PreviewDuration float64 `toml:"preview_duration"`
	PreviewHeight   int     `toml:"preview_height"`
	TimeoutSeconds  int     `toml:"timeout_seconds"`
}

// Scoring contains aggregation weights, escalation thresholds, and export policy.
type Scoring struct {
	WeightText           float64 `toml:"weight_text"`
	WeightVision         float64 `toml:"weight_vision"`
	WeightAudioEmphasis  float64 `toml:"weight_audio_emphasis"`
	WeightFacialEmphasis float64 `toml:"weight_facial_emphasis"`
	WeightCloud          float64 `toml:"weight_cloud"`
	ThresholdLow         float64 `toml:"threshold_low"`
	ThresholdHigh        float64 `toml:"threshold_high"`
	TopNAutoExport       int     `toml:"top_n_auto_export"`
}

// Rendering contains clip export settings.
type Rendering struct {
	VideoCodec      string `toml:"video_codec"`
	AudioCodec      string `toml:"audio_codec"`
	Preset          string `toml:"preset"`
	CaptionFontSize int    `toml:"caption_font_size"`
	CaptionOutline  int    `toml:"caption_outline"`
	CaptionShadow   int    `toml:"caption_shadow"`
	Vertical        bool   `toml:"vertical"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Cliplift.
//
// Configuration sections by subsystem:
//   - Paths: data directory, log directory, database location
//   - Watcher: directory polling cadence and supported file formats
//   - Transcription: WhisperX model and device selection
//   - TextScoring: local text model connection
//   - Vision: local vision model connection and frame sampling
//   - CloudQA: cloud vision model for escalated quality review
//   - Scoring: channel weights, escalation thresholds, auto-export count
//   - Rendering: clip export codecs and caption styling
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Watcher       Watcher       `toml:"watcher"`
	Transcription Transcription `toml:"transcription"`
	TextScoring   TextScoring   `toml:"text_scoring"`
	Vision        Vision        `toml:"vision"`
	CloudQA       CloudQA       `toml:"cloud_qa"`
	Scoring       Scoring       `toml:"scoring"`
	Rendering     Rendering     `toml:"rendering"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cliplift/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cliplift.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.BaseDataDir,
		c.Paths.LogDir,
		filepath.Dir(c.Paths.DatabasePath),
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for media processing.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// WhisperXBinary returns the whisperx executable name used for transcription.
func (c *Config) WhisperXBinary() string {
	return "whisperx"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
