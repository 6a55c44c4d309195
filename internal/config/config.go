// Package config loads and validates the application's YAML configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Audio      AudioConfig      `yaml:"audio"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	LogLevel   string           `yaml:"log_level"`
}

// TranscribeConfig selects the recognition backend and its model files.
type TranscribeConfig struct {
	Backend           string `yaml:"backend"` // "whisper" or "parakeet"
	Language          string `yaml:"language"`
	WhisperModelPath  string `yaml:"whisper_model_path"`
	ParakeetModelPath string `yaml:"parakeet_model_path"`
}

// AudioConfig holds audio capture settings.
type AudioConfig struct {
	SampleRate    uint32 `yaml:"sample_rate"`
	Channels      uint32 `yaml:"channels"`
	Device        string `yaml:"device"`         // capture device name, empty = system default
	SystemCapture bool   `yaml:"system_capture"` // also capture system output (loopback)
}

// PipelineConfig holds chunking and queue settings.
type PipelineConfig struct {
	ChunkDurationSecs float64 `yaml:"chunk_duration_secs"`
	OverlapSecs       float64 `yaml:"overlap_secs"`
	SilenceThreshold  float64 `yaml:"silence_threshold"`
	QueueCapacity     int     `yaml:"queue_capacity"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "meetscribe")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultModelsDir returns the default directory for downloaded models.
func DefaultModelsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "meetscribe", "models")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	modelsDir := DefaultModelsDir()

	return &Config{
		Transcribe: TranscribeConfig{
			Backend:           "whisper",
			Language:          "auto",
			WhisperModelPath:  filepath.Join(modelsDir, "ggml-base.en.bin"),
			ParakeetModelPath: filepath.Join(modelsDir, "parakeet-ctc.onnx"),
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
		},
		Pipeline: PipelineConfig{
			ChunkDurationSecs: 5.0,
			OverlapSecs:       0.5,
			SilenceThreshold:  0.01,
			QueueCapacity:     32,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled with
// defaults. Tilde (~) in model paths is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Transcribe.WhisperModelPath = expandTilde(cfg.Transcribe.WhisperModelPath)
	cfg.Transcribe.ParakeetModelPath = expandTilde(cfg.Transcribe.ParakeetModelPath)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.Transcribe.Backend {
	case "whisper":
		if c.Transcribe.WhisperModelPath == "" {
			return fmt.Errorf("transcribe.whisper_model_path must not be empty for whisper backend")
		}
	case "parakeet":
		if c.Transcribe.ParakeetModelPath == "" {
			return fmt.Errorf("transcribe.parakeet_model_path must not be empty for parakeet backend")
		}
	default:
		return fmt.Errorf("transcribe.backend must be \"whisper\" or \"parakeet\", got %q", c.Transcribe.Backend)
	}

	if c.Audio.SampleRate == 0 {
		return fmt.Errorf("audio.sample_rate must be > 0")
	}

	if c.Audio.Channels == 0 {
		return fmt.Errorf("audio.channels must be > 0")
	}

	if c.Pipeline.ChunkDurationSecs <= 0 {
		return fmt.Errorf("pipeline.chunk_duration_secs must be > 0")
	}

	if c.Pipeline.OverlapSecs < 0 || c.Pipeline.OverlapSecs >= c.Pipeline.ChunkDurationSecs {
		return fmt.Errorf("pipeline.overlap_secs must be in [0, chunk_duration_secs), got %v", c.Pipeline.OverlapSecs)
	}

	if c.Pipeline.SilenceThreshold < 0 || c.Pipeline.SilenceThreshold >= 1 {
		return fmt.Errorf("pipeline.silence_threshold must be in [0, 1), got %v", c.Pipeline.SilenceThreshold)
	}

	if c.Pipeline.QueueCapacity <= 0 {
		return fmt.Errorf("pipeline.queue_capacity must be > 0")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// WriteDefault writes a commented default config to the default path if no
// config file exists yet. It returns the written path, or "" when a file
// already exists.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(DefaultConfigDir(), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	header := "# meetscribe configuration\n# See README.md for all options.\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}

	return path, nil
}

// ParseLogLevel maps a config log level string to a slog.Level.
// Unknown values fall back to info.
func ParseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
