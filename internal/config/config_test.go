package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Transcribe.Backend != "whisper" {
		t.Errorf("Transcribe.Backend = %q, want %q", cfg.Transcribe.Backend, "whisper")
	}
	if cfg.Transcribe.WhisperModelPath == "" {
		t.Error("Transcribe.WhisperModelPath should not be empty")
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("Audio.SampleRate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 1 {
		t.Errorf("Audio.Channels = %d, want 1", cfg.Audio.Channels)
	}
	if cfg.Pipeline.ChunkDurationSecs != 5.0 {
		t.Errorf("Pipeline.ChunkDurationSecs = %v, want 5.0", cfg.Pipeline.ChunkDurationSecs)
	}
	if cfg.Pipeline.OverlapSecs != 0.5 {
		t.Errorf("Pipeline.OverlapSecs = %v, want 0.5", cfg.Pipeline.OverlapSecs)
	}
	if cfg.Pipeline.QueueCapacity != 32 {
		t.Errorf("Pipeline.QueueCapacity = %d, want 32", cfg.Pipeline.QueueCapacity)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
transcribe:
  backend: parakeet
  language: en
  parakeet_model_path: /opt/models/parakeet-ctc.onnx
audio:
  sample_rate: 44100
  channels: 2
  device: "USB Microphone"
  system_capture: true
pipeline:
  chunk_duration_secs: 3.5
  overlap_secs: 0.25
  silence_threshold: 0.02
  queue_capacity: 64
log_level: debug
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Transcribe.Backend != "parakeet" {
		t.Errorf("Transcribe.Backend = %q, want %q", cfg.Transcribe.Backend, "parakeet")
	}
	if cfg.Transcribe.Language != "en" {
		t.Errorf("Transcribe.Language = %q, want %q", cfg.Transcribe.Language, "en")
	}
	if cfg.Transcribe.ParakeetModelPath != "/opt/models/parakeet-ctc.onnx" {
		t.Errorf("Transcribe.ParakeetModelPath = %q", cfg.Transcribe.ParakeetModelPath)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("Audio.SampleRate = %d, want 44100", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 2 {
		t.Errorf("Audio.Channels = %d, want 2", cfg.Audio.Channels)
	}
	if cfg.Audio.Device != "USB Microphone" {
		t.Errorf("Audio.Device = %q, want %q", cfg.Audio.Device, "USB Microphone")
	}
	if !cfg.Audio.SystemCapture {
		t.Error("Audio.SystemCapture = false, want true")
	}
	if cfg.Pipeline.ChunkDurationSecs != 3.5 {
		t.Errorf("Pipeline.ChunkDurationSecs = %v, want 3.5", cfg.Pipeline.ChunkDurationSecs)
	}
	if cfg.Pipeline.QueueCapacity != 64 {
		t.Errorf("Pipeline.QueueCapacity = %d, want 64", cfg.Pipeline.QueueCapacity)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	// A partial config keeps defaults for everything it omits.
	yamlContent := `
transcribe:
  backend: whisper
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("Audio.SampleRate = %d, want default 16000", cfg.Audio.SampleRate)
	}
	if cfg.Pipeline.ChunkDurationSecs != 5.0 {
		t.Errorf("Pipeline.ChunkDurationSecs = %v, want default 5.0", cfg.Pipeline.ChunkDurationSecs)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default info", cfg.LogLevel)
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	yamlContent := `
transcribe:
  whisper_model_path: ~/models/whisper.bin
  parakeet_model_path: ~/models/parakeet-ctc.onnx
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if want := filepath.Join(home, "models/whisper.bin"); cfg.Transcribe.WhisperModelPath != want {
		t.Errorf("Transcribe.WhisperModelPath = %q, want %q", cfg.Transcribe.WhisperModelPath, want)
	}
	if want := filepath.Join(home, "models/parakeet-ctc.onnx"); cfg.Transcribe.ParakeetModelPath != want {
		t.Errorf("Transcribe.ParakeetModelPath = %q, want %q", cfg.Transcribe.ParakeetModelPath, want)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "unknown backend",
			modify:  func(c *Config) { c.Transcribe.Backend = "deepspeech" },
			wantErr: true,
		},
		{
			name:    "whisper backend without model path",
			modify:  func(c *Config) { c.Transcribe.WhisperModelPath = "" },
			wantErr: true,
		},
		{
			name: "parakeet backend without model path",
			modify: func(c *Config) {
				c.Transcribe.Backend = "parakeet"
				c.Transcribe.ParakeetModelPath = ""
			},
			wantErr: true,
		},
		{
			name:    "zero sample rate",
			modify:  func(c *Config) { c.Audio.SampleRate = 0 },
			wantErr: true,
		},
		{
			name:    "zero channels",
			modify:  func(c *Config) { c.Audio.Channels = 0 },
			wantErr: true,
		},
		{
			name:    "zero chunk duration",
			modify:  func(c *Config) { c.Pipeline.ChunkDurationSecs = 0 },
			wantErr: true,
		},
		{
			name:    "overlap not shorter than chunk",
			modify:  func(c *Config) { c.Pipeline.OverlapSecs = 5.0 },
			wantErr: true,
		},
		{
			name:    "negative silence threshold",
			modify:  func(c *Config) { c.Pipeline.SilenceThreshold = -0.1 },
			wantErr: true,
		},
		{
			name:    "silence threshold at or above 1",
			modify:  func(c *Config) { c.Pipeline.SilenceThreshold = 1.0 },
			wantErr: true,
		},
		{
			name:    "zero queue capacity",
			modify:  func(c *Config) { c.Pipeline.QueueCapacity = 0 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "invalid" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriteDefault_CreatesFile(t *testing.T) {
	// Use a temp dir as fake home to avoid touching real config
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	expectedPath := filepath.Join(tmpHome, ".config", "meetscribe", "config.yaml")
	if path != expectedPath {
		t.Errorf("WriteDefault() path = %q, want %q", path, expectedPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}

	if !strings.HasPrefix(string(data), "# meetscribe") {
		t.Error("written config should start with header comment")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.Transcribe.Backend != "whisper" {
		t.Errorf("written config Transcribe.Backend = %q, want %q", cfg.Transcribe.Backend, "whisper")
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("written config Audio.SampleRate = %d, want 16000", cfg.Audio.SampleRate)
	}
}

func TestWriteDefault_NoOpIfExists(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".config", "meetscribe")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	existingContent := []byte("log_level: debug\n")
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, existingContent, 0644); err != nil {
		t.Fatalf("failed to write existing config: %v", err)
	}

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if path != "" {
		t.Errorf("WriteDefault() path = %q, want empty string for existing file", path)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != string(existingContent) {
		t.Error("WriteDefault() should not overwrite existing config file")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
