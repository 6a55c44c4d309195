package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meetscribe/meetscribe/internal/asr"
	"github.com/meetscribe/meetscribe/internal/audio"
	"github.com/meetscribe/meetscribe/internal/config"
	"github.com/meetscribe/meetscribe/internal/models"
	"github.com/meetscribe/meetscribe/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/meetscribe/config.yaml)")
	filePath := flag.String("file", "", "transcribe a WAV file instead of capturing live audio")
	listDevices := flag.Bool("list-devices", false, "list capture devices and exit")
	downloadModels := flag.Bool("download-models", false, "download recognition models and exit")
	initConfig := flag.Bool("init-config", false, "write a default config file and exit")
	flag.Parse()

	if *downloadModels {
		if err := models.RunInteractiveDownload(); err != nil {
			fmt.Fprintf(os.Stderr, "model download: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			fmt.Fprintf(os.Stderr, "init config: %v\n", err)
			os.Exit(1)
		}
		if path == "" {
			fmt.Println("Config file already exists:", config.DefaultConfigPath())
		} else {
			fmt.Println("Wrote default config to", path)
		}
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	if *listDevices {
		if err := runListDevices(cfg); err != nil {
			slog.Error("listing devices failed", "err", err)
			os.Exit(1)
		}
		return
	}

	backend, err := asr.New(cfg.Transcribe.Backend)
	if err != nil {
		slog.Error("creating backend failed", "err", err)
		os.Exit(1)
	}
	defer backend.Close()
	backend.SetLanguage(cfg.Transcribe.Language)

	modelPath := cfg.Transcribe.WhisperModelPath
	if cfg.Transcribe.Backend == "parakeet" {
		modelPath = cfg.Transcribe.ParakeetModelPath
	}

	slog.Info("loading model", "backend", backend.Name(), "path", modelPath)
	loadStart := time.Now()
	p := pipeline.New(pipeline.Config{
		ChunkDurationSecs: cfg.Pipeline.ChunkDurationSecs,
		OverlapSecs:       cfg.Pipeline.OverlapSecs,
		SilenceThreshold:  cfg.Pipeline.SilenceThreshold,
		QueueCapacity:     cfg.Pipeline.QueueCapacity,
	}, backend, &stdoutSink{})
	if err := p.LoadModel(modelPath); err != nil {
		slog.Error("loading model failed", "path", modelPath, "err", err,
			"hint", "run 'meetscribe -download-models' to fetch models")
		os.Exit(1)
	}
	slog.Info("model loaded", "elapsed", time.Since(loadStart).Round(time.Millisecond))

	if *filePath != "" {
		if err := runFile(p, cfg, *filePath); err != nil {
			slog.Error("file transcription failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := runLive(p, cfg); err != nil {
		slog.Error("live transcription failed", "err", err)
		os.Exit(1)
	}
}

// runLive captures microphone audio (plus system output when configured and
// supported) until interrupted, printing segments as they are transcribed.
func runLive(p *pipeline.Pipeline, cfg *config.Config) error {
	mic, err := audio.NewCapture(cfg.Audio.SampleRate, cfg.Audio.Channels)
	if err != nil {
		return fmt.Errorf("initializing capture: %w", err)
	}
	defer mic.Close()

	if err := mic.Start(cfg.Audio.Device); err != nil {
		return fmt.Errorf("starting capture: %w", err)
	}
	defer mic.Stop()

	inputs := []pipeline.Input{{Source: pipeline.SourceMicrophone, Samples: mic}}

	var loop *audio.Loopback
	if cfg.Audio.SystemCapture {
		loop, err = audio.NewLoopback(cfg.Audio.SampleRate, cfg.Audio.Channels)
		if err != nil {
			// Live capture continues with the mic alone.
			slog.Warn("system audio capture unavailable", "err", err)
		} else if err := loop.Start(); err != nil {
			slog.Warn("starting system audio capture failed", "err", err)
			loop.Close()
			loop = nil
		} else {
			defer loop.Close()
			inputs = append(inputs, pipeline.Input{Source: pipeline.SourceSystem, Samples: loop})
		}
	}

	if err := p.Start(inputs...); err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}

	slog.Info("recording", "sources", len(inputs), "device", cfg.Audio.Device)
	fmt.Fprintln(os.Stderr, "Recording. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	slog.Info("stopping", "signal", sig.String())
	mic.Stop()
	if loop != nil {
		loop.Stop()
	}

	// Stop blocks until every queued chunk has been transcribed.
	sum, err := p.Stop()
	if err != nil {
		return fmt.Errorf("stopping pipeline: %w", err)
	}
	slog.Info("session finished", "session", sum.SessionID, "segments", sum.Segments)
	return nil
}

// runFile transcribes a WAV file through the same pipeline as live audio.
func runFile(p *pipeline.Pipeline, cfg *config.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	samples, rate, err := audio.DecodeWAV(data)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	// Pad to a whole number of chunks so the file's tail is transcribed.
	chunkSamples := int(cfg.Pipeline.ChunkDurationSecs * float64(rate))
	if chunkSamples > 0 {
		if rem := len(samples) % chunkSamples; rem != 0 {
			samples = append(samples, make([]float32, chunkSamples-rem)...)
		}
	}

	src := audio.NewFileSource(samples, rate, rate/10)
	if err := p.Start(pipeline.Input{Source: pipeline.SourceMicrophone, Samples: src}); err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}

	slog.Info("transcribing file", "path", path, "rate", rate,
		"duration_secs", float64(len(samples))/float64(rate))

	for !src.Exhausted() {
		time.Sleep(100 * time.Millisecond)
	}
	// Let the producer slice the last buffered window before stopping.
	time.Sleep(300 * time.Millisecond)

	sum, err := p.Stop()
	if err != nil {
		return fmt.Errorf("stopping pipeline: %w", err)
	}
	slog.Info("file transcribed", "segments", sum.Segments)
	return nil
}

// runListDevices prints the available capture devices.
func runListDevices(cfg *config.Config) error {
	capture, err := audio.NewCapture(cfg.Audio.SampleRate, cfg.Audio.Channels)
	if err != nil {
		return err
	}
	defer capture.Close()

	devices, err := capture.Devices()
	if err != nil {
		return err
	}

	fmt.Println("Capture devices:")
	for _, d := range devices {
		marker := " "
		if d.IsDefault {
			marker = "*"
		}
		fmt.Printf("  %s %s\n", marker, d.Name)
	}
	if audio.LoopbackSupported() {
		fmt.Println("System audio capture: supported")
	} else {
		fmt.Println("System audio capture: not supported on this platform")
	}
	return nil
}

// stdoutSink prints transcript segments as they are published.
type stdoutSink struct{}

func (s *stdoutSink) Publish(seg pipeline.TranscriptSegment) {
	fmt.Printf("[%s %s - %s] %s\n", seg.Source, formatMS(seg.StartMS), formatMS(seg.EndMS), seg.Text)
}

func formatMS(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%02d:%02d.%d", int(d.Minutes()), int(d.Seconds())%60, (ms%1000)/100)
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, nil
	}

	return config.Default(), nil
}
