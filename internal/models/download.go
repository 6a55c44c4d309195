// Package models downloads recognition models into the local models directory.
package models

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/meetscribe/meetscribe/internal/config"
)

const (
	whisperModelURL  = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.en.bin"
	whisperModelName = "ggml-base.en.bin"

	parakeetModelURL  = "https://huggingface.co/nvidia/parakeet-ctc-0.6b/resolve/main/parakeet-ctc.onnx"
	parakeetVocabURL  = "https://huggingface.co/nvidia/parakeet-ctc-0.6b/resolve/main/parakeet-ctc_vocab.json"
	parakeetModelName = "parakeet-ctc.onnx"
	parakeetVocabName = "parakeet-ctc_vocab.json"
)

// DownloadWhisper downloads the whisper ggml model to the default models
// directory. It shows download progress on stdout.
func DownloadWhisper() error {
	return fetchModel(whisperModelURL, whisperModelName)
}

// DownloadParakeet downloads the parakeet ONNX model and its vocabulary file.
func DownloadParakeet() error {
	if err := fetchModel(parakeetModelURL, parakeetModelName); err != nil {
		return err
	}
	return fetchModel(parakeetVocabURL, parakeetVocabName)
}

// fetchModel downloads a single file into the models directory, writing to a
// temp file first so a partial download never shadows a usable model.
func fetchModel(url, name string) error {
	modelsDir := config.DefaultModelsDir()
	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		return fmt.Errorf("creating models dir: %w", err)
	}

	destPath := filepath.Join(modelsDir, name)

	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		fmt.Printf("  %s already exists (%.1f MB)\n", destPath, float64(info.Size())/(1024*1024))
		return nil
	}

	fmt.Printf("  Downloading %s\n", name)
	fmt.Printf("  URL: %s\n", url)
	fmt.Printf("  Destination: %s\n", destPath)

	resp, err := http.Get(url) //nolint:gosec // URL is a compile-time constant
	if err != nil {
		return fmt.Errorf("downloading %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	pr := &progressWriter{
		writer: f,
		total:  resp.ContentLength,
		label:  name,
	}

	written, err := io.Copy(pr, resp.Body)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing model file: %w", err)
	}

	fmt.Printf("\n  Downloaded %.1f MB\n", float64(written)/(1024*1024))

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("moving model file: %w", err)
	}

	return nil
}

// progressWriter wraps an io.Writer and prints download progress.
type progressWriter struct {
	writer  io.Writer
	total   int64
	written int64
	label   string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		pct := float64(pw.written) / float64(pw.total) * 100
		fmt.Printf("\r  %s: %.1f MB / %.1f MB (%.0f%%)",
			pw.label,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024),
			pct)
	} else {
		fmt.Printf("\r  %s: %.1f MB downloaded",
			pw.label,
			float64(pw.written)/(1024*1024))
	}
	return n, err
}

// RunInteractiveDownload prompts the user which models to download and
// downloads them.
func RunInteractiveDownload() error {
	fmt.Println("=== Model Download ===")
	fmt.Println()
	fmt.Printf("Models will be downloaded to: %s\n", config.DefaultModelsDir())
	fmt.Println()
	fmt.Println("Which models would you like to download?")
	fmt.Println("  [1] Whisper (base.en, ~142 MB) - multilingual-capable transcription")
	fmt.Println("  [2] Parakeet (CTC, ~2.4 GB) - English-only ONNX model")
	fmt.Println("  [3] Both")
	fmt.Println()
	fmt.Print("Choice [1/2/3]: ")

	var choice string
	fmt.Scanln(&choice)
	choice = strings.TrimSpace(choice)

	fmt.Println()

	switch choice {
	case "1":
		return DownloadWhisper()
	case "2":
		return DownloadParakeet()
	case "3":
		fmt.Println("[1/2] Whisper model:")
		if err := DownloadWhisper(); err != nil {
			return fmt.Errorf("whisper download failed: %w", err)
		}
		fmt.Println()
		fmt.Println("[2/2] Parakeet model:")
		if err := DownloadParakeet(); err != nil {
			return fmt.Errorf("parakeet download failed: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("invalid choice: %q (expected 1, 2, or 3)", choice)
	}
}
