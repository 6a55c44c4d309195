//go:build whisper_cpp

package asr

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// WhisperBackend wraps a persistent whisper.cpp model. Each Transcribe
// call creates a fresh decoding context; calls are serialized because the
// underlying context is not reentrant.
type WhisperBackend struct {
	mu       sync.Mutex
	model    whisper.Model
	language string
	threads  uint
}

// NewWhisper creates an unloaded whisper backend.
func NewWhisper() *WhisperBackend {
	return &WhisperBackend{
		language: "auto",
		threads:  uint(runtime.NumCPU()),
	}
}

func (w *WhisperBackend) Name() string { return "whisper" }

func (w *WhisperBackend) IsLoaded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.model != nil
}

// LoadModel loads a ggml model file. A previously loaded model stays
// active if the new one fails to load.
func (w *WhisperBackend) LoadModel(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("asr: whisper model %q: %w", path, err)
	}

	model, err := whisper.New(path)
	if err != nil {
		return fmt.Errorf("asr: load whisper model %q: %w", path, err)
	}

	w.mu.Lock()
	old := w.model
	w.model = model
	w.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

func (w *WhisperBackend) SetLanguage(lang string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if lang == "" {
		lang = "auto"
	}
	w.language = lang
}

func (w *WhisperBackend) Language() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.language
}

// Transcribe runs greedy decoding over the samples with a per-call decode
// state. Blank segments are filtered; timestamps are absolute milliseconds
// within the buffer.
func (w *WhisperBackend) Transcribe(samples []float32) (Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.model == nil {
		return Result{}, ErrModelNotLoaded
	}
	if len(samples) == 0 {
		return Result{}, nil
	}

	ctx, err := w.model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("asr: whisper context: %w", err)
	}

	ctx.SetThreads(w.threads)
	if err := ctx.SetLanguage(w.language); err != nil {
		return Result{}, fmt.Errorf("asr: set language %q: %w", w.language, err)
	}
	ctx.SetTranslate(false)
	ctx.SetTokenTimestamps(true)
	ctx.SetSplitOnWord(true)

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return Result{}, fmt.Errorf("asr: whisper inference: %w", err)
	}

	var res Result
	var full strings.Builder
	for {
		seg, err := ctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("asr: whisper segment: %w", err)
		}

		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if full.Len() > 0 {
			full.WriteByte(' ')
		}
		full.WriteString(text)

		res.Segments = append(res.Segments, Segment{
			Text:    text,
			StartMS: seg.Start.Milliseconds(),
			EndMS:   seg.End.Milliseconds(),
		})
	}

	res.FullText = full.String()
	return res, nil
}

// Close releases the loaded model.
func (w *WhisperBackend) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model != nil {
		err := w.model.Close()
		w.model = nil
		return err
	}
	return nil
}
