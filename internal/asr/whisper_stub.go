//go:build !whisper_cpp

package asr

import (
	"fmt"
	"sync"
)

// WhisperBackend stub for builds without the whisper_cpp tag, so the
// module compiles without cgo and the whisper.cpp shared library.
type WhisperBackend struct {
	mu       sync.Mutex
	language string
}

// NewWhisper creates an unloaded whisper backend.
func NewWhisper() *WhisperBackend {
	return &WhisperBackend{language: "auto"}
}

func (w *WhisperBackend) Name() string   { return "whisper" }
func (w *WhisperBackend) IsLoaded() bool { return false }

func (w *WhisperBackend) LoadModel(path string) error {
	return fmt.Errorf("asr: whisper backend requires the whisper_cpp build tag (model %q)", path)
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

func (w *WhisperBackend) Transcribe(samples []float32) (Result, error) {
	return Result{}, ErrModelNotLoaded
}

func (w *WhisperBackend) Close() error { return nil }
