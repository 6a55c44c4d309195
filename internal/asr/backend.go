// Package asr provides speech-to-text backends behind a common contract.
//
// Supported backends:
//   - whisper: whisper.cpp via Go bindings (default, multilingual)
//   - parakeet: ONNX CTC model via ONNX Runtime (English-only)
package asr

import (
	"errors"
	"fmt"
)

// ErrModelNotLoaded is returned by Transcribe when no model has been loaded.
var ErrModelNotLoaded = errors.New("asr: no model loaded")

// Segment is one span of recognized text with millisecond timestamps
// relative to the start of the transcribed buffer.
type Segment struct {
	Text    string
	StartMS int64
	EndMS   int64
}

// Result is the output of a single Transcribe call.
type Result struct {
	Segments []Segment
	FullText string
}

// Backend converts 16 kHz mono float32 audio to text. A backend holds at
// most one loaded model; Transcribe fails with ErrModelNotLoaded before a
// successful LoadModel.
type Backend interface {
	// Name identifies the backend ("whisper", "parakeet").
	Name() string
	// IsLoaded reports whether a model is ready for Transcribe.
	IsLoaded() bool
	// LoadModel loads a model file. On failure any previously loaded
	// model remains usable.
	LoadModel(path string) error
	// SetLanguage sets the recognition language ("auto" where supported).
	SetLanguage(lang string)
	// Language returns the current language setting.
	Language() string
	// Transcribe recognizes 16 kHz mono float32 samples.
	Transcribe(samples []float32) (Result, error)
	// Close releases model resources.
	Close() error
}

// New creates a Backend by identifier.
func New(backend string) (Backend, error) {
	switch backend {
	case "whisper", "":
		return NewWhisper(), nil
	case "parakeet":
		return NewParakeet(), nil
	default:
		return nil, fmt.Errorf("asr: unknown backend %q (supported: whisper, parakeet)", backend)
	}
}

// TranscribeWithOffset runs b.Transcribe and shifts every segment by
// offsetMS. It is a package function rather than an interface method so
// backends cannot alter the timestamp semantics.
func TranscribeWithOffset(b Backend, samples []float32, offsetMS int64) (Result, error) {
	res, err := b.Transcribe(samples)
	if err != nil {
		return Result{}, err
	}
	for i := range res.Segments {
		res.Segments[i].StartMS += offsetMS
		res.Segments[i].EndMS += offsetMS
	}
	return res, nil
}
