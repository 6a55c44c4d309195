package asr

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/meetscribe/meetscribe/internal/dsp"
)

// inferenceSession abstracts the ONNX Runtime session so the transcribe
// path is testable without a model. runFeatures feeds the [1, n_mels, T]
// log-mel layout; runRaw feeds raw [1, N] audio for model variants that
// embed their own preprocessor. Both return logits plus their shape.
type inferenceSession interface {
	runFeatures(features []float32, melBins, frames int) (logits []float32, shape []int64, err error)
	runRaw(samples []float32) (logits []float32, shape []int64, err error)
	close() error
}

// ParakeetBackend runs an English-only CTC model through ONNX Runtime:
// mel features in, greedy-decoded CTC logits out.
type ParakeetBackend struct {
	mu      sync.Mutex
	session inferenceSession
	vocab   []string
	mel     *dsp.MelSpectrogram

	// newSession is swapped out by tests.
	newSession func(path string) (inferenceSession, error)
}

// NewParakeet creates an unloaded parakeet backend.
func NewParakeet() *ParakeetBackend {
	return &ParakeetBackend{
		mel:        dsp.NewMelSpectrogram(dsp.DefaultMelConfig()),
		newSession: newORTSession,
	}
}

func (p *ParakeetBackend) Name() string { return "parakeet" }

func (p *ParakeetBackend) IsLoaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session != nil
}

// LoadModel loads a .onnx model and its sibling vocabulary. The vocabulary
// file is "<model>_vocab.json" next to the model; when absent the built-in
// character vocabulary is used. A previously loaded model stays active if
// loading fails.
func (p *ParakeetBackend) LoadModel(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("asr: parakeet model %q: %w", path, err)
	}
	if filepath.Ext(path) != ".onnx" {
		return fmt.Errorf("asr: parakeet requires an ONNX model file (.onnx), got %q", path)
	}

	vocab, err := loadVocabulary(vocabPathFor(path))
	if err != nil {
		slog.Debug("no vocabulary file, using built-in character vocabulary", "model", path, "err", err)
		vocab = defaultVocabulary()
	}

	session, err := p.newSession(path)
	if err != nil {
		return fmt.Errorf("asr: load parakeet model %q: %w", path, err)
	}

	p.mu.Lock()
	old := p.session
	p.session = session
	p.vocab = vocab
	p.mu.Unlock()

	if old != nil {
		old.close()
	}
	return nil
}

// SetLanguage is a no-op beyond coercion: parakeet models are English-only.
func (p *ParakeetBackend) SetLanguage(lang string) {
	if lang != "en" && lang != "auto" && lang != "" {
		slog.Warn("parakeet only supports English, ignoring language", "requested", lang)
	}
}

func (p *ParakeetBackend) Language() string { return "en" }

// Transcribe extracts log-mel features, runs the network and greedy-decodes
// the CTC logits. If the session rejects the feature layout it retries with
// raw audio for that call only.
func (p *ParakeetBackend) Transcribe(samples []float32) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return Result{}, ErrModelNotLoaded
	}
	if len(samples) == 0 {
		return Result{}, nil
	}

	features := p.mel.Compute(samples)
	melBins := len(features)
	frames := 0
	if melBins > 0 {
		frames = len(features[0])
	}

	flat := make([]float32, 0, melBins*frames)
	for _, row := range features {
		flat = append(flat, row...)
	}

	logits, shape, err := p.session.runFeatures(flat, melBins, frames)
	if err != nil {
		slog.Debug("feature input rejected, retrying with raw audio", "err", err)
		logits, shape, err = p.session.runRaw(samples)
		if err != nil {
			return Result{}, fmt.Errorf("asr: parakeet inference: %w", err)
		}
	}

	steps, vocabSize, err := logitsDims(shape)
	if err != nil {
		return Result{}, fmt.Errorf("asr: parakeet inference: %w", err)
	}

	tokens := ctcGreedyDecode(logits, steps, vocabSize, ctcBlankID)
	text := decodeTokens(tokens, p.vocab)
	if text == "" {
		return Result{}, nil
	}

	// The whole utterance is one segment spanning the chunk.
	durationMS := int64(len(samples)) * 1000 / dsp.TargetSampleRate
	return Result{
		Segments: []Segment{{Text: text, StartMS: 0, EndMS: durationMS}},
		FullText: text,
	}, nil
}

// Close releases the session.
func (p *ParakeetBackend) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		err := p.session.close()
		p.session = nil
		return err
	}
	return nil
}

// logitsDims validates a [1, time_steps, vocab_size] logits shape.
func logitsDims(shape []int64) (steps, vocabSize int, err error) {
	if len(shape) != 3 || shape[0] != 1 || shape[1] <= 0 || shape[2] <= 0 {
		return 0, 0, fmt.Errorf("unexpected logits shape %v, want [1, T, V]", shape)
	}
	return int(shape[1]), int(shape[2]), nil
}

// vocabPathFor derives the sibling vocabulary path for a model file:
// model.onnx -> model_vocab.json.
func vocabPathFor(modelPath string) string {
	base := strings.TrimSuffix(modelPath, filepath.Ext(modelPath))
	return base + "_vocab.json"
}
