package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meetscribe/meetscribe/internal/asr"
	"github.com/meetscribe/meetscribe/internal/dsp"
)

var (
	// ErrNoModelLoaded means Start was called before a model was loaded.
	ErrNoModelLoaded = errors.New("pipeline: no model loaded")
	// ErrAlreadyRecording means Start was called during an active session.
	ErrAlreadyRecording = errors.New("pipeline: already recording")
	// ErrNotRecording means Stop/Pause/Resume was called with no session.
	ErrNotRecording = errors.New("pipeline: not recording")
	// ErrRecording means a model swap was attempted mid-session.
	ErrRecording = errors.New("pipeline: cannot load model while recording")
)

// Config holds the pipeline knobs. Zero values fall back to defaults.
type Config struct {
	ChunkDurationSecs float64 // default 5.0
	OverlapSecs       float64 // default 0.5
	SilenceThreshold  float64 // RMS gate, default 0.01
	QueueCapacity     int     // in-flight chunk cap, default 32

	// Tick intervals, overridable in tests.
	TickInterval  time.Duration // default 100ms
	PauseInterval time.Duration // default 200ms
}

func (c Config) withDefaults() Config {
	if c.ChunkDurationSecs <= 0 {
		c.ChunkDurationSecs = 5.0
	}
	if c.OverlapSecs < 0 {
		c.OverlapSecs = 0.5
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 32
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 100 * time.Millisecond
	}
	if c.PauseInterval <= 0 {
		c.PauseInterval = 200 * time.Millisecond
	}
	return c
}

// Input binds a sample source to its source tag.
type Input struct {
	Source  Source
	Samples SampleSource
}

// Summary describes a finished session.
type Summary struct {
	SessionID string
	Segments  uint64
}

type phase int

const (
	phaseIdle phase = iota
	phaseRecording
	phasePaused
	phaseStopping
)

// Pipeline owns the recording lifecycle: it spawns one producer per input
// and a single consumer, and coordinates pause/resume and drain-on-stop.
type Pipeline struct {
	mu      sync.Mutex
	cfg     Config
	backend asr.Backend
	sink    Sink
	enrich  func(TranscriptSegment)

	phase     phase
	st        *state
	sessionID string
}

// New creates a pipeline. backend may start unloaded; LoadModel must
// succeed before Start.
func New(cfg Config, backend asr.Backend, sink Sink) *Pipeline {
	return &Pipeline{
		cfg:     cfg.withDefaults(),
		backend: backend,
		sink:    sink,
	}
}

// OnSegment registers an enrichment hook invoked on its own goroutine for
// every published segment. Must be called before Start.
func (p *Pipeline) OnSegment(fn func(TranscriptSegment)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enrich = fn
}

// LoadModel loads a model into the backend. Rejected during a session:
// the consumer owns the backend while recording.
func (p *Pipeline) LoadModel(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.phase != phaseIdle {
		return ErrRecording
	}
	return p.backend.LoadModel(path)
}

// Backend returns the recognition backend for configuration while idle.
func (p *Pipeline) Backend() asr.Backend { return p.backend }

// Start begins a recording session over the given inputs. It fails
// before spawning anything if no model is loaded or no input is usable.
func (p *Pipeline) Start(inputs ...Input) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.phase != phaseIdle {
		return ErrAlreadyRecording
	}
	if p.backend == nil || !p.backend.IsLoaded() {
		return ErrNoModelLoaded
	}
	if len(inputs) == 0 {
		return fmt.Errorf("pipeline: no audio sources")
	}

	st := newState(p.cfg.QueueCapacity)
	st.recording.Store(true)

	sessionID := uuid.NewString()[:8]

	chunkSamples := int(p.cfg.ChunkDurationSecs * dsp.TargetSampleRate)
	overlapSamples := int(p.cfg.OverlapSecs * dsp.TargetSampleRate)

	var wg sync.WaitGroup
	for _, in := range inputs {
		prod := &producer{
			source:         in.Source,
			input:          in.Samples,
			st:             st,
			chunkSamples:   chunkSamples,
			overlapSamples: overlapSamples,
			threshold:      p.cfg.SilenceThreshold,
			tick:           p.cfg.TickInterval,
			pauseTick:      p.cfg.PauseInterval,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			prod.run()
		}()
	}

	// The queue closes only after every producer has exited; the consumer
	// then drains whatever is left before signalling done.
	go func() {
		wg.Wait()
		close(st.chunks)
	}()
	go p.runConsumer(st, p.backend, sessionID)

	p.st = st
	p.sessionID = sessionID
	p.phase = phaseRecording

	slog.Info("recording started", "session", sessionID, "sources", len(inputs),
		"chunk_samples", chunkSamples, "queue_capacity", p.cfg.QueueCapacity)
	return nil
}

// Pause suspends chunk production. Producers observe the flag on their
// next tick and discard buffered device audio.
func (p *Pipeline) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.phase != phaseRecording {
		return ErrNotRecording
	}
	p.st.paused.Store(true)
	p.phase = phasePaused
	slog.Info("recording paused", "session", p.sessionID)
	return nil
}

// Resume continues a paused session.
func (p *Pipeline) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.phase != phasePaused {
		return ErrNotRecording
	}
	p.st.paused.Store(false)
	p.phase = phaseRecording
	slog.Info("recording resumed", "session", p.sessionID)
	return nil
}

// Stop ends the session and blocks until the consumer has processed every
// queued chunk. Finalization never races in-flight segments.
func (p *Pipeline) Stop() (Summary, error) {
	p.mu.Lock()
	if p.phase != phaseRecording && p.phase != phasePaused {
		p.mu.Unlock()
		return Summary{}, ErrNotRecording
	}
	st := p.st
	sessionID := p.sessionID
	p.phase = phaseStopping
	st.paused.Store(false)
	st.recording.Store(false)
	p.mu.Unlock()

	// Wait for producers to exit, the queue to close, and the consumer to
	// drain every remaining chunk.
	<-st.done

	p.mu.Lock()
	p.phase = phaseIdle
	p.st = nil
	p.mu.Unlock()

	sum := Summary{SessionID: sessionID, Segments: st.segments.Load()}
	slog.Info("recording stopped", "session", sessionID, "segments", sum.Segments)
	return sum, nil
}

// Status reports the backlog indicator state.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	st := p.st
	p.mu.Unlock()

	if st == nil {
		return Status{State: StatusIdle}
	}

	pending := st.pending.Load()
	switch {
	case st.processing.Load():
		return Status{State: StatusProcessing, Pending: pending}
	case pending > 0:
		return Status{State: StatusQueued, Pending: pending}
	default:
		return Status{State: StatusIdle, Pending: pending}
	}
}

// IsRecording reports whether a session is active (paused included).
func (p *Pipeline) IsRecording() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase == phaseRecording || p.phase == phasePaused
}

// IsPaused reports whether the active session is paused.
func (p *Pipeline) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase == phasePaused
}
