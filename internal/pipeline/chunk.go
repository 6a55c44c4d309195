// Package pipeline wires audio source producers, a bounded chunk queue and
// a single transcription consumer into a start/stop/pause lifecycle.
package pipeline

import "sync/atomic"

// Source tags which physical source a chunk or segment came from.
type Source string

const (
	SourceMicrophone Source = "microphone"
	SourceSystem     Source = "system"
)

// AudioChunk is one unit of transcription work: a fixed-duration slice of
// 16 kHz mono PCM from a single source.
type AudioChunk struct {
	Samples    []float32
	StartMS    int64  // absolute offset on the source's timeline
	DurationMS int64  // derived from len(Samples)
	Index      uint64 // strictly increasing per source
	Source     Source
}

// TranscriptSegment is the published recognition output for one chunk.
type TranscriptSegment struct {
	ID      string
	Text    string
	StartMS int64
	EndMS   int64
	Source  Source
}

// Sink receives published segments. Publish is called from the consumer
// goroutine and should return quickly; slow downstream work belongs in an
// enrichment hook.
type Sink interface {
	Publish(seg TranscriptSegment)
}

// SampleSource yields newly captured PCM. Implemented by audio.Capture,
// audio.Loopback and audio.FileSource.
type SampleSource interface {
	// ReadSamples drains samples accumulated since the last call and
	// reports their sample rate.
	ReadSamples() (samples []float32, sampleRate int)
	// Drain discards any buffered samples (used while paused).
	Drain()
}

// Status state values for the backlog indicator.
const (
	StatusIdle       = "idle"
	StatusQueued     = "queued"
	StatusProcessing = "processing"
)

// Status is the externally observable backpressure signal.
type Status struct {
	State   string
	Pending int64
}

// state is the shared coordination state of one recording session. It is
// created at session start and torn down at stop; nothing here is global.
type state struct {
	recording  atomic.Bool
	paused     atomic.Bool
	pending    atomic.Int64
	processing atomic.Bool
	segments   atomic.Uint64

	chunks chan *AudioChunk
	done   chan struct{} // closed when the consumer has drained and exited
}

func newState(queueCapacity int) *state {
	return &state{
		chunks: make(chan *AudioChunk, queueCapacity),
		done:   make(chan struct{}),
	}
}

// enqueue increments the pending counter and sends the chunk, blocking
// when the queue is full. The block is the backpressure mechanism.
func (s *state) enqueue(c *AudioChunk) {
	s.pending.Add(1)
	s.chunks <- c
}

// dequeue is performed inline by the consumer: receive, then decrement.
func (s *state) dequeued() {
	s.pending.Add(-1)
}
