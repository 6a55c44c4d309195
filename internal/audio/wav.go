package audio

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/go-audio/wav"
)

// DecodeWAV decodes a WAV blob into float32 PCM in [-1, 1] plus its
// sample rate. Multichannel files are downmixed to mono.
func DecodeWAV(b []byte) ([]float32, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(b))
	if !dec.IsValidFile() {
		return nil, 0, errors.New("audio: invalid wav file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil && err != io.EOF {
		return nil, 0, err
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, 0, errors.New("audio: empty wav buffer")
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int(1) << (bitDepth - 1))

	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float32(v) / scale
	}

	channels := 1
	rate := int(dec.SampleRate)
	if buf.Format != nil {
		if buf.Format.NumChannels > 1 {
			channels = buf.Format.NumChannels
		}
		if rate == 0 {
			rate = buf.Format.SampleRate
		}
	}
	if channels > 1 {
		out = downmixMono(out, channels)
	}
	if rate == 0 {
		return nil, 0, errors.New("audio: wav file has no sample rate")
	}
	return out, rate, nil
}

// FileSource replays decoded audio through the producer loop, for the
// offline transcription mode and tests. ReadSamples hands out the audio
// in fixed slices so the pipeline sees it arrive over multiple ticks.
type FileSource struct {
	mu         sync.Mutex
	samples    []float32
	sampleRate int
	pos        int
	burst      int
}

// NewFileSource wraps decoded samples. burst is the number of samples
// handed out per ReadSamples call; <=0 means everything at once.
func NewFileSource(samples []float32, sampleRate, burst int) *FileSource {
	if burst <= 0 {
		burst = len(samples)
	}
	return &FileSource{samples: samples, sampleRate: sampleRate, burst: burst}
}

// ReadSamples returns the next slice of audio, or nil when exhausted.
func (f *FileSource) ReadSamples() ([]float32, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos >= len(f.samples) {
		return nil, f.sampleRate
	}
	end := f.pos + f.burst
	if end > len(f.samples) {
		end = len(f.samples)
	}
	out := f.samples[f.pos:end]
	f.pos = end
	return out, f.sampleRate
}

// Drain skips the remaining audio.
func (f *FileSource) Drain() {
	f.mu.Lock()
	f.pos = len(f.samples)
	f.mu.Unlock()
}

// Exhausted reports whether all audio has been read.
func (f *FileSource) Exhausted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos >= len(f.samples)
}
