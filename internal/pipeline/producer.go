package pipeline

import (
	"log/slog"
	"math"
	"time"

	"github.com/meetscribe/meetscribe/internal/dsp"
)

// producer pulls raw audio from one source, resamples to 16 kHz, gates on
// RMS energy and slices fixed-duration chunks onto the shared queue.
type producer struct {
	source Source
	input  SampleSource
	st     *state

	chunkSamples   int
	overlapSamples int
	threshold      float64
	tick           time.Duration
	pauseTick      time.Duration
}

func (p *producer) run() {
	chunkDurMS := int64(p.chunkSamples) * 1000 / dsp.TargetSampleRate

	var (
		buf     []float32
		index   uint64
		totalMS int64
	)

	for p.st.recording.Load() {
		if p.st.paused.Load() {
			// Discard device audio while paused so resume doesn't
			// replay a burst of stale samples.
			p.input.Drain()
			buf = buf[:0]
			time.Sleep(p.pauseTick)
			continue
		}

		samples, rate := p.input.ReadSamples()
		if len(samples) > 0 {
			s16, err := dsp.ResampleTo16k(samples, rate)
			if err != nil {
				slog.Error("resample failed, skipping tick", "source", p.source, "rate", rate, "err", err)
			} else {
				buf = append(buf, s16...)
			}
		}

		for len(buf) >= p.chunkSamples && p.st.recording.Load() {
			window := buf[:p.chunkSamples]

			if rms(window) >= p.threshold {
				chunk := &AudioChunk{
					Samples:    append([]float32(nil), window...),
					StartMS:    totalMS,
					DurationMS: chunkDurMS,
					Index:      index,
					Source:     p.source,
				}
				index++
				totalMS += chunkDurMS
				buf = append(buf[:0], buf[p.chunkSamples:]...)

				// Blocks when the queue is full: backpressure.
				p.st.enqueue(chunk)
			} else {
				// Silent window: discard, but keep an overlap tail for
				// continuity across speech/silence boundaries. Time
				// still advances so timestamps track the wall clock.
				if len(buf) > p.overlapSamples {
					buf = append(buf[:0], buf[len(buf)-p.overlapSamples:]...)
				}
				totalMS += chunkDurMS
			}
		}

		time.Sleep(p.tick)
	}

	slog.Info("producer stopped", "source", p.source, "chunks", index, "duration_ms", totalMS)
}

// rms computes the root-mean-square energy of a window.
func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
