package pipeline

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/meetscribe/meetscribe/internal/asr"
)

// consumer is the single task that drains the chunk queue, runs the
// recognition backend and publishes segments. It keeps running until the
// queue is closed and empty: queued work is always finished, even after
// capture has stopped.
func (p *Pipeline) runConsumer(st *state, backend asr.Backend, sessionID string) {
	defer close(st.done)

	for chunk := range st.chunks {
		st.dequeued()

		if backend == nil || !backend.IsLoaded() {
			slog.Warn("no model loaded, dropping chunk", "source", chunk.Source, "chunk", chunk.Index)
			continue
		}

		st.processing.Store(true)
		res, err := asr.TranscribeWithOffset(backend, chunk.Samples, chunk.StartMS)
		st.processing.Store(false)

		if err != nil {
			// Local to this chunk: log and keep consuming.
			slog.Error("transcription failed", "source", chunk.Source, "chunk", chunk.Index, "err", err)
			continue
		}

		text := strings.TrimSpace(res.FullText)
		if text == "" {
			continue
		}

		endMS := chunk.StartMS + chunk.DurationMS
		if n := len(res.Segments); n > 0 && res.Segments[n-1].EndMS > chunk.StartMS {
			endMS = res.Segments[n-1].EndMS
		}

		n := st.segments.Add(1)
		seg := TranscriptSegment{
			ID:      fmt.Sprintf("%s-seg-%d", sessionID, n),
			Text:    text,
			StartMS: chunk.StartMS,
			EndMS:   endMS,
			Source:  chunk.Source,
		}

		if p.sink != nil {
			p.sink.Publish(seg)
		}
		if p.enrich != nil {
			// Downstream enrichment must not block the next dequeue.
			go p.enrich(seg)
		}

		slog.Info("segment published", "id", seg.ID, "source", seg.Source, "start_ms", seg.StartMS, "text", text)
	}
}
