package dsp

import (
	"math"
	"testing"
)

func TestResampleIdentity(t *testing.T) {
	samples := []float32{0.1, 0.2, 0.3, -0.4}
	out, err := Resample(samples, 16000, 16000)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if len(out) != len(samples) {
		t.Fatalf("len = %d, want %d", len(out), len(samples))
	}
	for i := range samples {
		if out[i] != samples[i] {
			t.Errorf("out[%d] = %v, want %v (identity path must not modify)", i, out[i], samples[i])
		}
	}
}

func TestResampleUpsampleLength(t *testing.T) {
	// 1 second at 8kHz -> ~16000 samples at 16kHz.
	in := make([]float32, 8000)
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 8000))
	}
	out, err := ResampleTo16k(in, 8000)
	if err != nil {
		t.Fatalf("ResampleTo16k: %v", err)
	}
	if got, want := len(out), 16000; got != want {
		t.Errorf("len = %d, want %d", got, want)
	}
}

func TestResampleDownsampleLength(t *testing.T) {
	in := make([]float32, 48000)
	out, err := ResampleTo16k(in, 48000)
	if err != nil {
		t.Fatalf("ResampleTo16k: %v", err)
	}
	if got, want := len(out), 16000; got != want {
		t.Errorf("len = %d, want %d", got, want)
	}
}

func TestResamplePreservesTone(t *testing.T) {
	// A 440Hz tone resampled 8k->16k should keep its amplitude in the
	// middle of the buffer (edges see filter rolloff).
	in := make([]float32, 8000)
	for i := range in {
		in[i] = 0.5 * float32(math.Sin(2*math.Pi*440*float64(i)/8000))
	}
	out, err := ResampleTo16k(in, 8000)
	if err != nil {
		t.Fatalf("ResampleTo16k: %v", err)
	}

	var peak float64
	for _, v := range out[1000 : len(out)-1000] {
		if a := math.Abs(float64(v)); a > peak {
			peak = a
		}
	}
	if peak < 0.4 || peak > 0.6 {
		t.Errorf("peak amplitude = %v, want ~0.5", peak)
	}
}

func TestResampleInvalidRate(t *testing.T) {
	if _, err := Resample([]float32{0}, 0, 16000); err == nil {
		t.Error("expected error for zero source rate")
	}
	if _, err := Resample([]float32{0}, 44100, -1); err == nil {
		t.Error("expected error for negative target rate")
	}
}

func TestResampleEmptyInput(t *testing.T) {
	out, err := ResampleTo16k(nil, 44100)
	if err != nil {
		t.Fatalf("ResampleTo16k: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("len = %d, want 0", len(out))
	}
}
