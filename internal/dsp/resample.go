// Package dsp holds the signal-processing utilities shared by the audio
// pipeline: sample-rate conversion and log-mel feature extraction.
package dsp

import (
	"fmt"
	"math"
)

// TargetSampleRate is the rate every recognition backend expects.
const TargetSampleRate = 16000

const (
	// sincZeroCrossings controls filter sharpness: taps per side of the kernel.
	sincZeroCrossings = 32
	// kernelOversample is the resolution of the precomputed kernel table.
	kernelOversample = 256
	// cutoffRatio keeps the passband just below Nyquist to bound aliasing.
	cutoffRatio = 0.95
)

// Resample converts mono PCM from sourceRate to targetRate using band-limited
// windowed-sinc interpolation. When the rates match the input is returned
// unchanged.
func Resample(samples []float32, sourceRate, targetRate int) ([]float32, error) {
	if sourceRate <= 0 || targetRate <= 0 {
		return nil, fmt.Errorf("dsp: resample: invalid rate %d -> %d", sourceRate, targetRate)
	}
	if sourceRate == targetRate {
		return samples, nil
	}
	if len(samples) == 0 {
		return nil, nil
	}

	ratio := float64(targetRate) / float64(sourceRate)

	// When downsampling the filter cutoff must track the output Nyquist.
	cutoff := cutoffRatio
	if ratio < 1.0 {
		cutoff *= ratio
	}

	kernel := buildSincTable(cutoff)

	outLen := int(math.Round(float64(len(samples)) * ratio))
	out := make([]float32, outLen)

	for i := range out {
		inPos := float64(i) / ratio
		center := int(math.Floor(inPos))

		var acc, norm float64
		for j := center - sincZeroCrossings + 1; j <= center+sincZeroCrossings; j++ {
			if j < 0 || j >= len(samples) {
				continue
			}
			w := kernel.at(inPos - float64(j))
			acc += w * float64(samples[j])
			norm += w
		}
		if norm != 0 {
			acc /= norm
		}
		out[i] = float32(acc)
	}

	return out, nil
}

// ResampleTo16k converts arbitrary-rate mono PCM to the 16 kHz rate the
// recognition backends require.
func ResampleTo16k(samples []float32, sourceRate int) ([]float32, error) {
	return Resample(samples, sourceRate, TargetSampleRate)
}

// sincTable is a precomputed Hann-windowed sinc kernel sampled at
// kernelOversample points per zero crossing. Lookups interpolate linearly.
type sincTable struct {
	values []float64
}

func buildSincTable(cutoff float64) *sincTable {
	n := sincZeroCrossings*kernelOversample + 1
	values := make([]float64, n)
	span := float64(sincZeroCrossings)
	for i := range values {
		x := float64(i) / kernelOversample
		values[i] = sinc(cutoff*x) * cutoff * hann(x/span)
	}
	return &sincTable{values: values}
}

// at evaluates the kernel at offset x (in input samples from the tap center).
func (t *sincTable) at(x float64) float64 {
	x = math.Abs(x)
	pos := x * kernelOversample
	idx := int(pos)
	if idx >= len(t.values)-1 {
		return 0
	}
	frac := pos - float64(idx)
	return t.values[idx]*(1-frac) + t.values[idx+1]*frac
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// hann evaluates a Hann window over [-1, 1].
func hann(x float64) float64 {
	if x < -1 || x > 1 {
		return 0
	}
	return 0.5 * (1 + math.Cos(math.Pi*x))
}
