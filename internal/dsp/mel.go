package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// MelConfig holds the spectrogram parameters. Defaults match NeMo's
// preprocessing: 25 ms window, 10 ms hop, 80 mel bins over 0-8000 Hz.
type MelConfig struct {
	SampleRate int
	NFFT       int
	HopLength  int
	WinLength  int
	NMels      int
	FMin       float64
	FMax       float64
}

// DefaultMelConfig returns the standard 16 kHz configuration.
func DefaultMelConfig() MelConfig {
	return MelConfig{
		SampleRate: 16000,
		NFFT:       512,
		HopLength:  160, // 10ms at 16kHz
		WinLength:  400, // 25ms at 16kHz
		NMels:      80,
		FMin:       0,
		FMax:       8000,
	}
}

// MelSpectrogram computes log-mel features from raw audio. The filterbank
// and window are precomputed at construction; Compute is pure per call.
type MelSpectrogram struct {
	cfg        MelConfig
	filterbank *mat.Dense // [n_mels, n_fft/2+1]
	window     []float64
	fft        *fourier.FFT
}

// NewMelSpectrogram precomputes the Hann window and triangular mel filterbank.
func NewMelSpectrogram(cfg MelConfig) *MelSpectrogram {
	return &MelSpectrogram{
		cfg:        cfg,
		filterbank: melFilterbank(cfg.NFFT, cfg.NMels, cfg.SampleRate, cfg.FMin, cfg.FMax),
		window:     hannWindow(cfg.WinLength),
		fft:        fourier.NewFFT(cfg.NFFT),
	}
}

// Compute returns the log-mel matrix, shape [n_mels][n_frames]. Inputs
// shorter than one window yield zero frames.
func (m *MelSpectrogram) Compute(samples []float32) [][]float32 {
	nFreq := m.cfg.NFFT/2 + 1

	var nFrames int
	if len(samples) >= m.cfg.WinLength {
		nFrames = (len(samples)-m.cfg.WinLength)/m.cfg.HopLength + 1
	}

	out := make([][]float32, m.cfg.NMels)
	for i := range out {
		out[i] = make([]float32, nFrames)
	}
	if nFrames == 0 {
		return out
	}

	// STFT power spectrum, [n_freq, n_frames].
	power := mat.NewDense(nFreq, nFrames, nil)
	frame := make([]float64, m.cfg.NFFT)

	for f := 0; f < nFrames; f++ {
		start := f * m.cfg.HopLength
		for i := range frame {
			frame[i] = 0
		}
		for i := 0; i < m.cfg.WinLength && start+i < len(samples); i++ {
			frame[i] = float64(samples[start+i]) * m.window[i]
		}

		coeffs := m.fft.Coefficients(nil, frame)
		for k := 0; k < nFreq; k++ {
			c := coeffs[k]
			power.Set(k, f, real(c)*real(c)+imag(c)*imag(c))
		}
	}

	// [n_mels, n_freq] x [n_freq, n_frames] -> [n_mels, n_frames]
	var melSpec mat.Dense
	melSpec.Mul(m.filterbank, power)

	for i := 0; i < m.cfg.NMels; i++ {
		for j := 0; j < nFrames; j++ {
			out[i][j] = float32(math.Log(math.Max(melSpec.At(i, j), 1e-10)))
		}
	}

	return out
}

// NumFrames reports how many frames Compute will produce for n samples.
func (m *MelSpectrogram) NumFrames(n int) int {
	if n < m.cfg.WinLength {
		return 0
	}
	return (n-m.cfg.WinLength)/m.cfg.HopLength + 1
}

// Config returns the parameters the extractor was built with.
func (m *MelSpectrogram) Config() MelConfig { return m.cfg }

func hannWindow(length int) []float64 {
	w := make([]float64, length)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(length)))
	}
	return w
}

func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// melFilterbank builds the triangular filterbank, shape [nMels, nFFT/2+1].
// Filter centers sit at nMels+2 equally spaced points on the mel scale.
func melFilterbank(nFFT, nMels, sampleRate int, fMin, fMax float64) *mat.Dense {
	nFreq := nFFT/2 + 1
	melMin := hzToMel(fMin)
	melMax := hzToMel(fMax)

	binPoints := make([]float64, nMels+2)
	for i := range binPoints {
		mel := melMin + (melMax-melMin)*float64(i)/float64(nMels+1)
		binPoints[i] = melToHz(mel) * float64(nFFT) / float64(sampleRate)
	}

	fb := mat.NewDense(nMels, nFreq, nil)
	for m := 0; m < nMels; m++ {
		left, center, right := binPoints[m], binPoints[m+1], binPoints[m+2]
		for k := 0; k < nFreq; k++ {
			f := float64(k)
			switch {
			case f >= left && f <= center && center > left:
				fb.Set(m, k, (f-left)/(center-left))
			case f > center && f <= right && right > center:
				fb.Set(m, k, (right-f)/(right-center))
			}
		}
	}
	return fb
}
