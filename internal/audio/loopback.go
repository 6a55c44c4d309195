package audio

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/gen2brain/malgo"
)

// ErrUnsupported is returned when system-output capture is not available
// on this platform.
var ErrUnsupported = errors.New("audio: system audio capture is not supported on this platform")

// LoopbackSupported reports whether system-output capture works here.
// malgo only exposes loopback devices through WASAPI.
func LoopbackSupported() bool {
	return runtime.GOOS == "windows"
}

// Loopback captures system audio output (what the speakers are playing)
// via a WASAPI loopback device. On unsupported platforms Start returns
// ErrUnsupported and the pipeline simply runs without this source.
type Loopback struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	sampleRate uint32
	channels   uint32

	mu      sync.Mutex
	buf     []float32
	running bool
}

// NewLoopback creates a system-output capture context.
func NewLoopback(sampleRate, channels uint32) (*Loopback, error) {
	if !LoopbackSupported() {
		return nil, ErrUnsupported
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio: initializing loopback context: %w", err)
	}
	return &Loopback{
		ctx:        ctx,
		sampleRate: sampleRate,
		channels:   channels,
	}, nil
}

// Start begins capturing system output.
func (l *Loopback) Start() error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return fmt.Errorf("audio: loopback already capturing")
	}
	l.buf = l.buf[:0]
	l.running = true
	l.mu.Unlock()

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Loopback)
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = l.channels
	deviceCfg.SampleRate = l.sampleRate

	device, err := malgo.InitDevice(l.ctx.Context, deviceCfg, malgo.DeviceCallbacks{Data: l.onData})
	if err != nil {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
		return fmt.Errorf("audio: initializing loopback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
		return fmt.Errorf("audio: starting loopback device: %w", err)
	}

	l.mu.Lock()
	l.device = device
	l.mu.Unlock()
	return nil
}

// ReadSamples drains buffered samples and returns the capture rate.
func (l *Loopback) ReadSamples() ([]float32, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.buf) == 0 {
		return nil, int(l.sampleRate)
	}
	out := make([]float32, len(l.buf))
	copy(out, l.buf)
	l.buf = l.buf[:0]
	return out, int(l.sampleRate)
}

// Drain discards buffered samples.
func (l *Loopback) Drain() {
	l.mu.Lock()
	l.buf = l.buf[:0]
	l.mu.Unlock()
}

// Stop ends the capture.
func (l *Loopback) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.device != nil {
		l.device.Uninit()
		l.device = nil
	}
	l.running = false
}

// Close releases the device and context.
func (l *Loopback) Close() error {
	l.Stop()
	if l.ctx != nil {
		if err := l.ctx.Uninit(); err != nil {
			return fmt.Errorf("audio: uninitializing loopback context: %w", err)
		}
		l.ctx.Free()
		l.ctx = nil
	}
	return nil
}

func (l *Loopback) onData(_, pSample []byte, frameCount uint32) {
	samples := bytesToFloat32(pSample, frameCount*l.channels)
	if l.channels > 1 {
		samples = downmixMono(samples, int(l.channels))
	}
	l.mu.Lock()
	l.buf = append(l.buf, samples...)
	l.mu.Unlock()
}
