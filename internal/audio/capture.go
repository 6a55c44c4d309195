// Package audio captures PCM from physical sources via malgo and decodes
// WAV files for the offline mode.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// Device describes one capture device.
type Device struct {
	Name      string
	IsDefault bool
}

// Capture accumulates microphone audio into an internal float32 buffer.
// ReadSamples drains the buffer; Drain discards it (used while paused).
type Capture struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	sampleRate uint32
	channels   uint32

	mu      sync.Mutex
	buf     []float32
	running bool
}

// NewCapture creates a capture context. Call Close when done.
func NewCapture(sampleRate, channels uint32) (*Capture, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio: initializing context: %w", err)
	}
	return &Capture{
		ctx:        ctx,
		sampleRate: sampleRate,
		channels:   channels,
	}, nil
}

// Devices lists available capture devices. The first entry malgo reports
// is the system default.
func (c *Capture) Devices() ([]Device, error) {
	infos, err := c.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("audio: enumerating devices: %w", err)
	}
	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{Name: info.Name(), IsDefault: i == 0}
	}
	return devices, nil
}

// Start begins capturing from the named device, or the default when name
// is empty. A named device that cannot be found is an error; other
// sources in the pipeline keep running.
func (c *Capture) Start(deviceName string) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("audio: already capturing")
	}
	c.buf = c.buf[:0]
	c.running = true
	c.mu.Unlock()

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = c.channels
	deviceCfg.SampleRate = c.sampleRate

	if deviceName != "" {
		infos, err := c.ctx.Devices(malgo.Capture)
		if err != nil {
			c.setStopped()
			return fmt.Errorf("audio: enumerating devices: %w", err)
		}
		found := false
		for i := range infos {
			if infos[i].Name() == deviceName {
				deviceCfg.Capture.DeviceID = infos[i].ID.Pointer()
				found = true
				break
			}
		}
		if !found {
			c.setStopped()
			return fmt.Errorf("audio: device %q not found", deviceName)
		}
	}

	device, err := malgo.InitDevice(c.ctx.Context, deviceCfg, malgo.DeviceCallbacks{Data: c.onData})
	if err != nil {
		c.setStopped()
		return fmt.Errorf("audio: initializing capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		c.setStopped()
		return fmt.Errorf("audio: starting capture device: %w", err)
	}

	c.mu.Lock()
	c.device = device
	c.mu.Unlock()
	return nil
}

func (c *Capture) setStopped() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

// ReadSamples drains and returns the samples accumulated since the last
// call, plus the capture sample rate.
func (c *Capture) ReadSamples() ([]float32, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buf) == 0 {
		return nil, int(c.sampleRate)
	}
	out := make([]float32, len(c.buf))
	copy(out, c.buf)
	c.buf = c.buf[:0]
	return out, int(c.sampleRate)
}

// Drain discards buffered samples without stopping the device. The
// pipeline calls this while paused so stale audio doesn't burst out on
// resume.
func (c *Capture) Drain() {
	c.mu.Lock()
	c.buf = c.buf[:0]
	c.mu.Unlock()
}

// Stop ends the capture. Buffered samples stay readable.
func (c *Capture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	c.running = false
}

// IsRunning reports whether the device is capturing.
func (c *Capture) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Close releases the device and context.
func (c *Capture) Close() error {
	c.Stop()
	if c.ctx != nil {
		if err := c.ctx.Uninit(); err != nil {
			return fmt.Errorf("audio: uninitializing context: %w", err)
		}
		c.ctx.Free()
		c.ctx = nil
	}
	return nil
}

// onData is the malgo callback invoked when audio data is available.
// Multichannel input is downmixed to mono.
func (c *Capture) onData(_, pSample []byte, frameCount uint32) {
	samples := bytesToFloat32(pSample, frameCount*c.channels)
	if c.channels > 1 {
		samples = downmixMono(samples, int(c.channels))
	}
	c.mu.Lock()
	c.buf = append(c.buf, samples...)
	c.mu.Unlock()
}

// bytesToFloat32 converts raw bytes (little-endian float32) to a float32 slice.
func bytesToFloat32(data []byte, sampleCount uint32) []float32 {
	samples := make([]float32, 0, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		offset := i * 4
		if offset+4 > uint32(len(data)) {
			break
		}
		bits := binary.LittleEndian.Uint32(data[offset : offset+4])
		samples = append(samples, math.Float32frombits(bits))
	}
	return samples
}

// downmixMono averages interleaved channels into one.
func downmixMono(samples []float32, channels int) []float32 {
	mono := make([]float32, 0, len(samples)/channels)
	for i := 0; i+channels <= len(samples); i += channels {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i+c]
		}
		mono = append(mono, sum/float32(channels))
	}
	return mono
}
