// Package audio owns the exclusive microphone binding. The capture device
// is selected once (with transparent fallback) and kept initialized across
// sessions so a toggle starts recording without device-open latency.
// Each session streams into a WAV file sink that is fully flushed and
// closed before Stop returns.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// ErrBusyRecording is returned when a device change is requested while a
// session is recording.
var ErrBusyRecording = errors.New("audio: cannot change device while recording")

// Capture binds one capture device and records sessions into WAV files.
type Capture struct {
	ctx        *malgo.AllocatedContext
	sampleRate uint32
	channels   uint32

	// onStarted fires once per session when the first hardware frames
	// arrive. Display only; correctness never depends on it.
	onStarted func()

	mu           sync.Mutex
	selected     DeviceInfo
	requestedID  string
	device       *malgo.Device
	sink         *sink
	recording    bool
	startedFired bool
}

// NewCapture initializes the audio context. Call Close when done.
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

// SetCaptureStartedFunc registers the callback fired when hardware capture
// actually begins (first frames delivered). Set before the first Start.
func (c *Capture) SetCaptureStartedFunc(fn func()) {
	c.mu.Lock()
	c.onStarted = fn
	c.mu.Unlock()
}

// Open binds the requested capture device, falling back to the first
// enumerated device if the requested one is missing. It returns the actual
// device id in use and whether a fallback occurred, so the caller can
// persist the actual id. Returns ErrNoDevice when nothing is enumerable.
func (c *Capture) Open(requestedID string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recording {
		return "", false, ErrBusyRecording
	}

	devices, err := enumerate(c.ctx)
	if err != nil {
		return "", false, fmt.Errorf("audio: enumerating devices: %w", err)
	}

	chosen, fellBack, err := selectDevice(devices, requestedID)
	if err != nil {
		return "", false, err
	}
	if fellBack {
		slog.Warn("audio: requested device not found, falling back",
			"requested", requestedID, "actual", chosen.Name)
	}

	if err := c.initDeviceLocked(chosen); err != nil {
		return "", false, err
	}
	c.requestedID = requestedID
	c.selected = chosen
	return chosen.Name, fellBack, nil
}

// initDeviceLocked replaces the malgo device binding. At most one device
// handle is open at any time: the old one is uninitialized first.
func (c *Capture) initDeviceLocked(chosen DeviceInfo) error {
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = c.channels
	deviceCfg.Capture.DeviceID = chosen.id.Pointer()
	deviceCfg.SampleRate = c.sampleRate

	device, err := malgo.InitDevice(c.ctx.Context, deviceCfg, malgo.DeviceCallbacks{
		Data: c.onData,
	})
	if err != nil {
		return fmt.Errorf("audio: initializing capture device %q: %w", chosen.Name, err)
	}
	c.device = device
	return nil
}

// ChangeDevice rebinds capture to the given device id. Forbidden while a
// session is recording. Fallback applies as in Open; the returned id is
// the one actually in use.
func (c *Capture) ChangeDevice(id string) (string, error) {
	actual, _, err := c.Open(id)
	return actual, err
}

// ActualDevice returns the device id currently bound (post-fallback).
func (c *Capture) ActualDevice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected.Name
}

// Start begins recording into a WAV file at path. The device was
// initialized at Open time, so this only creates the sink and starts the
// already-bound device. Returns immediately; hardware buffering means the
// first frames may arrive a few milliseconds later (see
// SetCaptureStartedFunc).
func (c *Capture) Start(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recording {
		return fmt.Errorf("audio: already recording")
	}
	if c.device == nil {
		return ErrNoDevice
	}

	snk, err := newSink(path, c.sampleRate, c.channels)
	if err != nil {
		return err
	}

	if err := c.device.Start(); err != nil {
		snk.close()
		return fmt.Errorf("audio: starting capture device: %w", err)
	}

	c.sink = snk
	c.recording = true
	c.startedFired = false
	return nil
}

// Stop ends the recording and returns only after the sink file is fully
// flushed and closed. The returned duration reflects the frames actually
// written.
func (c *Capture) Stop() (time.Duration, error) {
	c.mu.Lock()
	if !c.recording {
		c.mu.Unlock()
		return 0, fmt.Errorf("audio: not recording")
	}
	device := c.device
	snk := c.sink
	c.sink = nil
	c.recording = false
	c.mu.Unlock()

	// Stop the device first so no further callbacks race the sink close.
	if device != nil {
		if err := device.Stop(); err != nil {
			snk.close()
			return 0, fmt.Errorf("audio: stopping capture device: %w", err)
		}
	}

	if err := snk.close(); err != nil {
		return 0, err
	}
	return snk.duration(), nil
}

// IsRecording returns whether a session is currently capturing.
func (c *Capture) IsRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// Close releases the device binding and the audio context.
func (c *Capture) Close() error {
	c.mu.Lock()
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	if c.sink != nil {
		c.sink.close()
		c.sink = nil
	}
	c.recording = false
	c.mu.Unlock()

	if c.ctx != nil {
		if err := c.ctx.Uninit(); err != nil {
			return fmt.Errorf("audio: uninitializing context: %w", err)
		}
		c.ctx.Free()
	}
	return nil
}

// onData is the malgo callback invoked on the audio thread when frames
// are available.
func (c *Capture) onData(_, pSample []byte, frameCount uint32) {
	c.mu.Lock()
	snk := c.sink
	fireStarted := !c.startedFired && c.recording
	if fireStarted {
		c.startedFired = true
	}
	started := c.onStarted
	c.mu.Unlock()

	if fireStarted && started != nil {
		started()
	}
	if snk == nil {
		return
	}

	samples := bytesToFloat32(pSample, frameCount*c.channels)
	if err := snk.writeFloat32(samples); err != nil {
		slog.Error("audio: sink write failed", "error", err)
	}
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
