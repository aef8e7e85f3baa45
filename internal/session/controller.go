package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"voxkey/internal/audio"
	"voxkey/internal/config"
	"voxkey/internal/deliver"
	"voxkey/internal/transcribe"
	"voxkey/internal/trigger"
)

// Capture is the microphone binding the controller records through.
// *audio.Capture satisfies it; tests substitute a fake.
type Capture interface {
	Start(path string) error
	Stop() (time.Duration, error)
	ChangeDevice(id string) (string, error)
	IsRecording() bool
}

// Dispatcher delivers text to the focused application.
type Dispatcher interface {
	Deliver(text string) (deliver.Outcome, error)
}

// Janitor hands out and reclaims session temp files.
type Janitor interface {
	NewPath() (string, error)
	Remove(path string)
}

// Options tunes controller timing.
type Options struct {
	TranscribeTimeout time.Duration // per-session transcription budget
	FaultPause        time.Duration // dwell time in Fault before recovering
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		TranscribeTimeout: 120 * time.Second,
		FaultPause:        2 * time.Second,
	}
}

// Controller runs the toggle-driven session lifecycle. All triggers,
// from any source, funnel through HandleTrigger; a non-reentrant guard
// makes overlapping triggers drop rather than queue, so a trigger storm
// can never stack sessions.
type Controller struct {
	capture    Capture
	selector   *transcribe.Selector
	dispatcher Dispatcher
	janitor    Janitor
	opts       Options

	// guard serializes toggle handling. TryLock only: losers are dropped.
	guard sync.Mutex

	mu     sync.Mutex
	state  State
	active *activeSession

	events chan Event
}

// activeSession is the state carried between the starting and stopping
// toggle of one recording.
type activeSession struct {
	path   string
	handle *transcribe.Handle
	source trigger.Source
}

// NewController wires the controller. All collaborators are required.
func NewController(capture Capture, selector *transcribe.Selector, dispatcher Dispatcher, jan Janitor, opts Options) *Controller {
	if opts.TranscribeTimeout <= 0 {
		opts.TranscribeTimeout = DefaultOptions().TranscribeTimeout
	}
	if opts.FaultPause <= 0 {
		opts.FaultPause = DefaultOptions().FaultPause
	}
	return &Controller{
		capture:    capture,
		selector:   selector,
		dispatcher: dispatcher,
		janitor:    jan,
		opts:       opts,
		state:      StateIdle,
		events:     make(chan Event, 32),
	}
}

// Events returns the lifecycle event channel. Events are dropped, not
// queued, when the consumer falls behind.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// CurrentState returns the controller's state.
func (c *Controller) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev != s {
		slog.Debug("session: state change", "from", prev, "to", s)
		c.emit(Event{Kind: EventStateChanged, State: s})
	}
}

// HandleTrigger processes one toggle. While a toggle is being handled
// (including the whole stop → transcribe → deliver tail), further
// triggers are dropped. The guard is released before returning on every
// path, panics included.
func (c *Controller) HandleTrigger(ev trigger.Event) {
	if !c.guard.TryLock() {
		slog.Debug("session: trigger dropped, toggle in progress", "source", ev.Source)
		return
	}
	defer c.guard.Unlock()
	defer c.recoverPanic()

	// Only Idle and Recording are observable here: Processing and
	// Delivering exist solely inside a guarded toggle.
	switch c.CurrentState() {
	case StateIdle:
		c.startSession(ev)
	case StateRecording:
		c.finishSession()
	default:
		slog.Warn("session: trigger ignored in state", "state", c.CurrentState(), "source", ev.Source)
	}
}

// startSession acquires the session resources and starts recording.
// The backend handle is snapshotted now so a mid-session swap cannot
// change or close the backend under this session.
func (c *Controller) startSession(ev trigger.Event) {
	path, err := c.janitor.NewPath()
	if err != nil {
		slog.Error("session: cannot allocate recording path", "error", err)
		c.emit(Event{Kind: EventSessionDone, Outcome: OutcomeFailed, Source: ev.Source, Err: err})
		return
	}

	handle := c.selector.Acquire()

	if err := c.capture.Start(path); err != nil {
		handle.Release()
		c.janitor.Remove(path)
		slog.Error("session: capture start failed", "error", err)
		c.emit(Event{Kind: EventSessionDone, Outcome: OutcomeFailed, Source: ev.Source, Err: err})
		return
	}

	c.mu.Lock()
	c.active = &activeSession{path: path, handle: handle, source: ev.Source}
	c.mu.Unlock()
	c.setState(StateRecording)
	slog.Info("session: recording started", "source", ev.Source, "path", path)
}

// finishSession stops the recording and runs the transcribe → deliver
// tail. The temp file removal, handle release, and return to Idle are
// deferred so no failure path can leak them.
func (c *Controller) finishSession() {
	c.mu.Lock()
	active := c.active
	c.active = nil
	c.mu.Unlock()
	if active == nil {
		slog.Error("session: recording state with no active session")
		c.setState(StateIdle)
		return
	}

	c.setState(StateProcessing)
	defer func() {
		active.handle.Release()
		c.janitor.Remove(active.path)
		c.setState(StateIdle)
	}()

	audioLen, err := c.capture.Stop()
	if err != nil {
		slog.Error("session: capture stop failed", "error", err)
		c.emit(Event{Kind: EventSessionDone, Outcome: OutcomeFailed, Source: active.source, Err: err})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.TranscribeTimeout)
	defer cancel()

	backend := active.handle.Backend()
	started := time.Now()
	res, err := backend.Transcribe(ctx, active.path)
	if err != nil {
		slog.Error("session: transcription failed",
			"provider", backend.Info().Name, "error", err)
		c.emit(Event{Kind: EventSessionDone, Outcome: OutcomeFailed, Source: active.source, Err: err})
		return
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		slog.Info("session: no speech detected", "audio", audioLen)
		c.emit(Event{Kind: EventSessionDone, Outcome: OutcomeNoSpeech, Source: active.source, Audio: audioLen})
		return
	}

	slog.Info("session: transcribed",
		"provider", backend.Info().Name,
		"chars", len(text),
		"audio", audioLen,
		"took", time.Since(started).Round(time.Millisecond))

	c.setState(StateDelivering)
	outcome, err := c.dispatcher.Deliver(text)
	if outcome == deliver.OutcomeFailed {
		c.emit(Event{Kind: EventSessionDone, Outcome: OutcomeFailed, Source: active.source, Text: text, Audio: audioLen, Err: err})
		return
	}
	// A fallback delivery degraded, it did not fail: the session ends
	// delivered either way.
	if outcome == deliver.OutcomeFallback {
		slog.Warn("session: delivered via fallback path")
	}
	c.emit(Event{Kind: EventSessionDone, Outcome: OutcomeDelivered, Source: active.source, Text: text, Audio: audioLen})
}

// recoverPanic converts a panic in toggle handling into a Fault episode:
// report, reclaim whatever the session held, pause, recover to Idle. A
// dictation daemon must outlive a single bad toggle.
func (c *Controller) recoverPanic() {
	r := recover()
	if r == nil {
		return
	}
	slog.Error("session: panic during toggle handling", "panic", r)
	c.setState(StateFault)

	if c.capture.IsRecording() {
		if _, err := c.capture.Stop(); err != nil {
			slog.Error("session: capture stop during fault recovery failed", "error", err)
		}
	}
	c.mu.Lock()
	active := c.active
	c.active = nil
	c.mu.Unlock()
	if active != nil {
		active.handle.Release()
		c.janitor.Remove(active.path)
	}

	time.Sleep(c.opts.FaultPause)
	c.setState(StateIdle)
}

// ChangeBackend swaps the transcription backend. In-flight sessions keep
// the backend they started with; a failed swap leaves the previous
// backend active and is reported through the event stream.
func (c *Controller) ChangeBackend(cfg *config.BackendConfig) error {
	if err := c.selector.Swap(cfg); err != nil {
		c.emit(Event{Kind: EventBackendSwapFailed, Err: err})
		return err
	}
	return nil
}

// ChangeDevice rebinds the capture device. Forbidden while recording.
// Returns the device id actually bound (after any fallback) so the
// caller can persist it.
func (c *Controller) ChangeDevice(id string) (string, error) {
	if c.capture.IsRecording() {
		return "", fmt.Errorf("session: %w", audio.ErrBusyRecording)
	}
	return c.capture.ChangeDevice(id)
}

// NoteCaptureStarted is wired to the capture layer's started callback.
func (c *Controller) NoteCaptureStarted() {
	c.emit(Event{Kind: EventCaptureStarted})
}

// NoteDeviceFallback records a startup device fallback in the event
// stream.
func (c *Controller) NoteDeviceFallback(requested, actual string) {
	c.emit(Event{Kind: EventDeviceFallback, Requested: requested, Actual: actual})
}
