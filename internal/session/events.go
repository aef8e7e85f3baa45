package session

import (
	"time"

	"voxkey/internal/trigger"
)

// EventKind distinguishes the lifecycle notifications the controller
// emits for logging and UI feedback.
type EventKind int

const (
	// EventStateChanged reports a state transition.
	EventStateChanged EventKind = iota
	// EventCaptureStarted reports that hardware frames actually started
	// arriving. Display only.
	EventCaptureStarted
	// EventDeviceFallback reports that the requested capture device was
	// missing and another one was bound instead.
	EventDeviceFallback
	// EventBackendSwapFailed reports a rejected or failed backend swap;
	// the previous backend stays active.
	EventBackendSwapFailed
	// EventSessionDone reports the terminal outcome of one session.
	EventSessionDone
)

// Outcome is the terminal result of one session.
type Outcome int

const (
	// OutcomeDelivered means text reached the focused application.
	OutcomeDelivered Outcome = iota
	// OutcomeNoSpeech means the transcription came back empty; nothing
	// was delivered and nothing failed.
	OutcomeNoSpeech
	// OutcomeFailed means the session ended without delivering text.
	OutcomeFailed
)

// String returns the outcome name for logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeNoSpeech:
		return "no-speech"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is one lifecycle notification. Only the fields relevant to the
// Kind are set.
type Event struct {
	Kind    EventKind
	State   State          // EventStateChanged
	Outcome Outcome        // EventSessionDone
	Source  trigger.Source // EventSessionDone: which trigger started it
	Text    string         // EventSessionDone: delivered text
	Audio   time.Duration  // EventSessionDone: recorded duration
	Err     error          // failure detail, when there is one

	// EventDeviceFallback
	Requested string
	Actual    string
}

// emit publishes ev without ever blocking the toggle path. A slow or
// absent consumer loses events, never sessions.
func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}
