// Package session is the orchestration core of the daemon: it turns
// toggle triggers into the record → transcribe → deliver lifecycle,
// guards against concurrent triggers, and guarantees cleanup of session
// resources on every exit path.
package session

// State is the controller's lifecycle position. Every trigger and every
// session outcome lands the controller back in Idle; Fault is a
// transient reporting state that auto-recovers.
type State int

const (
	// StateIdle means no session is active; a trigger starts one.
	StateIdle State = iota
	// StateRecording means audio is streaming to the session WAV file; a
	// trigger ends the recording.
	StateRecording
	// StateProcessing means the recording is being transcribed.
	StateProcessing
	// StateDelivering means transcribed text is being sent to the
	// focused application.
	StateDelivering
	// StateFault means a panic was caught mid-toggle; the controller
	// pauses briefly and forces itself back to Idle.
	StateFault
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StateDelivering:
		return "delivering"
	case StateFault:
		return "fault"
	default:
		return "unknown"
	}
}
