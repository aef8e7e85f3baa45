// Package trigger emits toggle events from the global hotkey and the
// BLE hardware button. A trigger carries no start/stop meaning of its
// own; the session controller decides what a toggle does based on its
// current state.
package trigger

import "time"

// Source identifies which input produced a toggle.
type Source string

const (
	// SourceHotkey is the global keyboard shortcut.
	SourceHotkey Source = "hotkey"
	// SourceButton is the paired BLE hardware button.
	SourceButton Source = "button"
)

// Event is a single toggle request.
type Event struct {
	Source Source
	At     time.Time
}
