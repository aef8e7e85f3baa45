// Package deliver hands transcribed text to the focused application
// using robotgo, typing it as keystrokes with a clipboard-paste
// fallback.
package deliver

import (
	"fmt"
	"log/slog"

	"github.com/go-vgo/robotgo"
)

// Outcome reports how (or whether) the text reached the application.
type Outcome int

const (
	// OutcomePrimary means the text was typed as keystrokes.
	OutcomePrimary Outcome = iota
	// OutcomeFallback means typing failed and the text was pasted via
	// the clipboard instead.
	OutcomeFallback
	// OutcomeFailed means both paths failed; the text was left on the
	// clipboard as a last resort so nothing is lost.
	OutcomeFailed
)

// String returns the outcome name for logs.
func (o Outcome) String() string {
	switch o {
	case OutcomePrimary:
		return "typed"
	case OutcomeFallback:
		return "pasted"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Dispatcher delivers text into the active application. The zero value
// is not usable; create one with NewDispatcher.
type Dispatcher struct {
	method string // "type" or "paste"

	// Injection points for tests. Default to robotgo.
	typeText  func(string) error
	pasteText func(string) error
}

// NewDispatcher creates a Dispatcher with the given preferred method,
// "type" (keystroke simulation) or "paste" (clipboard).
func NewDispatcher(method string) *Dispatcher {
	return &Dispatcher{
		method:    method,
		typeText:  typeKeystrokes,
		pasteText: pasteClipboard,
	}
}

// Deliver sends text to the focused application. The preferred method
// is tried first; if it fails the other is tried before giving up. A
// degraded delivery is reported through the Outcome, not an error: only
// a total failure returns one.
func (d *Dispatcher) Deliver(text string) (Outcome, error) {
	if text == "" {
		return OutcomePrimary, nil
	}

	primary, secondary := d.typeText, d.pasteText
	primaryOutcome := OutcomePrimary
	if d.method == "paste" {
		primary, secondary = d.pasteText, d.typeText
		// Paste-as-preference is still the primary path for this config.
	}

	if err := primary(text); err == nil {
		return primaryOutcome, nil
	} else {
		slog.Warn("deliver: primary method failed, falling back", "method", d.method, "error", err)
	}

	if err := secondary(text); err == nil {
		return OutcomeFallback, nil
	} else {
		slog.Error("deliver: fallback method failed", "error", err)
	}

	// Park the text on the clipboard so the user can recover it by hand.
	if err := robotgo.WriteAll(text); err != nil {
		return OutcomeFailed, fmt.Errorf("deliver: all methods failed, clipboard write: %w", err)
	}
	return OutcomeFailed, fmt.Errorf("deliver: all methods failed, text left on clipboard")
}

// typeKeystrokes simulates individual keystrokes. Preserves clipboard
// contents but is slower for long text.
func typeKeystrokes(text string) error {
	robotgo.Type(text)
	return nil
}

// pasteClipboard copies text to the clipboard and pastes it with Cmd+V.
// Faster for long text; the previous clipboard is restored best-effort.
func pasteClipboard(text string) error {
	prev, _ := robotgo.ReadAll()

	if err := robotgo.WriteAll(text); err != nil {
		return fmt.Errorf("deliver: write to clipboard: %w", err)
	}

	if err := robotgo.KeyTap("v", "cmd"); err != nil {
		return fmt.Errorf("deliver: key tap cmd+v: %w", err)
	}

	_ = robotgo.WriteAll(prev)

	return nil
}
