package trigger

import (
	"sync"
	"time"

	hook "github.com/robotn/gohook"
)

// HotkeyListener watches a global key combo and emits one toggle Event
// per press. It keeps no recording state: whether a toggle starts or
// stops a session is the controller's call, so a missed or dropped
// event can never leave the listener out of sync.
type HotkeyListener struct {
	keys []string
	ch   chan Event
	done chan struct{}
	once sync.Once
}

// NewHotkeyListener creates a listener for the given key combo.
// keys should be lowercase key names (e.g., ["ctrl", "shift", "d"]).
func NewHotkeyListener(keys []string) *HotkeyListener {
	return &HotkeyListener{
		keys: keys,
		ch:   make(chan Event, 16),
		done: make(chan struct{}),
	}
}

// Events returns the channel that receives toggle events.
// The channel is closed when Stop is called.
func (l *HotkeyListener) Events() <-chan Event {
	return l.ch
}

// Start begins listening for the global hotkey.
// This function blocks until Stop is called. Run it in a goroutine.
func (l *HotkeyListener) Start() {
	hook.Register(hook.KeyDown, l.keys, func(e hook.Event) {
		select {
		case l.ch <- Event{Source: SourceHotkey, At: time.Now()}:
		default: // don't block if channel is full
		}
	})

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(l.ch)
}

// Stop terminates the hotkey listener.
// It is safe to call multiple times.
func (l *HotkeyListener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}
