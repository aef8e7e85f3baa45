package ble

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Press is one decrypted, replay-checked button press.
type Press struct {
	Counter uint32
	At      time.Time
}

// ListenerOptions configures the button listener behavior.
type ListenerOptions struct {
	ReconnectMax int // max reconnect backoff in seconds
}

// DefaultListenerOptions returns sensible defaults.
func DefaultListenerOptions() ListenerOptions {
	return ListenerOptions{ReconnectMax: 30}
}

// Listener maintains the connection to the paired button and emits a
// Press for each valid encrypted notification. Replayed packets (counter
// at or below the last seen value) are dropped silently except for a log
// line; a stale press must never toggle a session.
type Listener struct {
	adapter   Adapter
	deviceMAC string
	key       []byte // 32-byte AES encryption key
	opts      ListenerOptions

	mu          sync.Mutex
	conn        Connection
	connected   bool
	lastCounter uint32
	hasCounter  bool
	closed      bool

	ch chan Press
}

// NewListener creates a listener for the given paired button.
// The key must be exactly 32 bytes (AES-256).
func NewListener(adapter Adapter, deviceMAC string, key []byte, opts ListenerOptions) (*Listener, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("ble: key must be 32 bytes, got %d", len(key))
	}
	if opts.ReconnectMax <= 0 {
		opts.ReconnectMax = 30
	}
	return &Listener{
		adapter:   adapter,
		deviceMAC: deviceMAC,
		key:       key,
		opts:      opts,
		ch:        make(chan Press, 16),
	}, nil
}

// Presses returns the channel that receives button presses.
func (l *Listener) Presses() <-chan Press {
	return l.ch
}

// Connect establishes the initial BLE connection to the paired button
// and subscribes to press notifications.
func (l *Listener) Connect() error {
	if err := l.adapter.Enable(); err != nil {
		return fmt.Errorf("ble: enable adapter: %w", err)
	}

	ctx := context.Background()
	conn, err := l.adapter.Connect(ctx, l.deviceMAC)
	if err != nil {
		return fmt.Errorf("ble: connect to %s: %w", l.deviceMAC, err)
	}

	if err := l.setConnected(conn); err != nil {
		return err
	}

	slog.Info("[BLE] button connected", "mac", l.deviceMAC)
	return nil
}

// setConnected subscribes to the press characteristic and registers the
// disconnect handler for auto-reconnect.
func (l *Listener) setConnected(conn Connection) error {
	pressChar, err := conn.DiscoverCharacteristic(ServiceUUID, PressCharUUID)
	if err != nil {
		return fmt.Errorf("ble: discover press characteristic: %w", err)
	}
	if err := pressChar.Subscribe(l.onNotification); err != nil {
		return fmt.Errorf("ble: subscribe to presses: %w", err)
	}

	l.mu.Lock()
	l.conn = conn
	l.connected = true
	l.mu.Unlock()

	conn.OnDisconnect(func() {
		slog.Warn("[BLE] button disconnected, reconnecting...")
		l.setDisconnected()
		go l.reconnectLoop()
	})
	return nil
}

// setDisconnected marks the listener as disconnected. The press counter
// survives reconnects: the firmware's counter is monotonic per pairing,
// not per connection.
func (l *Listener) setDisconnected() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = false
	l.conn = nil
}

// onNotification decrypts one press packet and emits it if fresh.
func (l *Listener) onNotification(data []byte) {
	counter, event, err := openPress(l.key, data)
	if err != nil {
		slog.Warn("[BLE] dropping undecryptable press packet", "error", err)
		return
	}
	if event != EventPress {
		slog.Warn("[BLE] dropping unknown button event", "event", event)
		return
	}

	l.mu.Lock()
	if l.hasCounter && counter <= l.lastCounter {
		l.mu.Unlock()
		slog.Warn("[BLE] dropping replayed press", "counter", counter, "last", l.lastCounter)
		return
	}
	l.lastCounter = counter
	l.hasCounter = true
	l.mu.Unlock()

	select {
	case l.ch <- Press{Counter: counter, At: time.Now()}:
	default: // don't block the BLE notification callback
	}
}

// reconnectLoop attempts to reconnect with exponential backoff.
func (l *Listener) reconnectLoop() {
	for attempt := 0; ; attempt++ {
		l.mu.Lock()
		closed := l.closed
		l.mu.Unlock()
		if closed {
			return
		}

		// On the first attempt, try immediately; subsequent attempts use backoff.
		if attempt > 0 {
			delay := backoffDelay(attempt-1, l.opts.ReconnectMax)
			slog.Info("[BLE] reconnect backoff", "attempt", attempt+1, "delay", delay)
			time.Sleep(delay)
		}

		ctx := context.Background()
		conn, err := l.adapter.Connect(ctx, l.deviceMAC)
		if err != nil {
			slog.Warn("[BLE] reconnect failed", "error", err, "attempt", attempt+1)
			continue
		}

		if err := l.setConnected(conn); err != nil {
			slog.Warn("[BLE] reconnect setup failed", "error", err, "attempt", attempt+1)
			continue
		}

		slog.Info("[BLE] button reconnected", "mac", l.deviceMAC)
		return
	}
}

// Close disconnects from the button and stops reconnecting.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.conn != nil {
		l.conn.Disconnect()
	}
	l.connected = false
	close(l.ch)
	return nil
}

// backoffDelay returns the reconnection delay for attempt n, capped at maxSeconds.
func backoffDelay(attempt int, maxSeconds int) time.Duration {
	delay := time.Duration(1<<uint(attempt)) * time.Second
	max := time.Duration(maxSeconds) * time.Second
	if delay > max {
		return max
	}
	return delay
}
