package ble

import (
	"testing"
	"time"
)

func waitForPress(t *testing.T, ch <-chan Press) Press {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for press")
		return Press{}
	}
}

func assertNoPress(t *testing.T, ch <-chan Press) {
	t.Helper()
	select {
	case p := <-ch:
		t.Fatalf("unexpected press: %+v", p)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNewListenerRejectsBadKey(t *testing.T) {
	if _, err := NewListener(newMockAdapter(nil), "AA:BB", make([]byte, 16), DefaultListenerOptions()); err == nil {
		t.Fatal("NewListener() should reject a non-32-byte key")
	}
}

func TestListenerEmitsPresses(t *testing.T) {
	key := testKey()
	adapter := newMockAdapter(nil)

	l, err := NewListener(adapter, "AA:BB", key, DefaultListenerOptions())
	if err != nil {
		t.Fatalf("NewListener() error = %v", err)
	}
	defer l.Close()

	if err := l.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	packet, err := sealPress(key, 1, EventPress)
	if err != nil {
		t.Fatalf("sealPress() error = %v", err)
	}
	adapter.latestConnection().pressChar.SimulateNotification(packet)

	p := waitForPress(t, l.Presses())
	if p.Counter != 1 {
		t.Errorf("press counter = %d, want 1", p.Counter)
	}
}

func TestListenerDropsReplayedPress(t *testing.T) {
	key := testKey()
	adapter := newMockAdapter(nil)

	l, err := NewListener(adapter, "AA:BB", key, DefaultListenerOptions())
	if err != nil {
		t.Fatalf("NewListener() error = %v", err)
	}
	defer l.Close()

	if err := l.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	conn := adapter.latestConnection()

	first, _ := sealPress(key, 5, EventPress)
	conn.pressChar.SimulateNotification(first)
	waitForPress(t, l.Presses())

	// Re-delivering the same counter must not toggle anything.
	replay, _ := sealPress(key, 5, EventPress)
	conn.pressChar.SimulateNotification(replay)
	assertNoPress(t, l.Presses())

	stale, _ := sealPress(key, 3, EventPress)
	conn.pressChar.SimulateNotification(stale)
	assertNoPress(t, l.Presses())

	next, _ := sealPress(key, 6, EventPress)
	conn.pressChar.SimulateNotification(next)
	if p := waitForPress(t, l.Presses()); p.Counter != 6 {
		t.Errorf("press counter = %d, want 6", p.Counter)
	}
}

func TestListenerDropsGarbagePackets(t *testing.T) {
	key := testKey()
	adapter := newMockAdapter(nil)

	l, err := NewListener(adapter, "AA:BB", key, DefaultListenerOptions())
	if err != nil {
		t.Fatalf("NewListener() error = %v", err)
	}
	defer l.Close()

	if err := l.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	adapter.latestConnection().pressChar.SimulateNotification([]byte("not a packet"))
	assertNoPress(t, l.Presses())
}

func TestListenerReconnects(t *testing.T) {
	key := testKey()
	adapter := newMockAdapter(nil)

	reconnected := make(chan *mockConnection, 4)
	adapter.onConnect = func(c *mockConnection) {
		reconnected <- c
	}

	l, err := NewListener(adapter, "AA:BB", key, DefaultListenerOptions())
	if err != nil {
		t.Fatalf("NewListener() error = %v", err)
	}
	defer l.Close()

	if err := l.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	first := <-reconnected

	first.SimulateDisconnect()

	var second *mockConnection
	select {
	case second = <-reconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not reconnect after disconnect")
	}

	// Presses keep flowing on the new connection, and the replay counter
	// survives the reconnect.
	packet, _ := sealPress(key, 9, EventPress)
	second.pressChar.SimulateNotification(packet)
	if p := waitForPress(t, l.Presses()); p.Counter != 9 {
		t.Errorf("press counter = %d, want 9", p.Counter)
	}
}
