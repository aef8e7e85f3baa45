package audio

import (
	"testing"
)

func TestNewCaptureAndClose(t *testing.T) {
	c, err := NewCapture(16000, 1)
	if err != nil {
		t.Skipf("no audio backend available: %v", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}()

	if c.sampleRate != 16000 {
		t.Errorf("sampleRate = %d, want 16000", c.sampleRate)
	}
	if c.channels != 1 {
		t.Errorf("channels = %d, want 1", c.channels)
	}
}

func TestCaptureNotRecordingByDefault(t *testing.T) {
	c, err := NewCapture(16000, 1)
	if err != nil {
		t.Skipf("no audio backend available: %v", err)
	}
	defer c.Close()

	if c.IsRecording() {
		t.Error("IsRecording() should be false after creation")
	}
}

func TestStopWithoutStart(t *testing.T) {
	c, err := NewCapture(16000, 1)
	if err != nil {
		t.Skipf("no audio backend available: %v", err)
	}
	defer c.Close()

	if _, err := c.Stop(); err == nil {
		t.Error("Stop() without Start() should return an error")
	}
}

func TestStartWithoutOpen(t *testing.T) {
	c, err := NewCapture(16000, 1)
	if err != nil {
		t.Skipf("no audio backend available: %v", err)
	}
	defer c.Close()

	if err := c.Start(t.TempDir() + "/rec.wav"); err == nil {
		t.Error("Start() without Open() should return an error")
	}
}
