package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"
)

func TestSinkWritesDecodableWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")

	s, err := newSink(path, 16000, 1)
	if err != nil {
		t.Fatalf("newSink() error = %v", err)
	}

	// Half a second of a 440 Hz tone.
	samples := make([]float32, 8000)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	if err := s.writeFloat32(samples); err != nil {
		t.Fatalf("writeFloat32() error = %v", err)
	}
	if err := s.close(); err != nil {
		t.Fatalf("close() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open written WAV: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode written WAV: %v", err)
	}
	if got := len(buf.Data); got != 8000 {
		t.Errorf("decoded %d samples, want 8000", got)
	}
	if dec.SampleRate != 16000 {
		t.Errorf("decoded sample rate = %d, want 16000", dec.SampleRate)
	}
	if dec.NumChans != 1 {
		t.Errorf("decoded channels = %d, want 1", dec.NumChans)
	}
}

// A closed sink must be complete on disk: the file size must not change
// afterward, and the reported duration must match the written frames.
// This is the flush guarantee the controller relies on before handing the
// file to a backend.
func TestSinkCloseIsFinal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")

	s, err := newSink(path, 16000, 1)
	if err != nil {
		t.Fatalf("newSink() error = %v", err)
	}
	if err := s.writeFloat32(make([]float32, 16000)); err != nil {
		t.Fatalf("writeFloat32() error = %v", err)
	}
	if err := s.close(); err != nil {
		t.Fatalf("close() error = %v", err)
	}

	info1, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	// Late writes (callback racing teardown) are dropped, not appended.
	if err := s.writeFloat32(make([]float32, 1000)); err != nil {
		t.Errorf("writeFloat32() after close error = %v, want nil (dropped)", err)
	}

	info2, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info1.Size() != info2.Size() {
		t.Errorf("file size changed after close: %d -> %d", info1.Size(), info2.Size())
	}

	if got := s.duration(); got != time.Second {
		t.Errorf("duration() = %v, want 1s", got)
	}
}

func TestSinkCloseTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")

	s, err := newSink(path, 16000, 1)
	if err != nil {
		t.Fatalf("newSink() error = %v", err)
	}
	if err := s.close(); err != nil {
		t.Fatalf("close() error = %v", err)
	}
	if err := s.close(); err != nil {
		t.Errorf("second close() error = %v, want nil", err)
	}
}

func TestClampSample(t *testing.T) {
	tests := []struct {
		in   float32
		want int
	}{
		{0, 0},
		{1.0, 32767},
		{-1.0, -32767},
		{2.5, 32767},
		{-3.0, -32767},
		{0.5, 16383},
	}
	for _, tt := range tests {
		if got := clampSample(tt.in); got != tt.want {
			t.Errorf("clampSample(%f) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
