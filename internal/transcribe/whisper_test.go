package transcribe

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writePCMWAV writes a 16-bit mono WAV of the given samples.
func writePCMWAV(t *testing.T, rate int, samples []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func TestLoadWAVSamples(t *testing.T) {
	const rate = 16000
	samples := make([]int, rate/2) // half a second
	for i := range samples {
		samples[i] = int(16000 * math.Sin(2*math.Pi*440*float64(i)/rate))
	}
	path := writePCMWAV(t, rate, samples)

	got, duration, err := loadWAVSamples(path)
	if err != nil {
		t.Fatalf("loadWAVSamples() error = %v", err)
	}
	if len(got) != len(samples) {
		t.Fatalf("got %d samples, want %d", len(got), len(samples))
	}
	if duration != 500*time.Millisecond {
		t.Errorf("duration = %v, want %v", duration, 500*time.Millisecond)
	}
	for i, s := range got {
		if s < -1.0 || s > 1.0 {
			t.Fatalf("sample %d = %f outside [-1, 1]", i, s)
		}
	}
	// Spot-check normalization of the first nonzero sample.
	want := float32(samples[1]) / 32768.0
	if got[1] != want {
		t.Errorf("sample 1 = %f, want %f", got[1], want)
	}
}

func TestLoadWAVSamplesMissingFile(t *testing.T) {
	if _, _, err := loadWAVSamples(filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Fatal("loadWAVSamples() on missing file should return error")
	}
}

func TestNewWhisperBackendMissingModel(t *testing.T) {
	if _, err := NewWhisperBackend(filepath.Join(t.TempDir(), "no-model.bin")); err == nil {
		t.Fatal("NewWhisperBackend() with missing model should return error")
	}
}
