package audio

import (
	"fmt"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// sink writes captured float32 frames to a 16-bit PCM WAV file. Close
// finalizes the RIFF header and fsyncs before returning, so a closed sink
// is guaranteed to be fully on disk.
type sink struct {
	sampleRate uint32
	channels   uint32

	mu     sync.Mutex
	f      *os.File
	enc    *wav.Encoder
	frames int
	closed bool
}

func newSink(path string, sampleRate, channels uint32) (*sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("audio: create sink file: %w", err)
	}
	// Format 1 = uncompressed PCM.
	enc := wav.NewEncoder(f, int(sampleRate), 16, int(channels), 1)
	return &sink{
		sampleRate: sampleRate,
		channels:   channels,
		f:          f,
		enc:        enc,
	}, nil
}

// writeFloat32 appends samples, converting to 16-bit integers. Writes
// after close are dropped: the capture callback may race the final
// device teardown by a buffer or two.
func (s *sink) writeFloat32(samples []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = clampSample(v)
	}

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: int(s.channels),
			SampleRate:  int(s.sampleRate),
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := s.enc.Write(buf); err != nil {
		return fmt.Errorf("audio: write sink: %w", err)
	}
	s.frames += len(samples) / int(s.channels)
	return nil
}

// close flushes the encoder, rewrites the RIFF sizes, and fsyncs the file.
// After close returns, the WAV is complete and safe to hand to a backend.
func (s *sink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.enc.Close(); err != nil {
		s.f.Close()
		return fmt.Errorf("audio: finalize sink: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		s.f.Close()
		return fmt.Errorf("audio: sync sink: %w", err)
	}
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("audio: close sink file: %w", err)
	}
	return nil
}

// duration returns the captured audio length based on written frames.
func (s *sink) duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sampleRate == 0 {
		return 0
	}
	return time.Duration(s.frames) * time.Second / time.Duration(s.sampleRate)
}

// clampSample converts a float32 sample in [-1, 1] to a 16-bit integer,
// clamping out-of-range values instead of wrapping.
func clampSample(v float32) int {
	if v > 1.0 {
		v = 1.0
	}
	if v < -1.0 {
		v = -1.0
	}
	return int(v * 32767)
}
