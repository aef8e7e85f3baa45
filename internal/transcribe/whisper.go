package transcribe

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/go-audio/wav"
)

// WhisperBackend wraps a local whisper.cpp model for speech-to-text.
type WhisperBackend struct {
	model whisper.Model
}

// NewWhisperBackend loads a whisper model from the given path.
// The caller must call Close() when done.
func NewWhisperBackend(modelPath string) (*WhisperBackend, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load whisper model %q: %w", modelPath, err)
	}
	return &WhisperBackend{model: model}, nil
}

// Close releases the whisper model resources.
func (b *WhisperBackend) Close() error {
	if b.model != nil {
		return b.model.Close()
	}
	return nil
}

// Available reports whether the model is loaded.
func (b *WhisperBackend) Available() bool {
	return b.model != nil
}

// Info returns provider metadata.
func (b *WhisperBackend) Info() ProviderInfo {
	return ProviderInfo{Name: "whisper"}
}

// Transcribe decodes the WAV at path to mono 16kHz float32 samples and
// runs the whisper model over them. The bindings have no cancellation
// hook, so ctx is checked between the decode and inference steps.
func (b *WhisperBackend) Transcribe(ctx context.Context, path string) (Result, error) {
	samples, duration, err := loadWAVSamples(path)
	if err != nil {
		return Result{}, err
	}

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("transcribe: %w", err)
	}

	wctx, err := b.model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("transcribe: create context: %w", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return Result{}, fmt.Errorf("transcribe: process: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("transcribe: %w", err)
	}

	var segments []string
	for {
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("transcribe: next segment: %w", err)
		}
		segments = append(segments, seg.Text)
	}

	return Result{
		Text:     strings.TrimSpace(strings.Join(segments, " ")),
		Language: wctx.DetectedLanguage(),
		Duration: duration,
	}, nil
}

// loadWAVSamples reads a 16-bit PCM WAV file and returns mono float32
// samples normalized to [-1.0, 1.0], plus the audio duration.
func loadWAVSamples(path string) ([]float32, time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("transcribe: open audio %q: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("transcribe: decode WAV %q: %w", path, err)
	}

	samples := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = float32(s) / 32768.0
	}

	var duration time.Duration
	if rate := buf.Format.SampleRate * buf.Format.NumChannels; rate > 0 {
		duration = time.Duration(len(buf.Data)) * time.Second / time.Duration(rate)
	}
	return samples, duration, nil
}
