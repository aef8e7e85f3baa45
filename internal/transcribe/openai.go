package transcribe

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIBackend transcribes through the hosted OpenAI audio API.
type OpenAIBackend struct {
	client openai.Client
	model  string
	hasKey bool
}

// NewOpenAIBackend creates a backend using the given API key and model
// (e.g. "whisper-1").
func NewOpenAIBackend(apiKey, model string) *OpenAIBackend {
	return &OpenAIBackend{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		hasKey: strings.TrimSpace(apiKey) != "",
	}
}

// Transcribe uploads the WAV at path. The API returns only text, so the
// duration is probed from the local file.
func (b *OpenAIBackend) Transcribe(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("transcribe: open audio %q: %w", path, err)
	}
	defer f.Close()

	resp, err := b.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(b.model),
	})
	if err != nil {
		return Result{}, fmt.Errorf("transcribe: openai request: %w", err)
	}

	_, duration, err := loadWAVSamples(path)
	if err != nil {
		// Text is already in hand; a duration probe failure is not worth
		// failing the session over.
		duration = 0
	}

	return Result{
		Text:     resp.Text,
		Duration: duration,
	}, nil
}

// Available reports whether a credential is configured. No network probe:
// the first real request surfaces auth or connectivity problems.
func (b *OpenAIBackend) Available() bool {
	return b.hasKey
}

// Info returns provider metadata.
func (b *OpenAIBackend) Info() ProviderInfo {
	return ProviderInfo{Name: "openai", RequiresNetwork: true, RequiresCredentials: true}
}

// Close is a no-op.
func (b *OpenAIBackend) Close() error { return nil }
