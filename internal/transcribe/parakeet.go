package transcribe

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ParakeetBackend talks to a self-hosted Parakeet transcription server.
// The server exposes POST /transcribe (multipart audio upload) and
// GET /health.
type ParakeetBackend struct {
	client  *resty.Client
	baseURL string
}

// parakeetResponse mirrors the JSON returned by POST /transcribe.
type parakeetResponse struct {
	Success       bool    `json:"success"`
	Text          string  `json:"text"`
	Language      string  `json:"language"`
	AudioDuration float64 `json:"audio_duration"`
}

// parakeetError mirrors the server's error body.
type parakeetError struct {
	Detail string `json:"detail"`
}

// NewParakeetBackend creates a client for the server at baseURL. token is
// optional and sent as a Bearer credential when set.
func NewParakeetBackend(baseURL, token string, timeout time.Duration) *ParakeetBackend {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	if token != "" {
		client.SetAuthToken(token)
	}
	return &ParakeetBackend{client: client, baseURL: baseURL}
}

// Transcribe uploads the WAV at path and returns the server's result.
func (b *ParakeetBackend) Transcribe(ctx context.Context, path string) (Result, error) {
	var out parakeetResponse
	var errOut parakeetError

	resp, err := b.client.R().
		SetContext(ctx).
		SetFile("audio", path).
		SetResult(&out).
		SetError(&errOut).
		Post("/transcribe")
	if err != nil {
		return Result{}, fmt.Errorf("transcribe: parakeet request: %w", err)
	}

	if resp.IsError() {
		detail := errOut.Detail
		if detail == "" {
			detail = resp.Status()
		}
		return Result{}, fmt.Errorf("transcribe: parakeet server: %s", detail)
	}

	if !out.Success {
		return Result{}, fmt.Errorf("transcribe: parakeet server reported failure")
	}

	return Result{
		Text:     out.Text,
		Language: out.Language,
		Duration: time.Duration(out.AudioDuration * float64(time.Second)),
	}, nil
}

// Available reports whether the server's health endpoint answers. Bounded
// by a short timeout so a dead server cannot stall the caller.
func (b *ParakeetBackend) Available() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := b.client.R().
		SetContext(ctx).
		Get("/health")
	return err == nil && resp.IsSuccess()
}

// Info returns provider metadata.
func (b *ParakeetBackend) Info() ProviderInfo {
	return ProviderInfo{Name: "parakeet", RequiresNetwork: true}
}

// Close is a no-op; the HTTP client holds no persistent resources.
func (b *ParakeetBackend) Close() error { return nil }
