// Package transcribe provides speech-to-text backends and the selector
// that validates, constructs, and hot-swaps them.
//
// Supported providers:
//   - whisper: local whisper.cpp model via Go bindings (default)
//   - parakeet: self-hosted Parakeet transcription server over HTTP
//   - openai: hosted transcription API
package transcribe

import (
	"context"
	"fmt"
	"time"

	"voxkey/internal/config"
)

// Result is one completed transcription.
type Result struct {
	Text     string
	Language string
	Duration time.Duration
}

// ProviderInfo describes a backend for display and logging.
type ProviderInfo struct {
	Name                string
	RequiresNetwork     bool
	RequiresCredentials bool
}

// Backend converts a recorded WAV file to text.
type Backend interface {
	// Transcribe processes the audio file at path. The context bounds the
	// call; on cancellation the session is treated as failed.
	Transcribe(ctx context.Context, path string) (Result, error)
	// Available reports whether the backend can currently serve requests.
	Available() bool
	// Info returns provider metadata.
	Info() ProviderInfo
	// Close releases backend resources.
	Close() error
}

// New creates a Backend based on the config provider setting.
func New(cfg *config.BackendConfig) (Backend, error) {
	switch cfg.Provider {
	case "parakeet":
		return NewParakeetBackend(cfg.BaseURL, cfg.Token, timeout(cfg)), nil
	case "openai":
		return NewOpenAIBackend(cfg.APIKey, cfg.Model), nil
	case "whisper", "":
		return NewWhisperBackend(cfg.ModelPath)
	default:
		return nil, fmt.Errorf("transcribe: unknown provider %q (supported: whisper, parakeet, openai)", cfg.Provider)
	}
}

// Validate checks a backend configuration without constructing it. Shape
// checks only; see config.BackendConfig.Validate.
func Validate(cfg *config.BackendConfig) error {
	return cfg.Validate()
}

func timeout(cfg *config.BackendConfig) time.Duration {
	if cfg.TimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(cfg.TimeoutSeconds) * time.Second
}
