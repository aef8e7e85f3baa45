package transcribe

import (
	"fmt"
	"log/slog"
	"sync"

	"voxkey/internal/config"
)

// Handle wraps one constructed Backend with a reference count. A session
// snapshots a handle at start; a concurrent provider swap must not close
// the backend out from under that in-flight session, so the close is
// deferred until the last reference drops.
type Handle struct {
	backend Backend

	mu   sync.Mutex
	refs int
}

func newHandle(b Backend) *Handle {
	// The selector's own reference keeps the handle alive while current.
	return &Handle{backend: b, refs: 1}
}

// Backend returns the wrapped backend.
func (h *Handle) Backend() Backend { return h.backend }

// acquire adds a reference. Caller must pair it with Release.
func (h *Handle) acquire() {
	h.mu.Lock()
	h.refs++
	h.mu.Unlock()
}

// Release drops a reference and closes the backend when the last one
// goes.
func (h *Handle) Release() {
	h.mu.Lock()
	h.refs--
	closeNow := h.refs == 0
	h.mu.Unlock()

	if closeNow {
		if err := h.backend.Close(); err != nil {
			slog.Warn("transcribe: backend close failed", "provider", h.backend.Info().Name, "error", err)
		}
	}
}

// Factory constructs a Backend from its configuration.
type Factory func(*config.BackendConfig) (Backend, error)

// Selector owns the current backend handle and swaps it atomically when
// the configuration changes.
type Selector struct {
	factory Factory

	mu      sync.Mutex
	current *Handle
}

// NewSelector validates cfg, constructs the initial backend, and returns
// the selector holding it. A nil factory means New.
func NewSelector(cfg *config.BackendConfig, factory Factory) (*Selector, error) {
	if factory == nil {
		factory = New
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	backend, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("transcribe: construct %q backend: %w", cfg.Provider, err)
	}
	return &Selector{
		factory: factory,
		current: newHandle(backend),
	}, nil
}

// Acquire returns the current handle with a reference held for the
// caller. The caller must Release it when the session ends.
func (s *Selector) Acquire() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.acquire()
	return s.current
}

// Swap validates and constructs a backend for the new configuration, then
// atomically replaces the current handle. On any failure the previous
// handle stays current and usable: a failed provider switch never leaves
// the system without a working backend. The superseded handle is released
// and closes once no in-flight session references it.
func (s *Selector) Swap(cfg *config.BackendConfig) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	backend, err := s.factory(cfg)
	if err != nil {
		return fmt.Errorf("transcribe: construct %q backend: %w", cfg.Provider, err)
	}

	s.mu.Lock()
	old := s.current
	s.current = newHandle(backend)
	s.mu.Unlock()

	slog.Info("transcribe: backend swapped", "provider", backend.Info().Name)
	old.Release()
	return nil
}

// Close releases the selector's reference to the current handle.
func (s *Selector) Close() error {
	s.mu.Lock()
	current := s.current
	s.current = nil
	s.mu.Unlock()

	if current != nil {
		current.Release()
	}
	return nil
}
