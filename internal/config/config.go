package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Audio     AudioConfig     `yaml:"audio"`
	Hotkey    HotkeyConfig    `yaml:"hotkey"`
	Button    ButtonConfig    `yaml:"button"`
	Deliver   DeliverConfig   `yaml:"deliver"`
	Retention RetentionConfig `yaml:"retention"`
	LogLevel  string          `yaml:"log_level"`
}

// BackendConfig selects and parameterizes the transcription backend.
type BackendConfig struct {
	Provider string `yaml:"provider"` // "whisper", "parakeet", or "openai"

	// whisper (local model)
	ModelPath string `yaml:"model_path"`

	// parakeet (self-hosted HTTP server)
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`

	// openai (hosted API)
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`

	// TimeoutSeconds bounds a single transcription call. 0 uses the default.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// AudioConfig holds audio capture settings.
type AudioConfig struct {
	// DeviceID is the capture device name to bind. Empty means the first
	// enumerated device. It is rewritten (and saved) after a device
	// fallback so the fallback warning does not repeat on every run.
	DeviceID   string `yaml:"device_id"`
	SampleRate uint32 `yaml:"sample_rate"`
	Channels   uint32 `yaml:"channels"`
}

// HotkeyConfig holds the global toggle hotkey.
type HotkeyConfig struct {
	Keys []string `yaml:"keys"`
}

// ButtonConfig holds the paired BLE hardware button, if any.
type ButtonConfig struct {
	Enabled   bool   `yaml:"enabled"`
	DeviceMAC string `yaml:"device_mac"`
	Key       string `yaml:"key"` // hex-encoded 32-byte session key from pairing
}

// DeliverConfig holds text delivery settings.
type DeliverConfig struct {
	Method string `yaml:"method"` // "type" or "paste"; the other is the fallback
}

// RetentionConfig controls the startup sweep of old recordings.
type RetentionConfig struct {
	Keep int `yaml:"keep"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "voxkey")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultModelsDir returns the directory where local models are stored.
func DefaultModelsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "voxkey", "models")
}

// DefaultRecordingsDir returns the directory for per-session temp recordings.
func DefaultRecordingsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return filepath.Join(home, ".cache", "voxkey", "recordings")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Provider:       "whisper",
			ModelPath:      filepath.Join(DefaultModelsDir(), "ggml-base.en.bin"),
			Model:          "whisper-1",
			TimeoutSeconds: 120,
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
		},
		Hotkey: HotkeyConfig{
			Keys: []string{"ctrl", "shift", "d"},
		},
		Deliver: DeliverConfig{
			Method: "type",
		},
		Retention: RetentionConfig{
			Keep: 10,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in model_path is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Backend.ModelPath = expandTilde(cfg.Backend.ModelPath)

	return cfg, nil
}

// Save writes the config back to the given path, creating parent
// directories as needed. Used to persist the post-fallback device id
// and the pairing key.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	// Write to temp file first, then rename (atomic)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("moving config file: %w", err)
	}
	return nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if err := c.Backend.Validate(); err != nil {
		return err
	}

	if c.Audio.SampleRate == 0 {
		return fmt.Errorf("audio.sample_rate must be > 0")
	}

	if c.Audio.Channels == 0 {
		return fmt.Errorf("audio.channels must be > 0")
	}

	if len(c.Hotkey.Keys) == 0 {
		return fmt.Errorf("hotkey.keys must not be empty")
	}

	if c.Button.Enabled {
		if c.Button.DeviceMAC == "" {
			return fmt.Errorf("button.device_mac must be set when button.enabled is true (run voxkey-pair)")
		}
		key, err := hex.DecodeString(c.Button.Key)
		if err != nil || len(key) != 32 {
			return fmt.Errorf("button.key must be 64 hex characters (run voxkey-pair)")
		}
	}

	switch c.Deliver.Method {
	case "type", "paste":
	default:
		return fmt.Errorf("deliver.method must be \"type\" or \"paste\", got %q", c.Deliver.Method)
	}

	if c.Retention.Keep < 0 {
		return fmt.Errorf("retention.keep must be >= 0")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// Validate checks the backend selection for shape errors only: file
// presence for local models, URL and credential shape for remote
// providers. It never performs a network probe.
func (b *BackendConfig) Validate() error {
	switch b.Provider {
	case "whisper", "":
		if b.ModelPath == "" {
			return fmt.Errorf("backend.model_path must not be empty")
		}
		info, err := os.Stat(expandTilde(b.ModelPath))
		if err != nil {
			return fmt.Errorf("backend.model_path: %w (run 'voxkey -download-model')", err)
		}
		if info.Size() == 0 {
			return fmt.Errorf("backend.model_path %q is empty (run 'voxkey -download-model')", b.ModelPath)
		}
	case "parakeet":
		if b.BaseURL == "" {
			return fmt.Errorf("backend.base_url must be set for the parakeet provider")
		}
		u, err := url.Parse(b.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("backend.base_url %q is not a valid URL", b.BaseURL)
		}
	case "openai":
		if strings.TrimSpace(b.APIKey) == "" {
			return fmt.Errorf("backend.api_key must be set for the openai provider")
		}
		if b.Model == "" {
			return fmt.Errorf("backend.model must be set for the openai provider")
		}
	default:
		return fmt.Errorf("backend.provider must be whisper, parakeet, or openai, got %q", b.Provider)
	}

	if b.TimeoutSeconds < 0 {
		return fmt.Errorf("backend.timeout_seconds must be >= 0")
	}
	return nil
}

// ButtonKey decodes the hex pairing key. Returns nil if the key is unset
// or malformed; Validate reports that case with a proper error.
func (c *ButtonConfig) ButtonKey() []byte {
	key, err := hex.DecodeString(c.Key)
	if err != nil {
		return nil
	}
	return key
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
