package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Backend.Provider != "whisper" {
		t.Errorf("Backend.Provider = %q, want %q", cfg.Backend.Provider, "whisper")
	}
	if cfg.Backend.ModelPath == "" {
		t.Error("Backend.ModelPath should not be empty")
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("Audio.SampleRate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 1 {
		t.Errorf("Audio.Channels = %d, want 1", cfg.Audio.Channels)
	}
	if len(cfg.Hotkey.Keys) != 3 {
		t.Errorf("Hotkey.Keys length = %d, want 3", len(cfg.Hotkey.Keys))
	}
	if cfg.Deliver.Method != "type" {
		t.Errorf("Deliver.Method = %q, want %q", cfg.Deliver.Method, "type")
	}
	if cfg.Retention.Keep != 10 {
		t.Errorf("Retention.Keep = %d, want 10", cfg.Retention.Keep)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
backend:
  provider: parakeet
  base_url: http://127.0.0.1:8000
  token: secret
  timeout_seconds: 30
audio:
  device_id: "USB Microphone"
  sample_rate: 44100
  channels: 2
hotkey:
  keys: ["alt", "d"]
deliver:
  method: paste
retention:
  keep: 3
log_level: debug
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend.Provider != "parakeet" {
		t.Errorf("Backend.Provider = %q, want %q", cfg.Backend.Provider, "parakeet")
	}
	if cfg.Backend.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("Backend.BaseURL = %q, want %q", cfg.Backend.BaseURL, "http://127.0.0.1:8000")
	}
	if cfg.Backend.TimeoutSeconds != 30 {
		t.Errorf("Backend.TimeoutSeconds = %d, want 30", cfg.Backend.TimeoutSeconds)
	}
	if cfg.Audio.DeviceID != "USB Microphone" {
		t.Errorf("Audio.DeviceID = %q, want %q", cfg.Audio.DeviceID, "USB Microphone")
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("Audio.SampleRate = %d, want 44100", cfg.Audio.SampleRate)
	}
	if len(cfg.Hotkey.Keys) != 2 || cfg.Hotkey.Keys[0] != "alt" || cfg.Hotkey.Keys[1] != "d" {
		t.Errorf("Hotkey.Keys = %v, want [alt d]", cfg.Hotkey.Keys)
	}
	if cfg.Deliver.Method != "paste" {
		t.Errorf("Deliver.Method = %q, want %q", cfg.Deliver.Method, "paste")
	}
	if cfg.Retention.Keep != 3 {
		t.Errorf("Retention.Keep = %d, want 3", cfg.Retention.Keep)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	yamlContent := `
backend:
  model_path: ~/models/test.bin
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	expected := filepath.Join(home, "models/test.bin")
	if cfg.Backend.ModelPath != expected {
		t.Errorf("Backend.ModelPath = %q, want %q", cfg.Backend.ModelPath, expected)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "sub", "config.yaml")

	cfg := Default()
	cfg.Audio.DeviceID = "Built-in Microphone"
	cfg.Retention.Keep = 7

	if err := cfg.Save(cfgPath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() after Save() error = %v", err)
	}
	if loaded.Audio.DeviceID != "Built-in Microphone" {
		t.Errorf("Audio.DeviceID = %q, want %q", loaded.Audio.DeviceID, "Built-in Microphone")
	}
	if loaded.Retention.Keep != 7 {
		t.Errorf("Retention.Keep = %d, want 7", loaded.Retention.Keep)
	}
}

// TestSavePersistsFallbackDevice covers the startup flow: a device fallback
// rewrites audio.device_id and the saved config reflects the actual device.
func TestSavePersistsFallbackDevice(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")

	cfg := Default()
	cfg.Audio.DeviceID = "0"
	if err := cfg.Save(cfgPath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	cfg.Audio.DeviceID = "1" // post-fallback actual id
	if err := cfg.Save(cfgPath); err != nil {
		t.Fatalf("Save() after fallback error = %v", err)
	}

	loaded, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Audio.DeviceID != "1" {
		t.Errorf("Audio.DeviceID = %q, want %q after fallback persist", loaded.Audio.DeviceID, "1")
	}
}

func TestValidate(t *testing.T) {
	modelPath := writeFakeModel(t)

	valid := func() *Config {
		cfg := Default()
		cfg.Backend.ModelPath = modelPath
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"zero sample rate", func(c *Config) { c.Audio.SampleRate = 0 }, "sample_rate"},
		{"zero channels", func(c *Config) { c.Audio.Channels = 0 }, "channels"},
		{"no hotkey keys", func(c *Config) { c.Hotkey.Keys = nil }, "hotkey.keys"},
		{"bad deliver method", func(c *Config) { c.Deliver.Method = "telepathy" }, "deliver.method"},
		{"negative retention", func(c *Config) { c.Retention.Keep = -1 }, "retention.keep"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"button without mac", func(c *Config) { c.Button.Enabled = true }, "device_mac"},
		{"button with short key", func(c *Config) {
			c.Button.Enabled = true
			c.Button.DeviceMAC = "AA:BB"
			c.Button.Key = "abcd"
		}, "button.key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestBackendValidate(t *testing.T) {
	modelPath := writeFakeModel(t)

	tests := []struct {
		name    string
		cfg     BackendConfig
		wantErr string
	}{
		{"whisper ok", BackendConfig{Provider: "whisper", ModelPath: modelPath}, ""},
		{"whisper missing model", BackendConfig{Provider: "whisper", ModelPath: "/nonexistent/model.bin"}, "model_path"},
		{"whisper empty path", BackendConfig{Provider: "whisper"}, "model_path"},
		{"parakeet ok", BackendConfig{Provider: "parakeet", BaseURL: "http://localhost:8000"}, ""},
		{"parakeet no url", BackendConfig{Provider: "parakeet"}, "base_url"},
		{"parakeet bad url", BackendConfig{Provider: "parakeet", BaseURL: "not a url"}, "base_url"},
		{"openai ok", BackendConfig{Provider: "openai", APIKey: "sk-test", Model: "whisper-1"}, ""},
		{"openai no key", BackendConfig{Provider: "openai", Model: "whisper-1"}, "api_key"},
		{"openai no model", BackendConfig{Provider: "openai", APIKey: "sk-test"}, "model"},
		{"unknown provider", BackendConfig{Provider: "psychic"}, "provider"},
		{"negative timeout", BackendConfig{Provider: "parakeet", BaseURL: "http://x.test", TimeoutSeconds: -1}, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

// writeFakeModel creates a non-empty stand-in model file so whisper
// validation passes without a real 142 MB download.
func writeFakeModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ggml-base.en.bin")
	if err := os.WriteFile(path, []byte("ggml"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
