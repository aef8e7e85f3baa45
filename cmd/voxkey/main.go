package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"voxkey/internal/audio"
	"voxkey/internal/ble"
	"voxkey/internal/config"
	"voxkey/internal/deliver"
	"voxkey/internal/janitor"
	"voxkey/internal/models"
	"voxkey/internal/session"
	"voxkey/internal/transcribe"
	"voxkey/internal/trigger"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/voxkey/config.yaml)")
	downloadModel := flag.Bool("download-model", false, "download a whisper model and exit")
	flag.Parse()

	if *downloadModel {
		if err := models.RunInteractiveDownload(); err != nil {
			log.Fatalf("model download: %v", err)
		}
		return
	}

	cfg, cfgPath, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	setupLogging(cfg.LogLevel)
	printBanner(cfg)

	// Transcription backend
	slog.Info("initializing backend", "provider", cfg.Backend.Provider)
	backendStart := time.Now()
	selector, err := transcribe.NewSelector(&cfg.Backend, nil)
	if err != nil {
		log.Fatalf("backend: %v", err)
	}
	defer selector.Close()
	slog.Info("backend ready", "took", time.Since(backendStart).Round(time.Millisecond))

	// Microphone binding
	capture, err := audio.NewCapture(cfg.Audio.SampleRate, cfg.Audio.Channels)
	if err != nil {
		log.Fatalf("audio: %v\n\nEnsure microphone access is granted in System Settings > Privacy & Security > Microphone.", err)
	}
	defer capture.Close()

	requested := cfg.Audio.DeviceID
	actual, fellBack, err := capture.Open(requested)
	if err != nil {
		log.Fatalf("audio device: %v", err)
	}
	if fellBack {
		// Persist the device actually in use so the warning does not
		// repeat on every start.
		cfg.Audio.DeviceID = actual
		if err := cfg.Save(cfgPath); err != nil {
			slog.Warn("could not persist fallback device", "error", err)
		}
	}
	slog.Info("audio ready", "device", actual)

	// Temp recording cleanup
	jan := janitor.New(config.DefaultRecordingsDir(), cfg.Retention.Keep)
	if err := jan.Prune(); err != nil {
		slog.Warn("recording prune failed", "error", err)
	}

	dispatcher := deliver.NewDispatcher(cfg.Deliver.Method)
	slog.Info("delivery ready", "method", cfg.Deliver.Method)

	ctrl := session.NewController(capture, selector, dispatcher, jan, session.Options{
		TranscribeTimeout: time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
		FaultPause:        2 * time.Second,
	})
	capture.SetCaptureStartedFunc(ctrl.NoteCaptureStarted)
	if fellBack {
		ctrl.NoteDeviceFallback(requested, actual)
	}
	go logEvents(ctrl)

	// Trigger sources
	hk := trigger.NewHotkeyListener(cfg.Hotkey.Keys)
	go hk.Start()
	slog.Info("hotkey ready", "combo", strings.Join(cfg.Hotkey.Keys, "+"))

	var presses <-chan ble.Press
	if cfg.Button.Enabled {
		adapter := ble.NewCoreBluetoothAdapter()
		listener, err := ble.NewListener(adapter, cfg.Button.DeviceMAC, cfg.Button.ButtonKey(), ble.DefaultListenerOptions())
		if err != nil {
			log.Fatalf("button: %v", err)
		}
		defer listener.Close()
		if err := listener.Connect(); err != nil {
			// The button is optional; the hotkey still works without it.
			slog.Warn("button connect failed, continuing without it", "error", err)
		} else {
			presses = listener.Presses()
			slog.Info("button ready", "mac", cfg.Button.DeviceMAC)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	slog.Info("ready", "hotkey", strings.Join(cfg.Hotkey.Keys, "+"))

	for {
		select {
		case ev, ok := <-hk.Events():
			if !ok {
				slog.Info("hotkey listener stopped")
				return
			}
			ctrl.HandleTrigger(ev)

		case press, ok := <-presses:
			if !ok {
				presses = nil
				continue
			}
			ctrl.HandleTrigger(trigger.Event{Source: trigger.SourceButton, At: press.At})

		case sig := <-sigCh:
			slog.Info("shutting down", "signal", sig.String())
			if capture.IsRecording() {
				capture.Stop()
			}
			capture.Close()
			selector.Close()
			// Exit directly to avoid gohook's C cleanup crash.
			// The OS reclaims the event hook on process exit.
			os.Exit(0)
		}
	}
}

// logEvents turns controller lifecycle events into log lines.
func logEvents(ctrl *session.Controller) {
	for ev := range ctrl.Events() {
		switch ev.Kind {
		case session.EventCaptureStarted:
			slog.Debug("capture started")
		case session.EventDeviceFallback:
			slog.Warn("capture device fallback", "requested", ev.Requested, "actual", ev.Actual)
		case session.EventBackendSwapFailed:
			slog.Error("backend swap failed, previous backend still active", "error", ev.Err)
		case session.EventSessionDone:
			switch ev.Outcome {
			case session.OutcomeDelivered:
				slog.Info("session delivered", "source", ev.Source, "chars", len(ev.Text), "audio", ev.Audio)
			case session.OutcomeNoSpeech:
				slog.Info("session ended, no speech", "source", ev.Source, "audio", ev.Audio)
			case session.OutcomeFailed:
				slog.Error("session failed", "source", ev.Source, "error", ev.Err)
			}
		}
	}
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults. It also returns
// the path future Save calls should write to.
func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, "", fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, defaultPath, nil
	}

	log.Println("No config file found, using defaults")
	return config.Default(), defaultPath, nil
}

// setupLogging installs a slog text handler at the configured level.
func setupLogging(level string) {
	var lv slog.Level
	switch level {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv})))
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== voxkey ===")
	fmt.Printf("  Backend: %s\n", cfg.Backend.Provider)
	fmt.Printf("  Hotkey:  %s\n", strings.Join(cfg.Hotkey.Keys, "+"))
	if cfg.Button.Enabled {
		fmt.Printf("  Button:  %s\n", cfg.Button.DeviceMAC)
	}
	fmt.Printf("  Audio:   %dHz, %dch\n", cfg.Audio.SampleRate, cfg.Audio.Channels)
	fmt.Printf("  Deliver: %s\n", cfg.Deliver.Method)
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("==============")
}
