// Package models fetches whisper ggml model files from HuggingFace into
// the local models directory.
package models

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"voxkey/internal/config"
)

const whisperBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// catalog maps a short model name to its ggml file and approximate size,
// for the interactive picker.
var catalog = map[string]struct {
	file   string
	sizeMB int
}{
	"tiny.en":  {"ggml-tiny.en.bin", 75},
	"base.en":  {"ggml-base.en.bin", 142},
	"small.en": {"ggml-small.en.bin", 466},
}

// DefaultModel is downloaded when no explicit choice is made.
const DefaultModel = "base.en"

// Names returns the catalog model names in a stable order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Path returns where the named model lives (or would live) on disk.
func Path(name string) (string, error) {
	entry, ok := catalog[name]
	if !ok {
		return "", fmt.Errorf("models: unknown model %q (have %v)", name, Names())
	}
	return filepath.Join(config.DefaultModelsDir(), entry.file), nil
}

// Download fetches the named whisper model into the default models
// directory, skipping the download if the file already exists. Progress
// is printed to stdout.
func Download(name string) (string, error) {
	entry, ok := catalog[name]
	if !ok {
		return "", fmt.Errorf("models: unknown model %q (have %v)", name, Names())
	}

	modelsDir := config.DefaultModelsDir()
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return "", fmt.Errorf("models: creating models dir: %w", err)
	}

	destPath := filepath.Join(modelsDir, entry.file)

	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		fmt.Printf("  Model already exists: %s (%.0f MB)\n", destPath, float64(info.Size())/(1024*1024))
		return destPath, nil
	}

	url := whisperBaseURL + entry.file
	fmt.Printf("  Downloading whisper model from HuggingFace...\n")
	fmt.Printf("  URL: %s\n", url)
	fmt.Printf("  Destination: %s\n", destPath)

	resp, err := http.Get(url) //nolint:gosec // URL is built from a compile-time constant
	if err != nil {
		return "", fmt.Errorf("models: downloading %s: %w", entry.file, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("models: download failed: HTTP %d", resp.StatusCode)
	}

	// Write to temp file first, then rename (atomic)
	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("models: creating temp file: %w", err)
	}

	pr := &progressWriter{
		writer: f,
		total:  resp.ContentLength,
		label:  entry.file,
	}

	written, err := io.Copy(pr, resp.Body)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("models: writing model file: %w", err)
	}

	fmt.Printf("\n  Downloaded %.1f MB\n", float64(written)/(1024*1024))

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("models: moving model file: %w", err)
	}

	return destPath, nil
}

// progressWriter wraps an io.Writer and prints download progress.
type progressWriter struct {
	writer  io.Writer
	total   int64
	written int64
	label   string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		pct := float64(pw.written) / float64(pw.total) * 100
		fmt.Printf("\r  %s: %.1f MB / %.1f MB (%.0f%%)",
			pw.label,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024),
			pct)
	} else {
		fmt.Printf("\r  %s: %.1f MB downloaded",
			pw.label,
			float64(pw.written)/(1024*1024))
	}
	return n, err
}

// RunInteractiveDownload prompts for a model choice and downloads it.
func RunInteractiveDownload() error {
	fmt.Println("=== Model Download ===")
	fmt.Println()
	fmt.Printf("Models will be downloaded to: %s\n", config.DefaultModelsDir())
	fmt.Println()
	fmt.Println("Which whisper model would you like?")
	names := Names()
	for i, name := range names {
		marker := " "
		if name == DefaultModel {
			marker = "*"
		}
		fmt.Printf("  [%d]%s %s (~%d MB)\n", i+1, marker, name, catalog[name].sizeMB)
	}
	fmt.Println()
	fmt.Printf("Choice [1-%d]: ", len(names))

	var choice int
	fmt.Scanln(&choice)
	fmt.Println()

	if choice < 1 || choice > len(names) {
		return fmt.Errorf("models: invalid choice %d (expected 1-%d)", choice, len(names))
	}

	path, err := Download(names[choice-1])
	if err != nil {
		return err
	}
	fmt.Printf("Model ready: %s\n", path)
	fmt.Println("Set backend.model_path in your config to use it.")
	return nil
}
