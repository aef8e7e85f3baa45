// Package janitor owns the per-session temp recordings directory: it hands
// out unique WAV paths, deletes them best-effort when a session ends, and
// prunes old recordings at startup.
package janitor

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
)

// Janitor manages temp recording files under a single directory.
type Janitor struct {
	dir  string
	keep int
}

// New creates a Janitor rooted at dir, retaining at most keep recordings
// across runs. keep = 0 removes everything on Prune.
func New(dir string, keep int) *Janitor {
	return &Janitor{dir: dir, keep: keep}
}

// NewPath returns a unique path for a session recording. The directory is
// created on first use.
func (j *Janitor) NewPath() (string, error) {
	if err := os.MkdirAll(j.dir, 0700); err != nil {
		return "", fmt.Errorf("janitor: create recordings dir: %w", err)
	}
	return filepath.Join(j.dir, uuid.NewString()+".wav"), nil
}

// Remove deletes a session recording. Failure is logged, never propagated:
// a stray temp file is not a fatal condition.
func (j *Janitor) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("janitor: failed to remove recording", "path", path, "error", err)
	}
}

// Prune deletes all but the newest keep recordings. It runs at startup
// only; per-session cleanup goes through Remove.
func (j *Janitor) Prune() error {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("janitor: read recordings dir: %w", err)
	}

	type rec struct {
		path string
		mod  int64
	}
	var recs []rec
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".wav" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		recs = append(recs, rec{filepath.Join(j.dir, e.Name()), info.ModTime().UnixNano()})
	}

	if len(recs) <= j.keep {
		return nil
	}

	// Newest first; everything past keep goes.
	sort.Slice(recs, func(i, k int) bool { return recs[i].mod > recs[k].mod })
	for _, r := range recs[j.keep:] {
		if err := os.Remove(r.path); err != nil {
			slog.Warn("janitor: failed to prune recording", "path", r.path, "error", err)
			continue
		}
		slog.Debug("janitor: pruned recording", "path", r.path)
	}
	return nil
}
