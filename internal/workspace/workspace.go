// Package workspace manages the temporary directory used for theme clones
// and other scratch files during a build.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Workspace is an ephemeral, timestamped scratch directory.
type Workspace struct {
	baseDir string
	dir     string
}

// New creates a workspace manager rooted at baseDir, defaulting to the
// system temp directory.
func New(baseDir string) *Workspace {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Workspace{baseDir: baseDir}
}

// Create makes the workspace directory.
func (w *Workspace) Create() error {
	stamp := time.Now().Format("20060102-150405")
	dir := filepath.Join(w.baseDir, fmt.Sprintf("webgen-%s", stamp))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create workspace directory: %w", err)
	}
	w.dir = dir
	slog.Debug("Created workspace", "path", dir)
	return nil
}

// Path returns the workspace directory, empty before Create.
func (w *Workspace) Path() string { return w.dir }

// Subdir creates and returns a subdirectory inside the workspace.
func (w *Workspace) Subdir(name string) (string, error) {
	if w.dir == "" {
		return "", fmt.Errorf("workspace not created")
	}
	sub := filepath.Join(w.dir, name)
	if err := os.MkdirAll(sub, 0o750); err != nil {
		return "", fmt.Errorf("create workspace subdirectory: %w", err)
	}
	return sub, nil
}

// Cleanup removes the workspace directory.
func (w *Workspace) Cleanup() error {
	if w.dir == "" {
		return nil
	}
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("cleanup workspace: %w", err)
	}
	slog.Debug("Cleaned up workspace", "path", w.dir)
	w.dir = ""
	return nil
}
