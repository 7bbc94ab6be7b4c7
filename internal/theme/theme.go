// Package theme fetches remote template repositories referenced by the
// manifest.
package theme

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/webgen/internal/webfile"
)

// Fetch clones the theme repository into destDir and returns the directory
// its templates live in. A templates/ subdirectory is preferred; the repo
// root is used when there is none.
func Fetch(cfg *webfile.ThemeConfig, destDir string) (string, error) {
	if cfg == nil || cfg.Git == "" {
		return "", fmt.Errorf("theme repository url is required")
	}

	repoPath := filepath.Join(destDir, "theme")
	if err := os.RemoveAll(repoPath); err != nil {
		return "", fmt.Errorf("clear theme directory: %w", err)
	}

	opts := &git.CloneOptions{URL: cfg.Git}
	if cfg.Ref != "" {
		opts.ReferenceName = plumbing.ReferenceName("refs/heads/" + cfg.Ref)
		opts.SingleBranch = true
	}

	slog.Debug("Cloning theme", "url", cfg.Git, "ref", cfg.Ref, "path", repoPath)
	repo, err := git.PlainClone(repoPath, false, opts)
	if err != nil {
		return "", fmt.Errorf("clone theme %s: %w", cfg.Git, err)
	}
	if ref, headErr := repo.Head(); headErr == nil {
		slog.Info("Theme cloned", "url", cfg.Git, "commit", ref.Hash().String()[:8])
	} else {
		slog.Info("Theme cloned", "url", cfg.Git)
	}

	templatesDir := filepath.Join(repoPath, "templates")
	if st, err := os.Stat(templatesDir); err == nil && st.IsDir() {
		return templatesDir, nil
	}
	return repoPath, nil
}
