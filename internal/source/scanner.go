// Package source scans the source tree for files referenced by the manifest.
package source

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Match is a source file matched by a collection pattern.
type Match struct {
	// Path is the source-relative path, always with forward slashes.
	Path string

	// Captures holds the values of named capture groups from the pattern.
	Captures map[string]string
}

// Scanner walks a source base once and matches patterns against the cached
// file list. The target directory and dot-directories are never scanned.
type Scanner struct {
	sourceBase string
	skipDirs   map[string]bool
	files      []string
	scanned    bool
}

// NewScanner creates a scanner rooted at sourceBase. Directories listed in
// skip (absolute paths) are excluded, typically the target base when it lives
// inside the source tree.
func NewScanner(sourceBase string, skip ...string) *Scanner {
	skipSet := make(map[string]bool, len(skip))
	for _, dir := range skip {
		skipSet[filepath.Clean(dir)] = true
	}
	return &Scanner{sourceBase: sourceBase, skipDirs: skipSet}
}

// Files returns the cached, sorted list of source-relative file paths,
// walking the tree on first use.
func (s *Scanner) Files() ([]string, error) {
	if s.scanned {
		return s.files, nil
	}

	var files []string
	err := filepath.WalkDir(s.sourceBase, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == s.sourceBase {
				return nil
			}
			if s.skipDirs[filepath.Clean(path)] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(s.sourceBase, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan source tree %s: %w", s.sourceBase, err)
	}

	sort.Strings(files)
	s.files = files
	s.scanned = true
	return s.files, nil
}

// FindPattern returns all files matching the regular expression, with named
// capture groups exposed per match. Every match additionally carries a "path"
// capture holding the full relative path.
func (s *Scanner) FindPattern(pattern string) ([]Match, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	files, err := s.Files()
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, f := range files {
		sub := re.FindStringSubmatch(f)
		if sub == nil {
			continue
		}
		captures := map[string]string{"path": f}
		for i, name := range re.SubexpNames() {
			if name != "" {
				captures[name] = sub[i]
			}
		}
		matches = append(matches, Match{Path: f, Captures: captures})
	}
	return matches, nil
}

// Abs resolves a source-relative path back to its absolute location.
func (s *Scanner) Abs(rel string) string {
	return filepath.Join(s.sourceBase, filepath.FromSlash(rel))
}
