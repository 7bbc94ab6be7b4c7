package document

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// StaticFile is a source file that is copied or converted, never templated.
type StaticFile struct {
	// AbsPath is the absolute location of the source file.
	AbsPath string

	// Doc carries the fields used for target placeholder expansion.
	Doc *Document
}

// NewStaticFile wraps an absolute source path with its match fields.
func NewStaticFile(absPath string, doc *Document) *StaticFile {
	if doc == nil {
		doc = New()
	}
	return &StaticFile{AbsPath: absPath, Doc: doc}
}

// NeedsBuild reports whether targetPath is missing or older than the source.
func (s *StaticFile) NeedsBuild(targetPath string) bool {
	targetInfo, err := os.Stat(targetPath)
	if err != nil {
		return true
	}
	sourceInfo, err := os.Stat(s.AbsPath)
	if err != nil {
		// Missing source surfaces as a copy error later.
		return true
	}
	return sourceInfo.ModTime().After(targetInfo.ModTime())
}

// Install copies the file to targetPath when stale. force bypasses the
// freshness check. The parent directory is created as needed.
func (s *StaticFile) Install(targetPath string, force bool) (copied bool, err error) {
	if !force && !s.NeedsBuild(targetPath) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o750); err != nil {
		return false, fmt.Errorf("create target directory: %w", err)
	}

	src, err := os.Open(s.AbsPath)
	if err != nil {
		return false, fmt.Errorf("open static source: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(targetPath)
	if err != nil {
		return false, fmt.Errorf("create static target: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return false, fmt.Errorf("copy %s: %w", s.AbsPath, err)
	}
	if err := dst.Close(); err != nil {
		return false, fmt.Errorf("close static target: %w", err)
	}
	return true, nil
}
