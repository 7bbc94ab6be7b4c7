// Package images converts and resizes images by invoking the ImageMagick
// convert binary found on PATH.
package images

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"git.home.luguber.info/inful/webgen/internal/document"
)

// ErrConvertNotFound indicates the ImageMagick convert binary is missing.
var ErrConvertNotFound = errors.New("imagemagick convert binary not found on PATH")

// Converter runs ImageMagick operations on static image files.
type Converter struct {
	// Binary overrides the executable name, for tests.
	Binary string
}

// NewConverter creates a converter using the default binary name.
func NewConverter() *Converter { return &Converter{Binary: "convert"} }

// Convert transcodes the source image to targetPath (format chosen by the
// target extension). Skipped when the target is fresh, unless forced.
func (c *Converter) Convert(src *document.StaticFile, targetPath string, force bool) (bool, error) {
	if !force && !src.NeedsBuild(targetPath) {
		return false, nil
	}
	return true, c.run(src.AbsPath, targetPath)
}

// Resize converts the source image while resizing it to fit width x height.
// Skipped when the target is fresh, unless forced.
func (c *Converter) Resize(src *document.StaticFile, targetPath string, width, height int, force bool) (bool, error) {
	if width < 1 || height < 1 {
		return false, fmt.Errorf("resize dimensions must be positive, got %dx%d", width, height)
	}
	if !force && !src.NeedsBuild(targetPath) {
		return false, nil
	}
	return true, c.run(src.AbsPath, "-resize", fmt.Sprintf("%dx%d", width, height), targetPath)
}

// run invokes convert with the source path first and target path last.
func (c *Converter) run(args ...string) error {
	binary := c.Binary
	if binary == "" {
		binary = "convert"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return fmt.Errorf("%w: %w", ErrConvertNotFound, err)
	}

	targetPath := args[len(args)-1]
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o750); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}

	cmd := exec.Command(binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	slog.Debug("Running image conversion", "binary", binary, "args", args)

	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		if msg != "" {
			return fmt.Errorf("convert %s: %w: %s", args[0], err, msg)
		}
		return fmt.Errorf("convert %s: %w", args[0], err)
	}
	return nil
}
