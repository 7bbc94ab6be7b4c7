// Package config holds the resolved build paths shared by all components.
//
// Paths is constructed exactly once at startup and passed by parameter;
// nothing in this package is process-global.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// DefaultWebfile is the manifest filename looked up when -f is not given.
const DefaultWebfile = "Webfile"

// DefaultTarget is the output directory used when -t is not given.
const DefaultTarget = "output"

// Paths carries the absolute base directories for a build.
type Paths struct {
	// WebfilePath is the absolute path of the manifest file.
	WebfilePath string

	// SourceBase is the directory relative paths in the manifest resolve
	// against. Always the parent directory of WebfilePath.
	SourceBase string

	// TargetBase is the directory generated artifacts are written to.
	TargetBase string

	// TemplateDir is where page templates are loaded from. Defaults to
	// SourceBase/templates.
	TemplateDir string
}

// ResolvePaths normalizes the webfile and target arguments into a Paths value.
//
// Resolution is pure path manipulation: neither the webfile nor the target
// directory is required to exist at this point.
func ResolvePaths(webfile, target string) (Paths, error) {
	if webfile == "" {
		webfile = DefaultWebfile
	}
	if target == "" {
		target = DefaultTarget
	}

	absWebfile, err := filepath.Abs(webfile)
	if err != nil {
		return Paths{}, fmt.Errorf("resolve webfile path: %w", err)
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return Paths{}, fmt.Errorf("resolve target path: %w", err)
	}

	sourceBase := filepath.Dir(absWebfile)
	return Paths{
		WebfilePath: absWebfile,
		SourceBase:  sourceBase,
		TargetBase:  absTarget,
		TemplateDir: filepath.Join(sourceBase, "templates"),
	}, nil
}

// WithTemplateDir returns a copy of p with an explicit template directory.
// Relative directories resolve against the source base.
func (p Paths) WithTemplateDir(dir string) Paths {
	if dir == "" {
		return p
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(p.SourceBase, dir)
	}
	p.TemplateDir = dir
	return p
}

// LoadEnv loads a .env file from the source base if one exists. Missing files
// are not an error; the manifest loader expands ${VAR} references afterwards.
func (p Paths) LoadEnv() error {
	envPath := filepath.Join(p.SourceBase, ".env")
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(envPath); err != nil {
		return fmt.Errorf("load env file %s: %w", envPath, err)
	}
	return nil
}
