package build

import (
	"time"

	"git.home.luguber.info/inful/webgen/internal/cache"
	"git.home.luguber.info/inful/webgen/internal/config"
	"git.home.luguber.info/inful/webgen/internal/document"
	"git.home.luguber.info/inful/webgen/internal/images"
	"git.home.luguber.info/inful/webgen/internal/metrics"
	"git.home.luguber.info/inful/webgen/internal/render"
	"git.home.luguber.info/inful/webgen/internal/source"
	"git.home.luguber.info/inful/webgen/internal/webfile"
	"git.home.luguber.info/inful/webgen/internal/workspace"
)

// Options configures a single build run.
type Options struct {
	Paths    config.Paths
	Manifest *webfile.Manifest

	// Force disables freshness checks for rendered pages, static files and
	// image conversions.
	Force bool

	// CheckLinks verifies internal links in the generated HTML after the
	// build; broken links are reported as warnings.
	CheckLinks bool

	// Recorder receives build metrics; nil means no metrics.
	Recorder metrics.Recorder

	// Cache skips re-rendering pages whose content is unchanged; nil
	// disables caching.
	Cache *cache.Store

	// Converter runs image operations; nil uses the default ImageMagick
	// converter.
	Converter *images.Converter
}

// State carries mutable state across build stages.
type State struct {
	Opts Options

	Scanner     *source.Scanner
	Engine      *render.Engine
	Workspace   *workspace.Workspace
	Collections map[string]document.List

	// outputs tracks target-relative paths produced by this run, for
	// cache pruning.
	outputs map[string]bool

	Report *Report
}

// Report summarizes a finished build.
type Report struct {
	BuildID string

	// Outcome is success, warning, failed or canceled.
	Outcome string

	PagesRendered   int
	PagesSkipped    int
	StaticCopied    int
	StaticSkipped   int
	ImagesConverted int
	ImagesSkipped   int

	Warnings       []string
	StageDurations map[string]time.Duration
	Duration       time.Duration
}

func newReport(buildID string) *Report {
	return &Report{
		BuildID:        buildID,
		StageDurations: make(map[string]time.Duration),
	}
}

func (r *Report) addWarningOrError(se *StageError) {
	if se.Kind == StageErrorWarning {
		r.Warnings = append(r.Warnings, se.Error())
	}
}
