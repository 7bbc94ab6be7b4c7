// Package serve runs the preview server: it serves the generated site over
// HTTP, watches the source tree and rebuilds on changes.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/webgen/internal/build"
	"git.home.luguber.info/inful/webgen/internal/cache"
	"git.home.luguber.info/inful/webgen/internal/config"
	"git.home.luguber.info/inful/webgen/internal/metrics"
	"git.home.luguber.info/inful/webgen/internal/notify"
	"git.home.luguber.info/inful/webgen/internal/webfile"
)

const debounceDelay = 500 * time.Millisecond

// Options configures the preview server.
type Options struct {
	Paths config.Paths
	Addr  string

	// RebuildEvery schedules an unconditional periodic rebuild; zero
	// disables it.
	RebuildEvery time.Duration

	Force      bool
	CheckLinks bool
	Cache      *cache.Store
	Recorder   metrics.Recorder

	// Metrics enables the /metrics endpoint when set.
	Metrics *metrics.PrometheusRecorder
}

// status tracks the latest build outcome for the health endpoint.
type status struct {
	mu        sync.RWMutex
	lastError error
	lastBuild *build.Report
}

func (s *status) record(report *build.Report, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err
	s.lastBuild = report
}

func (s *status) snapshot() (*build.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastBuild, s.lastError
}

// Run builds the site, then serves and watches until the context is
// canceled.
func Run(ctx context.Context, opts Options) error {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}

	st := &status{}
	rebuild := func(ctx context.Context) {
		report, err := runBuild(ctx, opts)
		st.record(report, err)
		if err != nil {
			slog.Error("Rebuild failed", "error", err)
		}
	}
	rebuild(ctx)

	// Every rebuild trigger funnels through this channel so the watch loop
	// is the only goroutine that runs builds. While a build is running, at
	// most one follow-up stays queued.
	pending := make(chan struct{}, 1)
	requestRebuild := func() {
		select {
		case pending <- struct{}{}:
		default:
		}
	}

	watcher, err := newSourceWatcher(opts.Paths)
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	server := &http.Server{
		Addr:              opts.Addr,
		Handler:           newHandler(opts, st),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Preview server listening", "addr", opts.Addr, "target", opts.Paths.TargetBase)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var scheduler gocron.Scheduler
	if opts.RebuildEvery > 0 {
		scheduler, err = gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		_, err = scheduler.NewJob(
			gocron.DurationJob(opts.RebuildEvery),
			gocron.NewTask(requestRebuild),
			gocron.WithName("periodic-rebuild"),
		)
		if err != nil {
			return fmt.Errorf("schedule periodic rebuild: %w", err)
		}
		scheduler.Start()
		defer func() { _ = scheduler.Shutdown() }()
	}

	err = watchLoop(ctx, watcher, opts.Paths, pending, rebuild, serverErr)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		slog.Warn("Server shutdown failed", "error", shutdownErr)
	}
	return err
}

// runBuild loads the manifest fresh and runs a full build, so manifest edits
// take effect on the next rebuild.
func runBuild(ctx context.Context, opts Options) (*build.Report, error) {
	manifest, err := webfile.Load(opts.Paths.WebfilePath)
	if err != nil {
		return nil, err
	}

	publisher, err := notify.Connect(manifest.Notify)
	if err != nil {
		// The preview keeps working without the event sink.
		slog.Warn("Build notifications unavailable", "error", err)
	}
	defer publisher.Close()

	report, err := build.Run(ctx, build.Options{
		Paths:      opts.Paths,
		Manifest:   manifest,
		Force:      opts.Force,
		CheckLinks: opts.CheckLinks,
		Recorder:   opts.Recorder,
		Cache:      opts.Cache,
	})
	if report != nil {
		ev := notify.Event{
			BuildID:    report.BuildID,
			Outcome:    report.Outcome,
			Pages:      report.PagesRendered,
			Static:     report.StaticCopied,
			Images:     report.ImagesConverted,
			Warnings:   report.Warnings,
			Duration:   report.Duration,
			FinishedAt: time.Now(),
		}
		if pubErr := publisher.Publish(ev); pubErr != nil {
			slog.Warn("Failed to publish build event", "error", pubErr)
		}
	}
	return report, err
}

func newHandler(opts Options, st *status) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(opts.Paths.TargetBase)))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		report, err := st.snapshot()
		payload := map[string]any{"ok": err == nil}
		if err != nil {
			payload["error"] = err.Error()
			w.WriteHeader(http.StatusInternalServerError)
		}
		if report != nil {
			payload["build_id"] = report.BuildID
			payload["outcome"] = report.Outcome
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	})
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics.Handler())
	}
	return mux
}

// newSourceWatcher watches the source tree recursively, excluding the target
// base and dot-directories.
func newSourceWatcher(paths config.Paths) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := addWatchDirs(watcher, paths); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return watcher, nil
}

func addWatchDirs(watcher *fsnotify.Watcher, paths config.Paths) error {
	return filepath.WalkDir(paths.SourceBase, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return err
		}
		if path != paths.SourceBase {
			if strings.HasPrefix(d.Name(), ".") || filepath.Clean(path) == filepath.Clean(paths.TargetBase) {
				return filepath.SkipDir
			}
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// watchLoop debounces file events into rebuilds until the context is done.
// All rebuilds run here, one at a time; periodic triggers arrive on pending.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, paths config.Paths, pending chan struct{}, rebuild func(context.Context), serverErr <-chan error) error {
	var debounce *time.Timer
	trigger := func() {
		if debounce != nil {
			debounce.Stop()
		}
		debounce = time.AfterFunc(debounceDelay, func() {
			select {
			case pending <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-serverErr:
			return fmt.Errorf("preview server: %w", err)
		case <-pending:
			slog.Info("Source changed, rebuilding")
			rebuild(ctx)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ignoreEvent(paths, event) {
				continue
			}
			// New directories need to be watched too.
			if event.Op&fsnotify.Create != 0 {
				if err := watcher.Add(event.Name); err == nil {
					slog.Debug("Watching new path", "path", event.Name)
				}
			}
			trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Watcher error", "error", err)
		}
	}
}

// ignoreEvent filters events from the target tree and hidden files.
func ignoreEvent(paths config.Paths, event fsnotify.Event) bool {
	rel, err := filepath.Rel(paths.TargetBase, event.Name)
	if err == nil && !strings.HasPrefix(rel, "..") {
		return true
	}
	return strings.HasPrefix(filepath.Base(event.Name), ".")
}
