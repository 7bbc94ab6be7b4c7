package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/webgen/internal/build"
	"git.home.luguber.info/inful/webgen/internal/cache"
	"git.home.luguber.info/inful/webgen/internal/config"
	"git.home.luguber.info/inful/webgen/internal/metrics"
	"git.home.luguber.info/inful/webgen/internal/serve"
	"git.home.luguber.info/inful/webgen/internal/source"
	"git.home.luguber.info/inful/webgen/internal/version"
	"git.home.luguber.info/inful/webgen/internal/webfile"
)

var CLI struct {
	Webfile string `short:"f" aliases:"file" help:"Path to the Webfile manifest" default:"Webfile"`
	Target  string `short:"t" aliases:"targetbase" help:"Output directory for the generated site" default:"output"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Force      bool `help:"Rebuild everything, ignoring freshness checks"`
		CheckLinks bool `help:"Verify internal links in the generated HTML"`
		NoCache    bool `help:"Disable the incremental render cache"`
	} `cmd:"" help:"Build the site described by the Webfile"`

	Init struct {
		Force bool `help:"Overwrite an existing Webfile"`
	} `cmd:"" help:"Create an example Webfile and template scaffold"`

	Discover struct {
		Collection string `short:"c" help:"Only list a specific collection"`
	} `cmd:"" help:"List source files matched by the manifest without building"`

	Serve struct {
		Addr         string        `help:"Listen address" default:":8080"`
		RebuildEvery time.Duration `help:"Periodic full rebuild interval (0 disables)"`
		Metrics      bool          `help:"Expose Prometheus metrics on /metrics"`
		Force        bool          `help:"Rebuild everything on each change"`
		CheckLinks   bool          `help:"Verify internal links after each rebuild"`
	} `cmd:"" help:"Build, serve and watch the site"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	switch ctx.Command() {
	case "build":
		if err := runBuild(); err != nil {
			slog.Error("Build failed", "error", err)
			os.Exit(1)
		}
	case "init":
		if err := runInit(); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
	case "discover":
		if err := runDiscover(); err != nil {
			slog.Error("Discover failed", "error", err)
			os.Exit(1)
		}
	case "serve":
		if err := runServe(); err != nil {
			slog.Error("Serve failed", "error", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("webgen %s (built %s, commit %s)\n", version.Version, version.BuildTime, version.GitCommit)
	}
}

func resolve() (config.Paths, *webfile.Manifest, error) {
	paths, err := config.ResolvePaths(CLI.Webfile, CLI.Target)
	if err != nil {
		return config.Paths{}, nil, err
	}
	if err := paths.LoadEnv(); err != nil {
		return config.Paths{}, nil, err
	}
	manifest, err := webfile.Load(paths.WebfilePath)
	if err != nil {
		return config.Paths{}, nil, err
	}
	return paths, manifest, nil
}

func openCache(paths config.Paths) *cache.Store {
	store, err := cache.Open(filepath.Join(paths.TargetBase, ".webgen", "cache.db"))
	if err != nil {
		// A broken cache degrades to full rebuilds.
		slog.Warn("Render cache unavailable", "error", err)
		return nil
	}
	return store
}

func runBuild() error {
	paths, manifest, err := resolve()
	if err != nil {
		return err
	}

	opts := build.Options{
		Paths:      paths,
		Manifest:   manifest,
		Force:      CLI.Build.Force,
		CheckLinks: CLI.Build.CheckLinks,
	}
	if !CLI.Build.NoCache {
		if store := openCache(paths); store != nil {
			opts.Cache = store
			defer func() { _ = store.Close() }()
		}
	}

	report, err := build.Run(context.Background(), opts)
	if err != nil {
		return err
	}
	for _, warning := range report.Warnings {
		slog.Warn("Build warning", "warning", warning)
	}
	return nil
}

func runInit() error {
	paths, err := config.ResolvePaths(CLI.Webfile, CLI.Target)
	if err != nil {
		return err
	}
	slog.Info("Initializing webfile", "path", paths.WebfilePath, "force", CLI.Init.Force)
	return webfile.Init(paths.WebfilePath, CLI.Init.Force)
}

func runDiscover() error {
	paths, manifest, err := resolve()
	if err != nil {
		return err
	}

	scanner := source.NewScanner(paths.SourceBase, paths.TargetBase)
	for name, col := range manifest.Collections {
		if CLI.Discover.Collection != "" && name != CLI.Discover.Collection {
			continue
		}
		matches, err := scanner.FindPattern(col.Pattern)
		if err != nil {
			return fmt.Errorf("collection %q: %w", name, err)
		}
		slog.Info("Collection", "name", name, "files", len(matches))
		for _, m := range matches {
			slog.Info("  File matched", "path", m.Path)
		}
	}
	if CLI.Discover.Collection != "" {
		if _, ok := manifest.Collections[CLI.Discover.Collection]; !ok {
			return fmt.Errorf("collection %q not found in webfile", CLI.Discover.Collection)
		}
	}
	return nil
}

func runServe() error {
	paths, _, err := resolve()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := serve.Options{
		Paths:        paths,
		Addr:         CLI.Serve.Addr,
		RebuildEvery: CLI.Serve.RebuildEvery,
		Force:        CLI.Serve.Force,
		CheckLinks:   CLI.Serve.CheckLinks,
	}
	if store := openCache(paths); store != nil {
		opts.Cache = store
		defer func() { _ = store.Close() }()
	}
	if CLI.Serve.Metrics {
		recorder := metrics.NewPrometheusRecorder(nil)
		opts.Recorder = recorder
		opts.Metrics = recorder
	}

	return serve.Run(ctx, opts)
}
