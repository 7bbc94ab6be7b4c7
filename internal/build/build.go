// Package build runs the staged site build: scan sources, load collections,
// render pages, install static files and convert images.
package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/webgen/internal/cache"
	"git.home.luguber.info/inful/webgen/internal/document"
	"git.home.luguber.info/inful/webgen/internal/images"
	"git.home.luguber.info/inful/webgen/internal/linkcheck"
	"git.home.luguber.info/inful/webgen/internal/metrics"
	"git.home.luguber.info/inful/webgen/internal/paginate"
	"git.home.luguber.info/inful/webgen/internal/render"
	"git.home.luguber.info/inful/webgen/internal/source"
	"git.home.luguber.info/inful/webgen/internal/theme"
	"git.home.luguber.info/inful/webgen/internal/webfile"
	"git.home.luguber.info/inful/webgen/internal/workspace"
)

// Run executes a full build and returns its report. The returned error is
// nil when the build succeeded, possibly with warnings recorded on the
// report.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Manifest == nil {
		return nil, errors.New("manifest is required")
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Converter == nil {
		opts.Converter = images.NewConverter()
	}

	st := &State{
		Opts:        opts,
		Collections: make(map[string]document.List),
		outputs:     make(map[string]bool),
		Report:      newReport(uuid.NewString()),
	}
	defer func() {
		if st.Workspace != nil {
			if err := st.Workspace.Cleanup(); err != nil {
				slog.Warn("Failed to clean up workspace", "error", err)
			}
		}
	}()

	slog.Info("Starting build",
		"build_id", st.Report.BuildID,
		"source", opts.Paths.SourceBase,
		"target", opts.Paths.TargetBase)

	stages := []namedStage{
		{"prepare", stagePrepare},
		{"collections", stageCollections},
		{"pages", stagePages},
		{"static", stageStatic},
		{"images", stageImages},
	}
	if opts.CheckLinks {
		stages = append(stages, namedStage{"links", stageLinks})
	}
	if opts.Cache != nil {
		stages = append(stages, namedStage{"prune", stagePrune})
	}

	start := time.Now()
	err := runStages(ctx, st, stages)
	st.Report.Duration = time.Since(start)
	st.Opts.Recorder.ObserveBuildDuration(st.Report.Duration)

	switch {
	case err == nil && len(st.Report.Warnings) == 0:
		st.Report.Outcome = "success"
	case err == nil:
		st.Report.Outcome = "warning"
	default:
		var se *StageError
		if errors.As(err, &se) && se.Kind == StageErrorCanceled {
			st.Report.Outcome = "canceled"
		} else {
			st.Report.Outcome = "failed"
		}
	}
	st.Opts.Recorder.IncBuildOutcome(st.Report.Outcome)

	slog.Info("Build finished",
		"build_id", st.Report.BuildID,
		"outcome", st.Report.Outcome,
		"pages", st.Report.PagesRendered,
		"static", st.Report.StaticCopied,
		"images", st.Report.ImagesConverted,
		"duration", st.Report.Duration)
	return st.Report, err
}

// stagePrepare creates the target tree, fetches the theme if configured and
// loads the template environment.
func stagePrepare(ctx context.Context, st *State) error {
	paths := st.Opts.Paths
	if err := os.MkdirAll(paths.TargetBase, 0o750); err != nil {
		return fatal("prepare", fmt.Errorf("create target directory: %w", err))
	}

	st.Scanner = source.NewScanner(paths.SourceBase, paths.TargetBase)

	paths = paths.WithTemplateDir(st.Opts.Manifest.Templates)
	templateDirs := []string{paths.TemplateDir}
	if st.Opts.Manifest.Theme != nil {
		st.Workspace = workspace.New("")
		if err := st.Workspace.Create(); err != nil {
			return fatal("prepare", err)
		}
		themeDir, err := theme.Fetch(st.Opts.Manifest.Theme, st.Workspace.Path())
		if err != nil {
			return fatal("prepare", err)
		}
		// Local templates shadow theme templates.
		templateDirs = []string{themeDir, paths.TemplateDir}
	}

	engine, err := render.NewEngine(paths, st.Opts.Manifest.Site, st.Opts.Manifest.Languages, templateDirs...)
	if err != nil {
		return fatal("prepare", err)
	}
	st.Engine = engine
	return nil
}

// stageCollections loads every collection named in the manifest.
func stageCollections(ctx context.Context, st *State) error {
	for name, col := range st.Opts.Manifest.Collections {
		list, err := LoadCollection(st.Scanner, col)
		if err != nil {
			return fatal("collections", fmt.Errorf("collection %q: %w", name, err))
		}
		st.Collections[name] = list
		slog.Debug("Collection loaded", "name", name, "documents", len(list))
	}
	return nil
}

// LoadCollection gathers and sorts the documents matching a collection rule.
func LoadCollection(scanner *source.Scanner, col webfile.Collection) (document.List, error) {
	matches, err := scanner.FindPattern(col.Pattern)
	if err != nil {
		return nil, err
	}

	var list document.List
	for _, m := range matches {
		docType := col.Type
		if docType == webfile.DocTypeAuto {
			docType = typeForPath(m.Path)
		}

		docs, err := loadMatch(scanner, m, docType, col.ListKey)
		if err != nil {
			return nil, err
		}
		list = append(list, docs...)
	}

	list.SortBy(col.SortBy, col.Reverse)
	return list, nil
}

func typeForPath(path string) webfile.DocType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return webfile.DocTypeMarkdown
	case ".yaml", ".yml":
		return webfile.DocTypeYAML
	default:
		return webfile.DocTypeStatic
	}
}

func loadMatch(scanner *source.Scanner, m source.Match, docType webfile.DocType, listKey string) (document.List, error) {
	abs := scanner.Abs(m.Path)

	var docs document.List
	switch docType {
	case webfile.DocTypeMarkdown:
		doc, err := document.LoadMarkdown(abs)
		if err != nil {
			return nil, err
		}
		docs = document.List{doc}
	case webfile.DocTypeYAML:
		if listKey != "" {
			list, err := document.LoadYAMLList(abs, listKey)
			if err != nil {
				return nil, err
			}
			docs = list
		} else {
			doc, err := document.LoadYAML(abs)
			if err != nil {
				return nil, err
			}
			docs = document.List{doc}
		}
	default:
		docs = document.List{document.New()}
	}

	for _, doc := range docs {
		doc.SourcePath = m.Path
		doc.Set("source_path", m.Path)
		for k, v := range m.Captures {
			doc.Set(k, v)
		}
	}
	return docs, nil
}

// stagePages renders every page rule.
func stagePages(ctx context.Context, st *State) error {
	for i, rule := range st.Opts.Manifest.Pages {
		if err := ctx.Err(); err != nil {
			return canceled("pages", err)
		}
		if err := st.renderRule(ctx, rule); err != nil {
			return fatal("pages", fmt.Errorf("page rule %d (%s): %w", i, rule.Template, err))
		}
	}
	return nil
}

func (st *State) renderRule(ctx context.Context, rule webfile.PageRule) error {
	switch {
	case rule.Paginate != nil:
		return st.renderPaginated(ctx, rule)
	case rule.Each:
		for _, doc := range st.Collections[rule.Collection] {
			if err := st.renderAndWrite(ctx, doc, rule, rule.Context); err != nil {
				return err
			}
		}
		return nil
	case rule.Collection != "":
		extra := mergeContext(rule.Context, map[string]any{
			"documents": st.Collections[rule.Collection],
		})
		return st.renderAndWrite(ctx, document.New(), rule, extra)
	default:
		return st.renderAndWrite(ctx, document.New(), rule, rule.Context)
	}
}

func (st *State) renderPaginated(ctx context.Context, rule webfile.PageRule) error {
	cfg := rule.Paginate
	paginator, err := paginate.New(st.Collections[rule.Collection], cfg.PerPage, cfg.Orphans, cfg.AllowEmptyFirst)
	if err != nil {
		return err
	}
	pages, err := paginator.Pages()
	if err != nil {
		return err
	}

	for _, page := range pages {
		doc := document.New()
		doc.Set("page", page.Number)
		doc.Set("page1", page.Number1())
		extra := mergeContext(rule.Context, map[string]any{"page": page})
		if err := st.renderAndWrite(ctx, doc, rule, extra); err != nil {
			return err
		}
	}
	return nil
}

func (st *State) renderAndWrite(ctx context.Context, doc *document.Document, rule webfile.PageRule, extra map[string]any) error {
	results, err := st.Engine.RenderI18n(doc, rule.Template, rule.Target, extra)
	if err != nil {
		return err
	}
	for _, res := range results {
		if err := st.writeResult(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

// writeResult persists a rendered page unless the cache shows the identical
// content was already written.
func (st *State) writeResult(ctx context.Context, res *render.Result) error {
	st.outputs[res.TargetRel] = true

	hash := cache.Hash(res.Content)
	if st.Opts.Cache != nil && !st.Opts.Force {
		fresh, err := st.Opts.Cache.IsFresh(ctx, res.TargetRel, hash)
		if err != nil {
			return err
		}
		if fresh {
			if _, statErr := os.Stat(res.AbsPath); statErr == nil {
				st.Report.PagesSkipped++
				st.Opts.Recorder.AddPagesSkipped(1)
				return nil
			}
		}
	}

	if err := res.Write(); err != nil {
		return err
	}
	if st.Opts.Cache != nil {
		if err := st.Opts.Cache.Record(ctx, res.TargetRel, hash); err != nil {
			return err
		}
	}
	st.Report.PagesRendered++
	st.Opts.Recorder.AddPagesRendered(1)
	return nil
}

// stageStatic installs static file rules.
func stageStatic(ctx context.Context, st *State) error {
	for i, rule := range st.Opts.Manifest.Static {
		files, err := st.ruleFiles(rule.Collection, rule.Pattern)
		if err != nil {
			return fatal("static", fmt.Errorf("static rule %d: %w", i, err))
		}
		for _, sf := range files {
			if err := ctx.Err(); err != nil {
				return canceled("static", err)
			}
			targetPath, err := st.expandRuleTarget(sf, rule.Target)
			if err != nil {
				return fatal("static", fmt.Errorf("static rule %d: %w", i, err))
			}
			copied, err := sf.Install(targetPath, st.Opts.Force)
			if err != nil {
				return fatal("static", fmt.Errorf("static rule %d: %w", i, err))
			}
			if copied {
				st.Report.StaticCopied++
				st.Opts.Recorder.AddFilesCopied(1)
			} else {
				st.Report.StaticSkipped++
			}
		}
	}
	return nil
}

// stageImages converts image rules.
func stageImages(ctx context.Context, st *State) error {
	for i, rule := range st.Opts.Manifest.Images {
		files, err := st.ruleFiles(rule.Collection, rule.Pattern)
		if err != nil {
			return fatal("images", fmt.Errorf("image rule %d: %w", i, err))
		}
		for _, sf := range files {
			if err := ctx.Err(); err != nil {
				return canceled("images", err)
			}
			targetPath, err := st.expandRuleTarget(sf, rule.Target)
			if err != nil {
				return fatal("images", fmt.Errorf("image rule %d: %w", i, err))
			}

			var converted bool
			if rule.Width > 0 {
				converted, err = st.Opts.Converter.Resize(sf, targetPath, rule.Width, rule.Height, st.Opts.Force)
			} else {
				converted, err = st.Opts.Converter.Convert(sf, targetPath, st.Opts.Force)
			}
			if err != nil {
				return fatal("images", fmt.Errorf("image rule %d: %w", i, err))
			}
			if converted {
				st.Report.ImagesConverted++
				st.Opts.Recorder.AddImagesConverted(1)
			} else {
				st.Report.ImagesSkipped++
			}
		}
	}
	return nil
}

// ruleFiles resolves a static or image rule to its source files.
func (st *State) ruleFiles(collection, pattern string) ([]*document.StaticFile, error) {
	if collection != "" {
		list, ok := st.Collections[collection]
		if !ok {
			return nil, fmt.Errorf("unknown collection %q", collection)
		}
		files := make([]*document.StaticFile, 0, len(list))
		for _, doc := range list {
			if doc.SourcePath == "" {
				return nil, fmt.Errorf("collection %q has documents without source files", collection)
			}
			files = append(files, document.NewStaticFile(st.Scanner.Abs(doc.SourcePath), doc))
		}
		return files, nil
	}

	matches, err := st.Scanner.FindPattern(pattern)
	if err != nil {
		return nil, err
	}
	files := make([]*document.StaticFile, 0, len(matches))
	for _, m := range matches {
		doc := document.New()
		for k, v := range m.Captures {
			doc.Set(k, v)
		}
		files = append(files, document.NewStaticFile(st.Scanner.Abs(m.Path), doc))
	}
	return files, nil
}

func (st *State) expandRuleTarget(sf *document.StaticFile, target string) (string, error) {
	expanded, err := sf.Doc.ExpandTarget(target)
	if err != nil {
		return "", err
	}
	return filepath.Join(st.Opts.Paths.TargetBase, filepath.FromSlash(expanded)), nil
}

// stageLinks verifies internal links of the generated site.
func stageLinks(ctx context.Context, st *State) error {
	issues, err := linkcheck.CheckDir(st.Opts.Paths.TargetBase)
	if err != nil {
		return fatal("links", err)
	}
	if len(issues) == 0 {
		return nil
	}
	msgs := make([]string, len(issues))
	for i, issue := range issues {
		msgs[i] = issue.String()
	}
	return warning("links", fmt.Errorf("%d broken internal links:\n%s", len(issues), strings.Join(msgs, "\n")))
}

// stagePrune drops cache entries for outputs this build no longer produces.
func stagePrune(ctx context.Context, st *State) error {
	dropped, err := st.Opts.Cache.Prune(ctx, st.outputs)
	if err != nil {
		return warning("prune", err)
	}
	if dropped > 0 {
		slog.Debug("Pruned stale cache entries", "count", dropped)
	}
	return nil
}

func mergeContext(base, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
