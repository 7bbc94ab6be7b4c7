// Package render loads the template environment and renders documents into
// the target tree.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/webgen/internal/config"
	"git.home.luguber.info/inful/webgen/internal/document"
	"git.home.luguber.info/inful/webgen/internal/webfile"
)

// Engine holds the parsed template set and site context for a build.
type Engine struct {
	templates *template.Template
	paths     config.Paths
	site      webfile.SiteConfig
	languages []string
}

// Result is one rendered output file, not yet written.
type Result struct {
	// TargetRel is the path relative to the target base.
	TargetRel string

	// AbsPath is the absolute output location.
	AbsPath string

	// Content is the rendered page.
	Content []byte
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"lower":   strings.ToLower,
		"upper":   strings.ToUpper,
		"trim":    strings.TrimSpace,
		"replace": strings.ReplaceAll,
		"safe":    func(s string) template.HTML { return template.HTML(s) }, //nolint:gosec
	}
}

// NewEngine parses all templates found under the template directories.
// Later directories shadow earlier ones, so a theme directory should come
// before the local template dir.
func NewEngine(paths config.Paths, site webfile.SiteConfig, languages []string, templateDirs ...string) (*Engine, error) {
	if len(templateDirs) == 0 {
		templateDirs = []string{paths.TemplateDir}
	}

	root := template.New("").Funcs(funcMap())
	for _, dir := range templateDirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read template: %w", err)
			}
			name := filepath.ToSlash(rel)
			if _, err := root.New(name).Parse(string(data)); err != nil {
				return fmt.Errorf("parse template %s: %w", name, err)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("load templates from %s: %w", dir, err)
		}
	}

	return &Engine{templates: root, paths: paths, site: site, languages: languages}, nil
}

// Render expands the target path from the document's fields and renders the
// named template with the document as context. Nothing is written to disk.
//
// The template context contains every document field plus:
//
//	site      site configuration (Title, BaseURL, Params)
//	document  the document itself
//	rel_base  relative path from the output file's directory to the target base
func (e *Engine) Render(doc *document.Document, templateName, target string, extra map[string]any) (*Result, error) {
	tpl := e.templates.Lookup(templateName)
	if tpl == nil {
		return nil, fmt.Errorf("template %q not found", templateName)
	}

	expanded, err := doc.ExpandTarget(target)
	if err != nil {
		return nil, err
	}
	targetRel := filepath.FromSlash(expanded)
	absPath := filepath.Join(e.paths.TargetBase, targetRel)

	relBase, err := filepath.Rel(filepath.Dir(absPath), e.paths.TargetBase)
	if err != nil {
		return nil, fmt.Errorf("compute rel_base for %s: %w", absPath, err)
	}

	ctx := doc.Fields()
	ctx["document"] = doc
	ctx["site"] = e.site
	ctx["rel_base"] = filepath.ToSlash(relBase)
	for k, v := range extra {
		ctx[k] = v
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, ctx); err != nil {
		return nil, fmt.Errorf("render %s with %s: %w", expanded, templateName, err)
	}
	return &Result{TargetRel: filepath.ToSlash(targetRel), AbsPath: absPath, Content: buf.Bytes()}, nil
}

// RenderI18n renders once per configured language with the document's "lang"
// field set, restoring the field afterwards. Without configured languages it
// is a plain Render.
func (e *Engine) RenderI18n(doc *document.Document, templateName, target string, extra map[string]any) ([]*Result, error) {
	if len(e.languages) == 0 {
		res, err := e.Render(doc, templateName, target, extra)
		if err != nil {
			return nil, err
		}
		return []*Result{res}, nil
	}

	hadLang := doc.Has("lang")
	oldLang := doc.Field("lang")
	defer func() {
		if hadLang {
			doc.Set("lang", oldLang)
		} else {
			doc.Delete("lang")
		}
	}()

	results := make([]*Result, 0, len(e.languages))
	for _, lang := range e.languages {
		doc.Set("lang", lang)
		res, err := e.Render(doc, templateName, target, extra)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// HasTemplate reports whether a template with the given name was loaded.
func (e *Engine) HasTemplate(name string) bool {
	return e.templates.Lookup(name) != nil
}

// Write persists a rendered result, creating parent directories as needed.
func (r *Result) Write() error {
	if err := os.MkdirAll(filepath.Dir(r.AbsPath), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(r.AbsPath, r.Content, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("write %s: %w", r.AbsPath, err)
	}
	return nil
}
