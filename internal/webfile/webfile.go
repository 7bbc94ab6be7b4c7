// Package webfile loads and validates the Webfile build manifest.
//
// The Webfile is a declarative YAML document describing the site: document
// collections gathered from the source tree, pages rendered from templates,
// static file installs and image conversions. The manifest is data, never
// executed code, so nothing in it can reach into the generator's own state.
package webfile

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Manifest is the parsed Webfile.
type Manifest struct {
	Site        SiteConfig            `yaml:"site"`
	Languages   []string              `yaml:"languages,omitempty"`
	Templates   string                `yaml:"templates,omitempty"`
	Theme       *ThemeConfig          `yaml:"theme,omitempty"`
	Collections map[string]Collection `yaml:"collections,omitempty"`
	Pages       []PageRule            `yaml:"pages,omitempty"`
	Static      []StaticRule          `yaml:"static,omitempty"`
	Images      []ImageRule           `yaml:"images,omitempty"`
	Notify      *NotifyConfig         `yaml:"notify,omitempty"`
}

// SiteConfig holds site-wide values exposed to every template.
type SiteConfig struct {
	Title   string         `yaml:"title"`
	BaseURL string         `yaml:"base_url,omitempty"`
	Params  map[string]any `yaml:"params,omitempty"`
}

// ThemeConfig points at a remote template repository fetched with git.
type ThemeConfig struct {
	Git string `yaml:"git"`
	Ref string `yaml:"ref,omitempty"`
}

// DocType selects the loader for a collection's files.
type DocType string

const (
	DocTypeAuto     DocType = ""
	DocTypeMarkdown DocType = "markdown"
	DocTypeYAML     DocType = "yaml"
	DocTypeStatic   DocType = "static"
)

// Collection describes a named set of source documents.
type Collection struct {
	// Pattern is a regular expression matched against source-relative
	// paths. Named capture groups become document fields.
	Pattern string  `yaml:"pattern"`
	Type    DocType `yaml:"type,omitempty"`
	SortBy  string  `yaml:"sort_by,omitempty"`
	Reverse bool    `yaml:"reverse,omitempty"`

	// ListKey expands each matched YAML file into one document per element
	// of the list stored under this key.
	ListKey string `yaml:"list_key,omitempty"`
}

// PageRule renders a template into the target tree.
type PageRule struct {
	Template   string         `yaml:"template"`
	Target     string         `yaml:"target"`
	Collection string         `yaml:"collection,omitempty"`
	// Each renders the template once per document instead of once for the
	// whole collection.
	Each     bool            `yaml:"each,omitempty"`
	Paginate *PaginateConfig `yaml:"paginate,omitempty"`
	Context  map[string]any  `yaml:"context,omitempty"`
}

// PaginateConfig splits a collection across numbered output pages.
type PaginateConfig struct {
	PerPage         int  `yaml:"per_page"`
	Orphans         int  `yaml:"orphans,omitempty"`
	AllowEmptyFirst bool `yaml:"allow_empty_first,omitempty"`
}

// StaticRule copies matched files into the target tree.
type StaticRule struct {
	Collection string `yaml:"collection,omitempty"`
	Pattern    string `yaml:"pattern,omitempty"`
	Target     string `yaml:"target"`
}

// ImageRule converts or resizes matched images via ImageMagick.
type ImageRule struct {
	Collection string `yaml:"collection,omitempty"`
	Pattern    string `yaml:"pattern,omitempty"`
	Target     string `yaml:"target"`
	Width      int    `yaml:"width,omitempty"`
	Height     int    `yaml:"height,omitempty"`
}

// NotifyConfig enables build completion events over NATS.
type NotifyConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject,omitempty"`
}

// Load reads and parses the manifest at path. Environment variables in the
// manifest text are expanded before parsing.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read webfile: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse parses manifest bytes, applies defaults and validates.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse webfile: %w", err)
	}
	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) applyDefaults() {
	if m.Site.Title == "" {
		m.Site.Title = "Web Site"
	}
	if m.Theme != nil && m.Theme.Ref == "" {
		m.Theme.Ref = "main"
	}
	if m.Notify != nil && m.Notify.Subject == "" {
		m.Notify.Subject = "webgen.builds"
	}
	for i := range m.Pages {
		if p := m.Pages[i].Paginate; p != nil && p.PerPage == 0 {
			p.PerPage = 10
		}
	}
}

// Validate checks internal consistency of the manifest.
func (m *Manifest) Validate() error {
	for name, col := range m.Collections {
		if col.Pattern == "" {
			return fmt.Errorf("collection %q: pattern is required", name)
		}
		if _, err := regexp.Compile(col.Pattern); err != nil {
			return fmt.Errorf("collection %q: invalid pattern: %w", name, err)
		}
		switch col.Type {
		case DocTypeAuto, DocTypeMarkdown, DocTypeYAML, DocTypeStatic:
		default:
			return fmt.Errorf("collection %q: unknown type %q", name, col.Type)
		}
		if col.ListKey != "" && col.Type != DocTypeYAML {
			return fmt.Errorf("collection %q: list_key requires type yaml", name)
		}
	}

	for _, lang := range m.Languages {
		if _, err := language.Parse(lang); err != nil {
			return fmt.Errorf("invalid language tag %q: %w", lang, err)
		}
	}

	for i, page := range m.Pages {
		if page.Template == "" {
			return fmt.Errorf("page %d: template is required", i)
		}
		if page.Target == "" {
			return fmt.Errorf("page %d: target is required", i)
		}
		if page.Collection != "" {
			if _, ok := m.Collections[page.Collection]; !ok {
				return fmt.Errorf("page %d: unknown collection %q", i, page.Collection)
			}
		}
		if page.Each && page.Collection == "" {
			return fmt.Errorf("page %d: each requires a collection", i)
		}
		if page.Paginate != nil {
			if page.Collection == "" {
				return fmt.Errorf("page %d: paginate requires a collection", i)
			}
			if page.Each {
				return fmt.Errorf("page %d: each and paginate are mutually exclusive", i)
			}
			if page.Paginate.PerPage < 1 {
				return fmt.Errorf("page %d: paginate per_page must be positive", i)
			}
			if page.Paginate.Orphans < 0 {
				return fmt.Errorf("page %d: paginate orphans must not be negative", i)
			}
			// Without a page number in the target every page would
			// overwrite the same output file.
			if !strings.Contains(page.Target, "{page}") && !strings.Contains(page.Target, "{page1}") {
				return fmt.Errorf("page %d: paginated target must contain {page} or {page1}", i)
			}
		}
	}

	for i, rule := range m.Static {
		if err := validateSourceRule(m, rule.Collection, rule.Pattern, rule.Target); err != nil {
			return fmt.Errorf("static rule %d: %w", i, err)
		}
	}
	for i, rule := range m.Images {
		if err := validateSourceRule(m, rule.Collection, rule.Pattern, rule.Target); err != nil {
			return fmt.Errorf("image rule %d: %w", i, err)
		}
		if (rule.Width != 0) != (rule.Height != 0) {
			return fmt.Errorf("image rule %d: width and height must be set together", i)
		}
		if rule.Width < 0 || rule.Height < 0 {
			return fmt.Errorf("image rule %d: dimensions must not be negative", i)
		}
	}

	if m.Notify != nil && m.Notify.URL == "" {
		return fmt.Errorf("notify: url is required")
	}
	return nil
}

func validateSourceRule(m *Manifest, collection, pattern, target string) error {
	if target == "" {
		return fmt.Errorf("target is required")
	}
	if (collection == "") == (pattern == "") {
		return fmt.Errorf("exactly one of collection or pattern is required")
	}
	if collection != "" {
		if _, ok := m.Collections[collection]; !ok {
			return fmt.Errorf("unknown collection %q", collection)
		}
	}
	if pattern != "" {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
	}
	return nil
}
