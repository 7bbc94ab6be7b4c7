package document

import (
	"bytes"
	"fmt"
	"html/template"
	"os"

	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/webgen/internal/frontmatter"
)

// LoadMarkdown parses a markdown file into a document. YAML frontmatter
// fields become document fields and the rendered HTML body is stored in the
// "content" field.
func LoadMarkdown(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markdown document: %w", err)
	}

	fields, body, err := frontmatter.Extract(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := goldmark.New().Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("render markdown %s: %w", path, err)
	}

	doc := New()
	for k, v := range fields {
		doc.Set(k, v)
	}
	// Already-rendered HTML; templates must not escape it again.
	doc.Set("content", template.HTML(buf.String())) //nolint:gosec
	return doc, nil
}
