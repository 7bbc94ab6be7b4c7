package webfile

import (
	"fmt"
	"os"
	"path/filepath"
)

const exampleWebfile = `# webgen build manifest
site:
  title: "My Site"
  base_url: "https://example.org/"

collections:
  posts:
    pattern: 'posts/(?P<slug>[^/]+)\.md$'
    type: markdown
    sort_by: date
    reverse: true

pages:
  - template: post.html
    collection: posts
    each: true
    target: "posts/{slug}.html"
  - template: index.html
    collection: posts
    target: "page/{page1}.html"
    paginate:
      per_page: 10
      orphans: 2
      allow_empty_first: true

static:
  - pattern: 'assets/.*'
    target: "{path}"
`

const examplePostTemplate = `<!DOCTYPE html>
<html>
<head><title>{{ .title }} - {{ .site.Title }}</title></head>
<body>
<h1>{{ .title }}</h1>
{{ .content }}
</body>
</html>
`

const exampleIndexTemplate = `<!DOCTYPE html>
<html>
<head><title>{{ .site.Title }}</title></head>
<body>
<h1>{{ .site.Title }}</h1>
<ul>
{{ range .page.Items }}<li><a href="{{ $.rel_base }}/posts/{{ .Field "slug" }}.html">{{ .Field "title" }}</a></li>
{{ end }}</ul>
</body>
</html>
`

// Init writes an example Webfile and matching template scaffold. An existing
// Webfile is only overwritten with force set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("webfile already exists: %s (use --force to overwrite)", path)
	}

	if err := os.WriteFile(path, []byte(exampleWebfile), 0o644); err != nil {
		return fmt.Errorf("write webfile: %w", err)
	}

	templateDir := filepath.Join(filepath.Dir(path), "templates")
	if err := os.MkdirAll(templateDir, 0o750); err != nil {
		return fmt.Errorf("create template directory: %w", err)
	}
	scaffold := map[string]string{
		"post.html":  examplePostTemplate,
		"index.html": exampleIndexTemplate,
	}
	for name, content := range scaffold {
		dst := filepath.Join(templateDir, name)
		if _, err := os.Stat(dst); err == nil && !force {
			continue
		}
		if err := os.WriteFile(dst, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write template %s: %w", name, err)
		}
	}
	return nil
}
