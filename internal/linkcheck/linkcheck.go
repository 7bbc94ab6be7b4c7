// Package linkcheck verifies that internal links in generated HTML resolve
// to files under the target base.
package linkcheck

import (
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// Issue is one broken internal reference.
type Issue struct {
	// File is the target-relative HTML file containing the link.
	File string

	// Ref is the raw href/src value.
	Ref string

	// Resolved is the target-relative path the reference points at.
	Resolved string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: broken link %q (resolved to %s)", i.File, i.Ref, i.Resolved)
}

// linkAttrs maps element names to the attribute carrying a reference.
var linkAttrs = map[string]string{
	"a":      "href",
	"link":   "href",
	"img":    "src",
	"script": "src",
	"source": "src",
}

// CheckDir walks targetBase, parses every .html file and verifies that
// site-internal references point at existing files.
func CheckDir(targetBase string) ([]Issue, error) {
	var issues []Issue
	err := filepath.WalkDir(targetBase, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != targetBase {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".html") {
			return nil
		}
		rel, err := filepath.Rel(targetBase, p)
		if err != nil {
			return err
		}
		fileIssues, err := checkFile(targetBase, filepath.ToSlash(rel), p)
		if err != nil {
			return err
		}
		issues = append(issues, fileIssues...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("check links under %s: %w", targetBase, err)
	}
	return issues, nil
}

func checkFile(targetBase, rel, absPath string) ([]Issue, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", absPath, err)
	}
	defer func() { _ = f.Close() }()

	refs, err := extractRefs(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", absPath, err)
	}

	var issues []Issue
	for _, ref := range refs {
		resolved, internal := resolveInternal(rel, ref)
		if !internal {
			continue
		}
		if !targetExists(targetBase, resolved) {
			issues = append(issues, Issue{File: rel, Ref: ref, Resolved: resolved})
		}
	}
	return issues, nil
}

// extractRefs collects href/src values from an HTML document.
func extractRefs(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var refs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attrName, ok := linkAttrs[n.Data]; ok {
				for _, attr := range n.Attr {
					if attr.Key == attrName && attr.Val != "" {
						refs = append(refs, attr.Val)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs, nil
}

// resolveInternal resolves ref against the file it occurs in and reports
// whether it is a site-internal reference. External schemes, protocol-relative
// URLs, mailto and pure fragments are not internal.
func resolveInternal(fromRel, ref string) (string, bool) {
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}

	p := u.Path
	if p == "" {
		return "", false
	}
	if path.IsAbs(p) {
		return strings.TrimPrefix(path.Clean(p), "/"), true
	}
	return path.Clean(path.Join(path.Dir(fromRel), p)), true
}

// targetExists checks the resolved path, treating directory references as
// their index.html.
func targetExists(targetBase, rel string) bool {
	abs := filepath.Join(targetBase, filepath.FromSlash(rel))
	st, err := os.Stat(abs)
	if err != nil {
		return false
	}
	if st.IsDir() {
		_, err := os.Stat(filepath.Join(abs, "index.html"))
		return err == nil
	}
	return true
}
