package linkcheck

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeOut(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestCheckDir_AllLinksResolve(t *testing.T) {
	dir := t.TempDir()
	writeOut(t, dir, "index.html", `<a href="posts/a.html">a</a><img src="style.css">`)
	writeOut(t, dir, "posts/a.html", `<a href="../index.html">back</a>`)
	writeOut(t, dir, "style.css", "body{}")

	issues, err := CheckDir(dir)
	require.NoError(t, err)
	require.Empty(t, issues)
}

func TestCheckDir_ReportsBrokenLinks(t *testing.T) {
	dir := t.TempDir()
	writeOut(t, dir, "index.html", `<a href="missing.html">x</a>`)

	issues, err := CheckDir(dir)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, "index.html", issues[0].File)
	require.Equal(t, "missing.html", issues[0].Ref)
	require.Equal(t, "missing.html", issues[0].Resolved)
	require.Contains(t, issues[0].String(), "broken link")
}

func TestCheckDir_RelativeResolutionAcrossDirs(t *testing.T) {
	dir := t.TempDir()
	writeOut(t, dir, "posts/a.html", `<a href="../assets/x.css">x</a>`)

	issues, err := CheckDir(dir)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, "assets/x.css", issues[0].Resolved)
}

func TestCheckDir_ExternalAndFragmentIgnored(t *testing.T) {
	dir := t.TempDir()
	writeOut(t, dir, "index.html",
		`<a href="https://example.org/">e</a>`+
			`<a href="//cdn.example.org/x.js">p</a>`+
			`<a href="mailto:a@b.c">m</a>`+
			`<a href="#section">f</a>`)

	issues, err := CheckDir(dir)
	require.NoError(t, err)
	require.Empty(t, issues)
}

func TestCheckDir_RootRelativeLinks(t *testing.T) {
	dir := t.TempDir()
	writeOut(t, dir, "deep/page.html", `<a href="/index.html">home</a>`)
	writeOut(t, dir, "index.html", "ok")

	issues, err := CheckDir(dir)
	require.NoError(t, err)
	require.Empty(t, issues)
}

func TestCheckDir_DirectoryLinkUsesIndex(t *testing.T) {
	dir := t.TempDir()
	writeOut(t, dir, "index.html", `<a href="posts/">posts</a>`)
	writeOut(t, dir, "posts/index.html", "ok")

	issues, err := CheckDir(dir)
	require.NoError(t, err)
	require.Empty(t, issues)

	writeOut(t, dir, "other.html", `<a href="empty/">x</a>`)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0o750))
	issues, err = CheckDir(dir)
	require.NoError(t, err)
	require.Len(t, issues, 1)
}
