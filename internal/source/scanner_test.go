package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
}

func TestFiles_WalksAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "posts/b.md")
	writeFile(t, dir, "posts/a.md")
	writeFile(t, dir, "assets/style.css")

	s := NewScanner(dir)
	files, err := s.Files()
	require.NoError(t, err)
	require.Equal(t, []string{"assets/style.css", "posts/a.md", "posts/b.md"}, files)
}

func TestFiles_SkipsDotDirsAndSkipList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "posts/a.md")
	writeFile(t, dir, ".git/config")
	writeFile(t, dir, "output/index.html")

	s := NewScanner(dir, filepath.Join(dir, "output"))
	files, err := s.Files()
	require.NoError(t, err)
	require.Equal(t, []string{"posts/a.md"}, files)
}

func TestFiles_CachesWalk(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "posts/a.md")

	s := NewScanner(dir)
	_, err := s.Files()
	require.NoError(t, err)

	// Files added after the first walk are not visible through the cache.
	writeFile(t, dir, "posts/b.md")
	files, err := s.Files()
	require.NoError(t, err)
	require.Equal(t, []string{"posts/a.md"}, files)
}

func TestFindPattern_NamedCaptures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "posts/2024-01-02-hello.md")
	writeFile(t, dir, "posts/notes.txt")

	s := NewScanner(dir)
	matches, err := s.FindPattern(`posts/(?P<date>\d{4}-\d{2}-\d{2})-(?P<slug>[^/]+)\.md$`)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "posts/2024-01-02-hello.md", matches[0].Path)
	require.Equal(t, "2024-01-02", matches[0].Captures["date"])
	require.Equal(t, "hello", matches[0].Captures["slug"])
	require.Equal(t, "posts/2024-01-02-hello.md", matches[0].Captures["path"])
}

func TestFindPattern_InvalidRegex(t *testing.T) {
	s := NewScanner(t.TempDir())
	_, err := s.FindPattern(`([`)
	require.Error(t, err)
}

func TestAbs_ResolvesAgainstSourceBase(t *testing.T) {
	s := NewScanner("/src")
	require.Equal(t, filepath.Join("/src", "posts", "a.md"), s.Abs("posts/a.md"))
}
