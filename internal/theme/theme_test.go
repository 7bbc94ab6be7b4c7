package theme

import (
	"os"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/webgen/internal/webfile"
)

// initThemeRepo creates a local git repository with a templates/ directory.
func initThemeRepo(t *testing.T, withTemplatesDir bool) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	rel := "page.html"
	if withTemplatesDir {
		rel = filepath.Join("templates", "page.html")
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "templates"), 0o750))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, rel), []byte("theme template"), 0o600))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(".")
	require.NoError(t, err)
	_, err = wt.Commit("add templates", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.org"},
	})
	require.NoError(t, err)
	return dir
}

func TestFetch_PrefersTemplatesSubdir(t *testing.T) {
	repoDir := initThemeRepo(t, true)

	dir, err := Fetch(&webfile.ThemeConfig{Git: repoDir}, t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "templates", filepath.Base(dir))
	require.FileExists(t, filepath.Join(dir, "page.html"))
}

func TestFetch_FallsBackToRepoRoot(t *testing.T) {
	repoDir := initThemeRepo(t, false)

	dir, err := Fetch(&webfile.ThemeConfig{Git: repoDir}, t.TempDir())
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "page.html"))
}

func TestFetch_MissingURL(t *testing.T) {
	_, err := Fetch(nil, t.TempDir())
	require.Error(t, err)
	_, err = Fetch(&webfile.ThemeConfig{}, t.TempDir())
	require.Error(t, err)
}

func TestFetch_BadRepository(t *testing.T) {
	_, err := Fetch(&webfile.ThemeConfig{Git: filepath.Join(t.TempDir(), "nope")}, t.TempDir())
	require.Error(t, err)
}
