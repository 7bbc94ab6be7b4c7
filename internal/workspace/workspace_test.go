package workspace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateSubdirCleanup(t *testing.T) {
	w := New(t.TempDir())
	require.Empty(t, w.Path())

	require.NoError(t, w.Create())
	require.DirExists(t, w.Path())

	sub, err := w.Subdir("theme")
	require.NoError(t, err)
	require.DirExists(t, sub)

	dir := w.Path()
	require.NoError(t, w.Cleanup())
	require.NoDirExists(t, dir)
	require.Empty(t, w.Path())

	// Cleanup twice is fine.
	require.NoError(t, w.Cleanup())
}

func TestSubdir_RequiresCreate(t *testing.T) {
	w := New(t.TempDir())
	_, err := w.Subdir("x")
	require.Error(t, err)
}
