package document

import (
	"html/template"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExpandTarget_SubstitutesFields(t *testing.T) {
	doc := New()
	doc.Set("slug", "hello")
	doc.Set("year", 2024)

	out, err := doc.ExpandTarget("posts/{year}/{slug}.html")
	require.NoError(t, err)
	require.Equal(t, "posts/2024/hello.html", out)
}

func TestExpandTarget_EscapedBraces(t *testing.T) {
	doc := New()
	out, err := doc.ExpandTarget("literal {{braces}}.html")
	require.NoError(t, err)
	require.Equal(t, "literal {braces}.html", out)
}

func TestExpandTarget_UnsetField(t *testing.T) {
	doc := New()
	_, err := doc.ExpandTarget("{missing}.html")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing")
}

func TestExpandTarget_UnclosedPlaceholder(t *testing.T) {
	doc := New()
	_, err := doc.ExpandTarget("{slug.html")
	require.Error(t, err)
}

func TestSortBy_FieldAndReverse(t *testing.T) {
	a, b, c := New(), New(), New()
	a.Set("date", "2024-03-01")
	b.Set("date", "2024-01-01")
	c.Set("date", "2024-02-01")
	list := List{a, b, c}

	list.SortBy("date", false)
	require.Equal(t, "2024-01-01", list[0].Field("date"))
	require.Equal(t, "2024-03-01", list[2].Field("date"))

	list.SortBy("date", true)
	require.Equal(t, "2024-03-01", list[0].Field("date"))
}

func TestSortBy_NumericComparison(t *testing.T) {
	a, b := New(), New()
	a.Set("weight", 10)
	b.Set("weight", 2)
	list := List{a, b}

	list.SortBy("weight", false)
	require.Equal(t, 2, list[0].Field("weight"))
}

func TestSortBy_DefaultsToSourcePath(t *testing.T) {
	a, b := New(), New()
	a.SourcePath = "posts/b.md"
	b.SourcePath = "posts/a.md"
	list := List{a, b}

	list.SortBy("", false)
	require.Equal(t, "posts/a.md", list[0].SourcePath)
}

func TestPrepareSequences_NeighborLinks(t *testing.T) {
	list := List{New(), New(), New()}
	list.PrepareSequences()

	first, mid, last := list[0].Seq, list[1].Seq, list[2].Seq
	require.True(t, first.First)
	require.False(t, first.Last)
	require.Nil(t, first.Prev)
	require.Same(t, list[1], first.Next)

	require.Equal(t, 1, mid.Index)
	require.Equal(t, 2, mid.Index1)
	require.Equal(t, 1, mid.RevIndex)
	require.Equal(t, 2, mid.RevIndex1)
	require.Equal(t, 3, mid.Length)

	require.True(t, last.Last)
	require.Nil(t, last.Next)
	require.Same(t, list[1], last.Prev)
}

func TestLoadMarkdown_FrontmatterAndContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "post.md")
	require.NoError(t, os.WriteFile(path, []byte("---\ntitle: Hello\n---\n# Heading\n"), 0o600))

	doc, err := LoadMarkdown(path)
	require.NoError(t, err)
	require.Equal(t, "Hello", doc.Field("title"))
	content, ok := doc.Field("content").(template.HTML)
	require.True(t, ok)
	require.Contains(t, string(content), "<h1>Heading</h1>")
}

func TestLoadMarkdown_MissingFile(t *testing.T) {
	_, err := LoadMarkdown(filepath.Join(t.TempDir(), "nope.md"))
	require.Error(t, err)
}

func TestLoadYAML_Mapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: Hi\ntags: [a]\n"), 0o600))

	doc, err := LoadYAML(path)
	require.NoError(t, err)
	require.Equal(t, "Hi", doc.Field("title"))
}

func TestLoadYAMLList_SharedFieldsAndSequences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.yaml")
	content := "title: Gallery\nitems:\n  - name: one\n  - name: two\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	list, err := LoadYAMLList(path, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Gallery", list[0].Field("title"))
	require.Equal(t, "one", list[0].Field("name"))
	require.NotNil(t, list[0].Seq)
	require.Same(t, list[1], list[0].Seq.Next)
}

func TestLoadYAMLList_MissingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: x\n"), 0o600))

	_, err := LoadYAMLList(path, "items")
	require.Error(t, err)
}

func TestStaticFile_NeedsBuildAndInstall(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "style.css")
	dst := filepath.Join(dir, "out", "style.css")
	require.NoError(t, os.WriteFile(src, []byte("body{}"), 0o600))

	sf := NewStaticFile(src, nil)
	require.True(t, sf.NeedsBuild(dst))

	copied, err := sf.Install(dst, false)
	require.NoError(t, err)
	require.True(t, copied)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "body{}", string(data))

	// Fresh target: skipped unless forced.
	require.NoError(t, os.Chtimes(dst, time.Now(), time.Now()))
	copied, err = sf.Install(dst, false)
	require.NoError(t, err)
	require.False(t, copied)

	copied, err = sf.Install(dst, true)
	require.NoError(t, err)
	require.True(t, copied)
}
