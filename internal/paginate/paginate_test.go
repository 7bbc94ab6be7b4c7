package paginate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/webgen/internal/document"
)

func docs(n int) []*document.Document {
	out := make([]*document.Document, n)
	for i := range out {
		out[i] = document.New()
		out[i].Set("n", i)
	}
	return out
}

func TestNew_PageCountWithoutOrphans(t *testing.T) {
	p, err := New(docs(25), 10, 0, true)
	require.NoError(t, err)
	require.Equal(t, 3, p.PageCount())
}

func TestNew_OrphansAbsorbedIntoLastPage(t *testing.T) {
	// 22 items, 10 per page, 2 orphans: the 2 trailing items join page 2.
	p, err := New(docs(22), 10, 2, true)
	require.NoError(t, err)
	require.Equal(t, 2, p.PageCount())

	last, err := p.Page(1)
	require.NoError(t, err)
	require.Len(t, last.Items, 12)
	require.Equal(t, 10, last.StartIndex())
	require.Equal(t, 22, last.EndIndex())
}

func TestNew_EmptyListAllowEmptyFirst(t *testing.T) {
	p, err := New(nil, 10, 0, true)
	require.NoError(t, err)
	require.Equal(t, 1, p.PageCount())

	page, err := p.Page(0)
	require.NoError(t, err)
	require.Empty(t, page.Items)
	require.Equal(t, 0, page.StartIndex())
	require.Equal(t, 0, page.EndIndex())
}

func TestNew_EmptyListDisallowed(t *testing.T) {
	p, err := New(nil, 10, 0, false)
	require.NoError(t, err)
	require.Equal(t, 0, p.PageCount())

	_, err = p.Page(0)
	require.Error(t, err)
}

func TestNew_InvalidArguments(t *testing.T) {
	_, err := New(docs(1), 0, 0, true)
	require.Error(t, err)
	_, err = New(docs(1), 5, -1, true)
	require.Error(t, err)
}

func TestPage_OutOfRange(t *testing.T) {
	p, err := New(docs(5), 10, 0, true)
	require.NoError(t, err)
	_, err = p.Page(-1)
	require.Error(t, err)
	_, err = p.Page(1)
	require.Error(t, err)
}

func TestPage_Navigation(t *testing.T) {
	p, err := New(docs(30), 10, 0, true)
	require.NoError(t, err)

	first, err := p.Page(0)
	require.NoError(t, err)
	require.False(t, first.HasPrevious())
	require.True(t, first.HasNext())
	require.True(t, first.HasOtherPages())
	require.Equal(t, 1, first.NextPageNumber())
	require.Equal(t, 1, first.Number1())

	mid, err := p.Page(1)
	require.NoError(t, err)
	require.Equal(t, 0, mid.PreviousPageNumber())
	require.Equal(t, 10, mid.StartIndex())
	require.Equal(t, 20, mid.EndIndex())

	last, err := p.Page(2)
	require.NoError(t, err)
	require.False(t, last.HasNext())
	require.Equal(t, 3, last.PageCount())
}

func TestPages_ReturnsAllInOrder(t *testing.T) {
	p, err := New(docs(15), 10, 0, true)
	require.NoError(t, err)

	pages, err := p.Pages()
	require.NoError(t, err)
	require.Len(t, pages, 2)
	require.Equal(t, 0, pages[0].Number)
	require.Len(t, pages[0].Items, 10)
	require.Len(t, pages[1].Items, 5)
	require.Equal(t, 15, p.TotalItems())
}
