// Package paginate splits document lists across numbered output pages.
//
// Semantics follow the classic Django paginator: a page holds per-page items,
// except that up to orphans trailing items are absorbed into the last page
// instead of spilling onto a nearly empty one.
package paginate

import (
	"fmt"
	"math"

	"git.home.luguber.info/inful/webgen/internal/document"
)

// Paginator slices a document list into pages.
type Paginator struct {
	items           []*document.Document
	perPage         int
	orphans         int
	allowEmptyFirst bool
	pageCount       int
}

// New creates a paginator over items.
func New(items []*document.Document, perPage, orphans int, allowEmptyFirst bool) (*Paginator, error) {
	if perPage < 1 {
		return nil, fmt.Errorf("per page must be positive, got %d", perPage)
	}
	if orphans < 0 {
		return nil, fmt.Errorf("orphans must not be negative, got %d", orphans)
	}

	p := &Paginator{
		items:           items,
		perPage:         perPage,
		orphans:         orphans,
		allowEmptyFirst: allowEmptyFirst,
	}
	if len(items) == 0 {
		if allowEmptyFirst {
			p.pageCount = 1
		}
		return p, nil
	}
	hits := len(items) - orphans
	if hits < 1 {
		hits = 1
	}
	p.pageCount = int(math.Ceil(float64(hits) / float64(perPage)))
	return p, nil
}

// PageCount returns the number of pages.
func (p *Paginator) PageCount() int { return p.pageCount }

// TotalItems returns the number of items across all pages.
func (p *Paginator) TotalItems() int { return len(p.items) }

// Page returns the 0-based page n.
func (p *Paginator) Page(n int) (*Page, error) {
	if n < 0 || n >= p.pageCount {
		return nil, fmt.Errorf("page index %d out of range [0, %d)", n, p.pageCount)
	}
	bottom := n * p.perPage
	top := bottom + p.perPage
	if top+p.orphans >= len(p.items) {
		top = len(p.items)
	}
	if bottom > len(p.items) {
		bottom = len(p.items)
	}
	return &Page{Number: n, Items: p.items[bottom:top], paginator: p}, nil
}

// Pages returns all pages in order.
func (p *Paginator) Pages() ([]*Page, error) {
	pages := make([]*Page, 0, p.pageCount)
	for n := 0; n < p.pageCount; n++ {
		page, err := p.Page(n)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// Page is one slice of a paginated list, exposed to templates.
type Page struct {
	// Number is the 0-based page index.
	Number int

	// Items are the documents on this page.
	Items []*document.Document

	paginator *Paginator
}

// Number1 returns the 1-based page number.
func (pg *Page) Number1() int { return pg.Number + 1 }

// PageCount returns the total number of pages.
func (pg *Page) PageCount() int { return pg.paginator.pageCount }

// HasNext reports whether a later page exists.
func (pg *Page) HasNext() bool { return pg.Number < pg.paginator.pageCount-1 }

// HasPrevious reports whether an earlier page exists.
func (pg *Page) HasPrevious() bool { return pg.Number > 0 }

// HasOtherPages reports whether any other page exists.
func (pg *Page) HasOtherPages() bool { return pg.HasPrevious() || pg.HasNext() }

// NextPageNumber returns the 0-based index of the following page.
func (pg *Page) NextPageNumber() int { return pg.Number + 1 }

// PreviousPageNumber returns the 0-based index of the preceding page.
func (pg *Page) PreviousPageNumber() int { return pg.Number - 1 }

// StartIndex returns the 0-based index of the first item on this page
// relative to the whole list.
func (pg *Page) StartIndex() int {
	if len(pg.paginator.items) == 0 {
		return 0
	}
	return pg.paginator.perPage * pg.Number
}

// EndIndex returns the index one past the last item on this page relative to
// the whole list. The last page absorbs orphans.
func (pg *Page) EndIndex() int {
	if pg.Number == pg.paginator.pageCount-1 {
		return len(pg.paginator.items)
	}
	return (pg.Number + 1) * pg.paginator.perPage
}
