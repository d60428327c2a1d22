// internal/pagination/pagination.go
//
// Page-number pagination for list views and the JSON API.
//
// Context
//   Lists are addressed as ?page=N&per_page=M.  A bad page number is not an
//   error: non-numeric or < 1 yields the first page, past-the-end yields the
//   last page.  per_page defaults to 20 and is capped at 100.
//
// Workflow
//   p := pagination.New(total, pagination.PerPage(r))
//   pg := p.Page(r.URL.Query().Get("page"))
//   q = q.Limit(pg.Limit()).Offset(pg.Offset())
//
//------------------------------------------------------------------------------

package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Ellipsis is the PageRange marker for a gap.
const Ellipsis = 0

// Paginator splits Count items into pages of PerPage.
type Paginator struct {
	Count   int
	PerPage int
}

// New returns a Paginator; perPage is clamped to [1, MaxPerPage].
func New(count, perPage int) Paginator {
	return Paginator{Count: max(count, 0), PerPage: clampPerPage(perPage)}
}

// NumPages is at least 1 so an empty list still has a first page.
func (p Paginator) NumPages() int {
	if p.Count == 0 {
		return 1
	}
	return (p.Count + p.PerPage - 1) / p.PerPage
}

// Page resolves a raw page parameter.
func (p Paginator) Page(raw string) Page {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		n = 1
	}
	if last := p.NumPages(); n > last {
		n = last
	}
	return Page{Number: n, p: p}
}

// PerPage reads ?per_page, falling back to DefaultPerPage.
func PerPage(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("per_page"))
	if err != nil {
		return DefaultPerPage
	}
	return clampPerPage(n)
}

func clampPerPage(n int) int {
	switch {
	case n < 1:
		return DefaultPerPage
	case n > MaxPerPage:
		return MaxPerPage
	}
	return n
}

// Page is one resolved page.
type Page struct {
	Number int
	p      Paginator
}

func (pg Page) Limit() uint64  { return uint64(pg.p.PerPage) }
func (pg Page) Offset() uint64 { return uint64((pg.Number - 1) * pg.p.PerPage) }
func (pg Page) HasNext() bool  { return pg.Number < pg.p.NumPages() }
func (pg Page) HasPrev() bool  { return pg.Number > 1 }
func (pg Page) NumPages() int  { return pg.p.NumPages() }
func (pg Page) Count() int     { return pg.p.Count }

// Range is PageRange around this page with the default widths.
func (pg Page) Range() []int { return pg.p.PageRange(pg.Number, 3, 2) }

// PageRange lists page numbers to render around current: onEachSide pages
// either side and onEnds pages at each end, with Ellipsis for gaps.
func (p Paginator) PageRange(current, onEachSide, onEnds int) []int {
	last := p.NumPages()
	if last <= (onEachSide+onEnds)*2 {
		return seq(1, last)
	}

	var out []int
	if current > 1+onEachSide+onEnds+1 {
		out = append(out, seq(1, onEnds)...)
		out = append(out, Ellipsis)
		out = append(out, seq(current-onEachSide, current)...)
	} else {
		out = append(out, seq(1, current)...)
	}

	if current < last-onEachSide-onEnds-1 {
		out = append(out, seq(current+1, current+onEachSide)...)
		out = append(out, Ellipsis)
		out = append(out, seq(last-onEnds+1, last)...)
	} else {
		out = append(out, seq(current+1, last)...)
	}
	return out
}

func seq(from, to int) []int {
	if to < from {
		return nil
	}
	s := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		s = append(s, i)
	}
	return s
}

// Meta is the JSON envelope block for paginated API responses.
type Meta struct {
	Count    int  `json:"count"`
	Page     int  `json:"page"`
	PerPage  int  `json:"per_page"`
	NumPages int  `json:"num_pages"`
	HasNext  bool `json:"has_next"`
	HasPrev  bool `json:"has_previous"`
}

// Meta summarises pg for JSON.
func (pg Page) Meta() Meta {
	return Meta{
		Count:    pg.p.Count,
		Page:     pg.Number,
		PerPage:  pg.p.PerPage,
		NumPages: pg.NumPages(),
		HasNext:  pg.HasNext(),
		HasPrev:  pg.HasPrev(),
	}
}
