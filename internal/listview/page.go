package listview

import (
	"strconv"
	"strings"
)

// DefaultPage is used when the page parameter is absent or invalid.
const DefaultPage = 1

// PageState is the pagination position of a list view.
// CurrentPage is always within [1, TotalPages].
type PageState struct {
	CurrentPage int
	TotalPages  int
}

// NewPageState clamps total to at least 1 and page into [1, total].
func NewPageState(page, total int) PageState {
	if total < 1 {
		total = 1
	}
	if page < 1 {
		page = 1
	}
	if page > total {
		page = total
	}
	return PageState{CurrentPage: page, TotalPages: total}
}

// ParsePage reads a ?page= value; anything that is not a positive integer is DefaultPage.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return DefaultPage
	}
	return n
}

// HasPrev reports whether the previous-page control is shown.
func (p PageState) HasPrev() bool { return p.CurrentPage > 1 }

// HasNext reports whether the next-page control is shown.
func (p PageState) HasNext() bool { return p.CurrentPage < p.TotalPages }

// PrevPage returns the previous page number, or the current one at the start.
func (p PageState) PrevPage() int {
	if p.HasPrev() {
		return p.CurrentPage - 1
	}
	return p.CurrentPage
}

// NextPage returns the next page number, or the current one at the end.
func (p PageState) NextPage() int {
	if p.HasNext() {
		return p.CurrentPage + 1
	}
	return p.CurrentPage
}
