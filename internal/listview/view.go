package listview

import (
	"context"
	"sync"
)

// Status is the load state of a View.
type Status int

const (
	StatusLoading Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Ticket identifies one in-flight load. Results committed with a ticket that
// is no longer current are dropped.
type Ticket struct {
	page int
	seq  uint64
}

// Page returns the page the load was started for.
func (t Ticket) Page() int { return t.page }

// Snapshot is a consistent copy of a View's state.
type Snapshot[T any] struct {
	Status  Status
	Items   []T
	Page    PageState
	Message string
}

// View is a page-indexed list with loading/success/error states. It is safe
// for concurrent use; only the most recently begun load can commit.
type View[T any] struct {
	mu      sync.Mutex
	seq     uint64
	status  Status
	items   []T
	page    PageState
	message string
}

// NewView creates a view positioned at page 1 in the loading state.
func NewView[T any]() *View[T] {
	return &View[T]{page: NewPageState(DefaultPage, 1)}
}

// Begin moves the view to loading for page and returns the ticket for that load.
func (v *View[T]) Begin(page int) Ticket {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq++
	if page < 1 {
		page = DefaultPage
	}
	v.status = StatusLoading
	v.message = ""
	v.page = PageState{CurrentPage: page, TotalPages: max(v.page.TotalPages, page)}
	return Ticket{page: page, seq: v.seq}
}

// Commit stores a successful result. It returns false when t is stale.
func (v *View[T]) Commit(t Ticket, items []T, totalPages int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if t.seq != v.seq {
		return false
	}
	v.status = StatusSuccess
	v.items = items
	v.page = NewPageState(t.page, totalPages)
	return true
}

// Fail stores an error message. It returns false when t is stale.
func (v *View[T]) Fail(t Ticket, message string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if t.seq != v.seq {
		return false
	}
	v.status = StatusError
	v.message = message
	v.items = nil
	return true
}

// Snapshot returns the current state.
func (v *View[T]) Snapshot() Snapshot[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Snapshot[T]{Status: v.status, Items: v.items, Page: v.page, Message: v.message}
}

// Fetcher loads one page and reports the server's total page count.
type Fetcher[T any] func(ctx context.Context, page int) (items []T, totalPages int, err error)

// Load runs Begin, fetch and Commit/Fail for page and returns the resulting
// snapshot. A load overtaken by a newer Begin leaves the view untouched.
func (v *View[T]) Load(ctx context.Context, page int, fetch Fetcher[T]) (Snapshot[T], error) {
	t := v.Begin(page)
	items, total, err := fetch(ctx, t.Page())
	if err != nil {
		v.Fail(t, err.Error())
		return v.Snapshot(), err
	}
	v.Commit(t, items, total)
	return v.Snapshot(), nil
}
