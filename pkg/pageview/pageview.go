// Package pageview derives fixed-size, 1-indexed display pages and filtered
// search views from the accumulated record set. State here is recomputed,
// never persisted.
package pageview

import (
	"regexp"
	"sync"

	"github.com/bucketdiver/bucketdiver/pkg/dto"
)

// Source supplies the records the view paginates. Snapshots returned by All
// must be safe to keep across recomputes.
type Source interface {
	All() []dto.ObjectRecord
}

// View is the pagination and filter state over a Source. All methods
// recompute against the source's current contents, so the view follows the
// accumulator as it grows.
type View struct {
	mu          sync.Mutex
	source      Source
	pageSize    int
	currentPage int
	filterQuery string
	filterRe    *regexp.Regexp

	filtered   []dto.ObjectRecord
	pagination dto.PaginationInfo
}

// New creates a view positioned on page 1 with no filter.
func New(source Source, pageSize int) *View {
	v := &View{
		source:      source,
		pageSize:    pageSize,
		currentPage: 1,
	}
	v.recomputeLocked()
	return v
}

// SetPageSize changes the display page size and recomputes.
func (v *View) SetPageSize(n int) {
	if n <= 0 {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pageSize = n
	v.recomputeLocked()
}

// SetFilter installs a case-insensitive literal substring filter on keys.
// Regex metacharacters in the query are escaped, so the match never turns
// into a pattern. An empty query clears the filter.
func (v *View) SetFilter(query string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filterQuery = query
	if query == "" {
		v.filterRe = nil
	} else {
		v.filterRe = regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
	}
	// A new filter restarts navigation from the first page.
	v.currentPage = 1
	v.recomputeLocked()
}

// ClearFilter restores the unfiltered view.
func (v *View) ClearFilter() {
	v.SetFilter("")
}

// FilterQuery returns the active filter query, empty when unfiltered.
func (v *View) FilterQuery() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filterQuery
}

// GoToPage navigates to the 1-indexed page k, clamped into the valid range.
func (v *View) GoToPage(k int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.currentPage = k
	v.recomputeLocked()
}

// FirstPage navigates to page 1.
func (v *View) FirstPage() { v.GoToPage(1) }

// PrevPage navigates one page back.
func (v *View) PrevPage() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.currentPage--
	v.recomputeLocked()
}

// NextPage navigates one page forward.
func (v *View) NextPage() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.currentPage++
	v.recomputeLocked()
}

// LastPage navigates to the final page.
func (v *View) LastPage() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.currentPage = v.pagination.TotalPages
	v.recomputeLocked()
}

// Recompute refreshes the view against the source. Called on every
// page-ready event and on accumulator replacement.
func (v *View) Recompute() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recomputeLocked()
}

// CurrentPageRecords returns the records of the current display page.
func (v *View) CurrentPageRecords() []dto.ObjectRecord {
	v.mu.Lock()
	defer v.mu.Unlock()
	page := v.filtered[v.pagination.StartIndex:v.pagination.EndIndex]
	return append([]dto.ObjectRecord(nil), page...)
}

// TotalPages returns the page count, never less than 1.
func (v *View) TotalPages() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pagination.TotalPages
}

// CurrentPage returns the clamped 1-indexed current page.
func (v *View) CurrentPage() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pagination.CurrentPage
}

// Pagination returns the full pagination metadata of the current view.
func (v *View) Pagination() dto.PaginationInfo {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pagination
}

// recomputeLocked rebuilds the filtered sequence and pagination arithmetic.
// Callers hold v.mu.
func (v *View) recomputeLocked() {
	all := v.source.All()
	if v.filterRe == nil {
		v.filtered = all
	} else {
		filtered := make([]dto.ObjectRecord, 0, len(all))
		for _, rec := range all {
			if v.filterRe.MatchString(rec.Key) {
				filtered = append(filtered, rec)
			}
		}
		v.filtered = filtered
	}

	v.pagination = dto.NewPaginationInfo(len(v.filtered), v.pageSize, v.currentPage)
	v.currentPage = v.pagination.CurrentPage
}
