package dto

// PaginationInfo holds pagination metadata for a fixed-size display page.
// Page numbers are 1-indexed (first page is 1), while StartIndex and EndIndex
// are 0-indexed positions for slicing the underlying result set.
type PaginationInfo struct {
	// CurrentPage is the current page number (1-indexed), clamped to
	// [1, TotalPages].
	CurrentPage int `json:"currentPage"`

	// TotalPages is the total number of pages. Never less than 1, even
	// for an empty result set.
	TotalPages int `json:"totalPages"`

	// TotalItems is the total number of items across all pages.
	TotalItems int `json:"totalItems"`

	// PageSize is the maximum number of items per page.
	PageSize int `json:"pageSize"`

	// HasPrevious indicates a previous page exists.
	HasPrevious bool `json:"hasPrevious"`

	// HasNext indicates a next page exists.
	HasNext bool `json:"hasNext"`

	// StartIndex is the 0-indexed position of the first item on this page.
	StartIndex int `json:"startIndex"`

	// EndIndex is the 0-indexed position (exclusive) of the last item on
	// this page, for use as items[StartIndex:EndIndex].
	EndIndex int `json:"endIndex"`
}

// NewPaginationInfo computes all derived pagination fields for totalItems
// items split into pages of pageSize, with the requested currentPage clamped
// into the valid range. When totalItems is 0, TotalPages is 1, not 0.
func NewPaginationInfo(totalItems, pageSize, currentPage int) PaginationInfo {
	totalPages := 1
	if totalItems > 0 && pageSize > 0 {
		// Ceiling division.
		totalPages = (totalItems + pageSize - 1) / pageSize
	}

	if currentPage < 1 {
		currentPage = 1
	}
	if currentPage > totalPages {
		currentPage = totalPages
	}

	startIndex := (currentPage - 1) * pageSize
	endIndex := min(startIndex+pageSize, totalItems)

	return PaginationInfo{
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		TotalItems:  totalItems,
		PageSize:    pageSize,
		HasPrevious: currentPage > 1,
		HasNext:     currentPage < totalPages,
		StartIndex:  startIndex,
		EndIndex:    endIndex,
	}
}
