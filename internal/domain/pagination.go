package domain

// PaginationParams is a 1-based page request for list queries.
type PaginationParams struct {
	Page     int
	PageSize int
}

// Limit returns the page size, never less than one.
func (p PaginationParams) Limit() int {
	if p.PageSize < 1 {
		return 1
	}
	return p.PageSize
}

// Offset returns the number of rows that precede the page.
func (p PaginationParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}
