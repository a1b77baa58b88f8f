// Package paging holds the page/limit arithmetic shared by list endpoints.
package paging

// Bounds describes the default and the maximum page size of a listing
type Bounds struct {
	DefaultLimit int
	MaxLimit     int
}

// Page is an effective, clamped page request
type Page struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Resolve applies defaults to missing or non-positive values and caps the limit
func (b Bounds) Resolve(page, limit *int) Page {
	p := Page{Page: 1, Limit: b.DefaultLimit}
	if page != nil && *page > 0 {
		p.Page = *page
	}
	if limit != nil && *limit > 0 {
		p.Limit = *limit
	}
	if p.Limit > b.MaxLimit {
		p.Limit = b.MaxLimit
	}
	return p
}

// TotalPages returns ceil(total/limit), zero for an empty result
func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
