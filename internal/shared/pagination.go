package shared

import "math"

const (
	// DefaultPage is the first page of any listing.
	DefaultPage = 1
	// DefaultPerPage is used when callers pass a non-positive page size.
	DefaultPerPage = 20
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page <= 0 {
		page = DefaultPage
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Bounds returns the half-open [start, end) window of the current page.
func (p Pagination) Bounds() (int, int) {
	start := (p.Page - 1) * p.PerPage
	if start > p.Total {
		start = p.Total
	}
	end := start + p.PerPage
	if end > p.Total {
		end = p.Total
	}
	return start, end
}

// Paginate slices items to the requested page.
func Paginate[T any](items []T, page, perPage int) ([]T, Pagination) {
	meta := NewPagination(page, perPage, len(items))
	start, end := meta.Bounds()
	return items[start:end], meta
}
