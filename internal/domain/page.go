package domain

import "math"

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MinPageSize     = 1
	MaxPageSize     = 100
)

// Page is a bounded slice of results plus the metadata a client needs to
// iterate over the rest.
type Page struct {
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
	Results    []ProbeResult `json:"results"`
}

// TotalPages is ceil(total/pageSize), and 0 for an empty store.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// Offset returns how many rows precede the given 1-based page. It saturates
// at math.MaxInt instead of overflowing.
func Offset(page, pageSize int) int {
	if page < 1 || pageSize <= 0 {
		return 0
	}
	if page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (page - 1) * pageSize
}

// ValidPage reports whether page and pageSize are inside the accepted bounds.
func ValidPage(page, pageSize int) bool {
	return page >= 1 && pageSize >= MinPageSize && pageSize <= MaxPageSize
}
