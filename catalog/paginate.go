package catalog

import "errors"

var ErrInvalidPageSize = errors.New("page size must be positive")

// Paginate returns the 1-indexed page of items. Pages before the first or
// past the last are empty, not errors.
func Paginate[T any](items []T, page, size int) ([]T, error) {
	if size <= 0 {
		return nil, ErrInvalidPageSize
	}
	if page < 1 || page > PageCount(len(items), size) {
		return []T{}, nil
	}
	start := (page - 1) * size
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], nil
}

// PageCount is the number of non-empty pages for n items.
func PageCount(n, size int) int {
	if size <= 0 || n <= 0 {
		return 0
	}
	pages := n / size
	if n%size != 0 {
		pages++
	}
	return pages
}
