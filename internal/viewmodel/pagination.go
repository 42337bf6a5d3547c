package viewmodel

// PageSize is the number of markets shown per page.
const PageSize = 6

// PageCount returns ceil(n/size). A non-positive size counts as PageSize.
func PageCount(n, size int) int {
	if size <= 0 {
		size = PageSize
	}
	if n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Paginate returns items at offsets [size*(page-1), size*page). Pages outside
// 1..PageCount yield an empty slice rather than an error.
func Paginate[T any](items []T, page, size int) []T {
	if size <= 0 {
		size = PageSize
	}
	if page < 1 || page > PageCount(len(items), size) {
		return []T{}
	}
	start := (page - 1) * size
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// Page is one page of a subset along with the metadata the pagination
// controls need.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
	Total      int `json:"total"`
	PageSize   int `json:"page_size"`
}

// NewPage paginates items with the default page size.
func NewPage[T any](items []T, page int) Page[T] {
	return Page[T]{
		Items:      Paginate(items, page, PageSize),
		Page:       page,
		TotalPages: PageCount(len(items), PageSize),
		Total:      len(items),
		PageSize:   PageSize,
	}
}
