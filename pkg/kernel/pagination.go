package kernel

// Page represents pagination metadata
type Page struct {
	Number int `json:"page"`
	Size   int `json:"page_size"`
	Total  int `json:"total"`
	Pages  int `json:"pages"`
}

// Paginated is a generic container for paginated data with metadata
type Paginated[T any] struct {
	Items []T  `json:"items"`
	Page  Page `json:"pagination"`
	Empty bool `json:"empty"`
}

func NewPaginated[T any](items []T, page, size, total int) Paginated[T] {
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	if items == nil {
		items = []T{}
	}

	return Paginated[T]{
		Items: items,
		Page: Page{
			Number: page,
			Size:   size,
			Total:  total,
			Pages:  pages,
		},
		Empty: len(items) == 0,
	}
}

func (p Paginated[T]) HasNext() bool {
	return p.Page.Number < p.Page.Pages
}

func (p Paginated[T]) HasPrevious() bool {
	return p.Page.Number > 1
}

// PaginationOptions holds options for pagination queries
type PaginationOptions struct {
	Page     int `query:"page"`
	PageSize int `query:"page_size"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps the options to a 1-based page and a bounded size.
func (o PaginationOptions) Normalize() PaginationOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.PageSize < 1 {
		o.PageSize = DefaultPageSize
	}
	if o.PageSize > MaxPageSize {
		o.PageSize = MaxPageSize
	}
	return o
}

// Paginate slices an in-memory collection.
func Paginate[T any](all []T, opts PaginationOptions) Paginated[T] {
	opts = opts.Normalize()
	start := (opts.Page - 1) * opts.PageSize
	if start > len(all) {
		start = len(all)
	}
	end := min(start+opts.PageSize, len(all))
	return NewPaginated(all[start:end:end], opts.Page, opts.PageSize, len(all))
}
