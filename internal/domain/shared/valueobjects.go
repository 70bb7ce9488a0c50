package shared

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Objects
// ═══════════════════════════════════════════════════════════════════════════

const (
	DefaultPageSize = 10
	MaxPageSize     = 20
)

// Page is an offset page request. Page numbers start at zero.
type Page struct {
	Number int
	Size   int
}

// NewPage normalizes page and size: negative pages become 0, size <= 0 becomes
// the default and sizes above MaxPageSize are capped.
func NewPage(number, size int) Page {
	if number < 0 {
		number = 0
	}
	return Page{Number: number, Size: clampSize(size)}
}

// Offset returns the offset for database queries.
func (p Page) Offset() int {
	return p.Number * p.Size
}

// Limit returns the limit for database queries.
func (p Page) Limit() int {
	return p.Size
}

// Cursor is a keyset page request over descending IDs. A zero After starts
// from the newest row.
type Cursor struct {
	After int64
	Size  int
}

// NewCursor normalizes a cursor request.
func NewCursor(after int64, size int) Cursor {
	if after < 0 {
		after = 0
	}
	return Cursor{After: after, Size: clampSize(size)}
}

// HasStart reports whether the cursor continues from a previous page.
func (c Cursor) HasStart() bool {
	return c.After > 0
}

func clampSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// PageResult is one page of an offset listing.
type PageResult[T any] struct {
	Items         []T
	Page          int
	Size          int
	TotalElements int64
}

// TotalPages returns the number of pages for TotalElements.
func (r PageResult[T]) TotalPages() int {
	if r.Size <= 0 {
		return 0
	}
	return int((r.TotalElements + int64(r.Size) - 1) / int64(r.Size))
}

// HasNext reports whether a later page exists.
func (r PageResult[T]) HasNext() bool {
	return r.Page+1 < r.TotalPages()
}

// CursorResult is one page of a keyset listing.
type CursorResult[T any] struct {
	Items      []T
	NextCursor int64
	HasNext    bool
}
