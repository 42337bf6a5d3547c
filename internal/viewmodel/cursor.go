package viewmodel

// Cursor is a 1-indexed page position within one subset. The zero value
// points at page 1.
type Cursor struct {
	page int
}

// Page returns the current page number.
func (c *Cursor) Page() int {
	if c.page < 1 {
		return 1
	}
	return c.page
}

// Set jumps to page k. Values below 1 are clamped to 1; values past the end
// are kept and render as an empty page.
func (c *Cursor) Set(k int) {
	if k < 1 {
		k = 1
	}
	c.page = k
}

// Next advances one page unless already on (or past) the last of
// totalPages.
func (c *Cursor) Next(totalPages int) {
	if c.Page() < totalPages {
		c.page = c.Page() + 1
	}
}

// Prev moves back one page unless on page 1.
func (c *Cursor) Prev() {
	if c.Page() > 1 {
		c.page = c.Page() - 1
	}
}

// Cursors holds one independent cursor per subset for a single rendering
// context. It is not safe for concurrent use.
type Cursors struct {
	open     Cursor
	resolved Cursor
}

// For returns the cursor of subset s.
func (cs *Cursors) For(s Subset) *Cursor {
	if s == SubsetResolved {
		return &cs.resolved
	}
	return &cs.open
}
