package expr

// cursor is an owned position into the cleaned expression text. It is passed
// down the recursive split calls instead of sharing a mutable index by
// reference, so no two stack frames can alias each other's progress.
type cursor struct {
	src string
	pos int
}

func newCursor(src string) *cursor {
	return &cursor{src: src}
}

// peek returns the current byte without consuming it.
func (c *cursor) peek() (byte, bool) {
	if c.pos >= len(c.src) {
		return 0, false
	}
	return c.src[c.pos], true
}

// next consumes and returns the current byte.
func (c *cursor) next() (byte, bool) {
	b, ok := c.peek()
	if ok {
		c.pos++
	}
	return b, ok
}

// slice returns the source text between two positions, for debug output.
func (c *cursor) slice(from, to int) string {
	return c.src[from:to]
}
