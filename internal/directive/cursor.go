package directive

// Line is one line of source text.
type Line struct {
	Text       string // without the line terminator
	Number     int    // 1-based
	Terminated bool   // false only for a final line with no newline
}

// Cursor walks a source text line by line. Every access is bounds checked, so
// a file that does not end in a newline is handled like any other.
type Cursor struct {
	source string
	pos    int
	line   int
}

// NewCursor creates a cursor at the start of source.
func NewCursor(source string) *Cursor {
	return &Cursor{source: source}
}

// Done reports whether every line has been consumed.
func (c *Cursor) Done() bool {
	return c.pos >= len(c.source)
}

// Next returns the next line. A "\r" before the "\n" is dropped from Text.
func (c *Cursor) Next() (Line, bool) {
	if c.Done() {
		return Line{}, false
	}

	start := c.pos
	end := start
	for end < len(c.source) && c.source[end] != '\n' {
		end++
	}

	c.line++
	l := Line{Number: c.line, Terminated: end < len(c.source)}

	text := c.source[start:end]
	if l.Terminated && len(text) > 0 && text[len(text)-1] == '\r' {
		text = text[:len(text)-1]
	}
	l.Text = text

	c.pos = end
	if l.Terminated {
		c.pos++
	}
	return l, true
}

// Line returns the number of the last line returned by Next.
func (c *Cursor) Line() int {
	return c.line
}
