package sourcemap

import "sort"

// LineIndex converts byte offsets in a source text to line and column
// numbers. Line starts are computed once so lookups are a binary search.
type LineIndex struct {
	size       int
	lineStarts []int
}

// NewLineIndex creates a LineIndex for the given source. LF, CRLF and a lone
// CR all terminate a line.
func NewLineIndex(source string) *LineIndex {
	idx := &LineIndex{
		size:       len(source),
		lineStarts: []int{0},
	}

	for i := 0; i < len(source); i++ {
		switch source[i] {
		case '\n':
		case '\r':
			if i+1 < len(source) && source[i+1] == '\n' {
				i++
			}
		default:
			continue
		}
		if i+1 < len(source) {
			idx.lineStarts = append(idx.lineStarts, i+1)
		}
	}

	return idx
}

// LineCount returns the number of lines in the source. An empty source has
// one (empty) line.
func (idx *LineIndex) LineCount() int {
	return len(idx.lineStarts)
}

// ByteOffsetToLineColumn converts a byte offset to a 0-indexed line and byte
// column. Offsets outside the source are clamped.
func (idx *LineIndex) ByteOffsetToLineColumn(offset int) (line, col int) {
	if offset < 0 || idx.size == 0 {
		return 0, 0
	}
	if offset > idx.size {
		offset = idx.size
	}

	line = sort.Search(len(idx.lineStarts), func(i int) bool {
		return idx.lineStarts[i] > offset
	}) - 1
	if line < 0 {
		line = 0
	}

	return line, offset - idx.lineStarts[line]
}

// LineStart returns the byte offset at which the 0-indexed line begins.
func (idx *LineIndex) LineStart(line int) int {
	if line <= 0 {
		return 0
	}
	if line >= len(idx.lineStarts) {
		return idx.size
	}
	return idx.lineStarts[line]
}
