package flatfile

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// LineReader splits a dump into logical lines. A newline inside a quoted
// value does not end the line, and a backslash inside quotes makes the next
// character literal (the backslash itself is dropped). Carriage returns are
// discarded everywhere.
//
// The reader works on runes; wrap raw latin-1 input with Decode first.
type LineReader struct {
	r       *bufio.Reader
	buf     strings.Builder
	quoted  bool
	escaped bool
	line    int // physical line of the next rune
	start   int // physical line the last returned logical line began on
	done    bool
}

// NewLineReader returns a LineReader over r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{
		r:    bufio.NewReaderSize(r, 256*1024),
		line: 1,
	}
}

// LineNo returns the physical line on which the last logical line started.
func (lr *LineReader) LineNo() int {
	return lr.start
}

// Next returns the next logical line, or io.EOF once input is exhausted.
// Content left in the buffer at end of input is returned as a final line
// even if a quote or escape was never closed.
func (lr *LineReader) Next() (string, error) {
	if lr.done {
		return "", io.EOF
	}
	lr.buf.Reset()
	lr.start = lr.line

	for {
		c, _, err := lr.r.ReadRune()
		if err == io.EOF {
			lr.done = true
			if lr.buf.Len() > 0 {
				return lr.buf.String(), nil
			}
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("flatfile: read at line %d: %w", lr.line, err)
		}
		if c == '\n' {
			lr.line++
		}

		switch {
		case c == '\r':
			// dropped, even when escaped
		case lr.quoted && lr.escaped:
			lr.escaped = false
			lr.buf.WriteRune(c)
		case lr.quoted && c == '\\':
			lr.escaped = true
		case c == '"':
			lr.quoted = !lr.quoted
			lr.buf.WriteRune(c)
		case !lr.quoted && c == '\n':
			return lr.buf.String(), nil
		default:
			lr.buf.WriteRune(c)
		}
	}
}
