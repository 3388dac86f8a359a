package flatfile

import (
	"errors"
	"fmt"
)

// ErrStructure matches every structural violation found while parsing.
var ErrStructure = errors.New("flatfile: structural violation")

// SyntaxError reports a line that does not fit the dump grammar or appears
// outside the nesting context it requires.
type SyntaxError struct {
	Line int
	Text string
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("flatfile: line %d: %s: %q", e.Line, e.Msg, e.Text)
	}
	return fmt.Sprintf("flatfile: %s: %q", e.Msg, e.Text)
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrStructure
}

func violation(ln Line, format string, args ...any) error {
	return &SyntaxError{Line: ln.LineNo, Text: ln.Raw, Msg: fmt.Sprintf(format, args...)}
}
