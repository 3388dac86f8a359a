package flatfile

import (
	"strconv"
	"strings"

	"github.com/crystal-mush/pennport/pkg/gamedb"
)

// ValueKind is the type a field line's value was written as.
type ValueKind int

const (
	KindNone ValueKind = iota
	KindReference
	KindText
	KindNumber
)

// Section marker sigils.
const (
	markerPlus   = '+'
	markerTilde  = '~'
	markerObject = '!'
	markerStar   = '*'
)

// Line is one classified logical line.
//
// Header lines carry their raw text; a "!" marker also carries the object
// id in Num, and a numeric "~" marker the declared object count. Field
// lines carry Depth, Name and a typed value.
type Line struct {
	Raw    string
	Header bool
	Name   string
	Kind   ValueKind
	Str    string
	Num    int64
	Depth  int
	LineNo int
}

// Text returns the value as a string regardless of its kind.
func (l Line) Text() string {
	switch l.Kind {
	case KindText:
		return l.Str
	case KindReference:
		return "#" + strconv.FormatInt(l.Num, 10)
	case KindNumber:
		return strconv.FormatInt(l.Num, 10)
	}
	return ""
}

// Ref returns the value as an object reference. Text values are Nothing.
func (l Line) Ref() gamedb.DBRef {
	if l.Kind == KindReference || l.Kind == KindNumber {
		return gamedb.DBRef(l.Num)
	}
	return gamedb.Nothing
}

// ParseLine classifies one logical line.
func ParseLine(text string) (Line, error) {
	ln := Line{Raw: text}
	if text == "" {
		return ln, violation(ln, "empty line")
	}

	switch text[0] {
	case markerObject:
		ln.Header = true
		n, err := strconv.ParseInt(strings.TrimSpace(text[1:]), 10, 64)
		if err != nil {
			return ln, violation(ln, "object marker without numeric id")
		}
		ln.Kind = KindReference
		ln.Num = n
		return ln, nil
	case markerTilde:
		ln.Header = true
		if n, err := strconv.ParseInt(strings.TrimSpace(text[1:]), 10, 64); err == nil {
			ln.Kind = KindNumber
			ln.Num = n
		}
		return ln, nil
	case markerPlus, markerStar:
		ln.Header = true
		return ln, nil
	}

	trimmed := strings.TrimLeft(text, " ")
	ln.Depth = len(text) - len(trimmed)
	name, value, ok := strings.Cut(trimmed, " ")
	if !ok || name == "" {
		return ln, violation(ln, "field line missing value")
	}
	ln.Name = name

	switch {
	case strings.HasPrefix(value, `"`):
		ln.Kind = KindText
		v := value[1:]
		if strings.HasSuffix(v, `"`) {
			v = v[:len(v)-1]
		}
		ln.Str = v
	case strings.HasPrefix(value, "#"):
		n, err := strconv.ParseInt(value[1:], 10, 64)
		if err != nil {
			return ln, violation(ln, "malformed reference %q", value)
		}
		ln.Kind = KindReference
		ln.Num = n
	default:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return ln, violation(ln, "malformed number %q", value)
		}
		ln.Kind = KindNumber
		ln.Num = n
	}
	return ln, nil
}
