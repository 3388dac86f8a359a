package flatfile

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, input string) ([]string, []int) {
	t.Helper()
	lr := NewLineReader(strings.NewReader(input))
	var lines []string
	var starts []int
	for {
		text, err := lr.Next()
		if errors.Is(err, io.EOF) {
			return lines, starts
		}
		require.NoError(t, err)
		lines = append(lines, text)
		starts = append(starts, lr.LineNo())
	}
}

func TestLineReaderQuotedNewline(t *testing.T) {
	lines, starts := readAll(t, "value \"a\nb\"\r\nnext 1\n")
	assert.Equal(t, []string{"value \"a\nb\"", "next 1"}, lines)
	assert.Equal(t, []int{1, 3}, starts)
}

func TestLineReaderEscapes(t *testing.T) {
	lines, _ := readAll(t, `value "say \"hi\" \\o/"`+"\n")
	require.Len(t, lines, 1)
	assert.Equal(t, `value "say "hi" \o/"`, lines[0])

	ln, err := ParseLine(lines[0])
	require.NoError(t, err)
	assert.Equal(t, `say "hi" \o/`, ln.Str)
}

func TestLineReaderBackslashOutsideQuotes(t *testing.T) {
	lines, _ := readAll(t, "a \\b\n")
	assert.Equal(t, []string{`a \b`}, lines)
}

func TestLineReaderDropsCarriageReturns(t *testing.T) {
	lines, _ := readAll(t, "one 1\r\ntwo \"x\r\ny\"\r\n")
	assert.Equal(t, []string{"one 1", "two \"x\ny\""}, lines)
}

func TestLineReaderFlushesUnterminated(t *testing.T) {
	lines, _ := readAll(t, `name "abc`)
	assert.Equal(t, []string{`name "abc`}, lines)

	lines, _ = readAll(t, "name \"abc\\")
	assert.Equal(t, []string{`name "abc`}, lines)

	lines, _ = readAll(t, "last 1")
	assert.Equal(t, []string{"last 1"}, lines)
}

func TestLineReaderEmpty(t *testing.T) {
	lines, _ := readAll(t, "")
	assert.Empty(t, lines)

	lines, _ = readAll(t, "\n\n")
	assert.Equal(t, []string{"", ""}, lines)
}

func TestLineReaderPreservesBalancedContent(t *testing.T) {
	input := "a 1\nb \"multi\nline\ntext\"\nc #3\n"
	lines, _ := readAll(t, input)
	assert.Equal(t, input, strings.Join(lines, "\n")+"\n")
}
