package flatfile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		text string
		want Line
	}{
		{`  NAME "hello world"`, Line{Depth: 2, Name: "NAME", Kind: KindText, Str: "hello world"}},
		{`location #123`, Line{Name: "location", Kind: KindReference, Num: 123}},
		{`parent #-1`, Line{Name: "parent", Kind: KindReference, Num: -1}},
		{`pennies 55`, Line{Name: "pennies", Kind: KindNumber, Num: 55}},
		{` name ""`, Line{Depth: 1, Name: "name", Kind: KindText}},
		{`data "unterminated`, Line{Name: "data", Kind: KindText, Str: "unterminated"}},
		{`!42`, Line{Header: true, Kind: KindReference, Num: 42}},
		{`~17`, Line{Header: true, Kind: KindNumber, Num: 17}},
		{`+FLAGS LIST`, Line{Header: true}},
		{`***END OF DUMP***`, Line{Header: true}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseLine(tt.text)
			require.NoError(t, err)
			tt.want.Raw = tt.text
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLineViolations(t *testing.T) {
	for _, text := range []string{
		`flags WIZARD`,
		`justaword`,
		`owner #abc`,
		`!abc`,
		``,
	} {
		t.Run(text, func(t *testing.T) {
			_, err := ParseLine(text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrStructure))
		})
	}
}

func TestLineText(t *testing.T) {
	ref, _ := ParseLine("owner #7")
	assert.Equal(t, "#7", ref.Text())
	assert.EqualValues(t, 7, ref.Ref())

	num, _ := ParseLine("pennies 10")
	assert.Equal(t, "10", num.Text())

	txt, _ := ParseLine(`name "#7"`)
	assert.Equal(t, "#7", txt.Text())
	assert.EqualValues(t, -1, txt.Ref())
}
