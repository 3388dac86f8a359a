package flatfile

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystal-mush/pennport/pkg/gamedb"
)

const sampleDump = `+V74247
dbversion 5
savedtime "Sat Mar  2 10:00:00 2024"
+FLAGS LIST
flagcount 2
 name "WIZARD"
  letter "W"
  type "ANY"
  perms "trusted royalty"
  negate_perms "trusted royalty"
 name "ROYALTY"
  letter "r"
  type "ANY"
  perms "trusted royalty"
  negate_perms ""
flagaliascount 2
 name "WIZARD"
  alias "WIZ"
 name "NOSUCHFLAG"
  alias "IGNORED"
+POWER LIST
flagcount 1
 name "Builder"
  letter ""
  type "PLAYER"
  perms "wizard"
  negate_perms "wizard"
flagaliascount 1
 name "Builder"
  alias "BUILD"
+ATTRIBUTES LIST
attrcount 1
 name "DESCRIBE"
  flags "visual prefixmatch public nearby"
  creator #1
  data ""
attraliascount 1
 name "DESCRIBE"
  alias "DESC"
~3
!0
name "Room Zero"
location #-1
contents #1
exits #2
next #-1
parent #-1
lockcount 0
owner #1
zone #-1
pennies 0
type 1
flags ""
powers ""
warnings ""
created 1700000000
modified 1700000100
attrcount 1
 name "DESCRIBE"
  owner #1
  flags ""
  derefs 0
  value "A bare room.
With \"two\" lines."

!1
name "One"
location #0
contents #-1
exits #-1
next #2
parent #-1
lockcount 1
 type "Basic"
  creator #1
  flags "no_inherit"
  derefs 0
  key "=#1"
owner #1
zone #-1
pennies 150
type 8
flags "WIZARD CONNECTED"
powers "Builder"
warnings ""
created 1700000001
modified 1700000200
attrcount 2
 name "ALIAS"
  owner #1
  flags "no_command"
  derefs 0
  value "O;Won"
 name "XYXXY"
  owner #1
  flags "no_command wizard locked internal"
  derefs 0
  value "secret"
!2
name "Out;o"
location #0
contents #-1
exits #0
next #-1
parent #-1
lockcount 0
owner #1
zone #-1
pennies 0
type 4
flags ""
powers ""
warnings ""
created 1700000002
modified 1700000002
attrcount 0
***END OF DUMP***
`

func TestParseSampleDump(t *testing.T) {
	db, err := Parse(strings.NewReader(sampleDump))
	require.NoError(t, err)
	assert.False(t, db.Truncated)

	assert.Equal(t, "+V74247", db.Header.Version)
	assert.Equal(t, 5, db.Header.DBVersion)
	assert.Equal(t, "Sat Mar  2 10:00:00 2024", db.Header.SavedTime)
	assert.Equal(t, gamedb.Declared{
		Flags: 2, FlagAliases: 2, Powers: 1, PowerAlias: 1,
		Attrs: 1, AttrAliases: 1, Objects: 3,
	}, db.Declared)

	require.Len(t, db.Flags, 2)
	wiz := db.Flags["WIZARD"]
	require.NotNil(t, wiz)
	assert.Equal(t, "W", wiz.Letter)
	assert.Equal(t, gamedb.NameSet{"royalty", "trusted"}, wiz.Perms)
	assert.Equal(t, gamedb.NameSet{"WIZ"}, wiz.Aliases)
	assert.Nil(t, db.Flags["ROYALTY"].NegatePerms)
	assert.Nil(t, db.Flags["NOSUCHFLAG"])

	require.Contains(t, db.Powers, "Builder")
	assert.Equal(t, gamedb.NameSet{"BUILD"}, db.Powers["Builder"].Aliases)
	assert.Equal(t, gamedb.NameSet{"PLAYER"}, db.Powers["Builder"].Types)

	desc := db.AttrDefs["DESCRIBE"]
	require.NotNil(t, desc)
	assert.Equal(t, gamedb.DBRef(1), desc.Creator)
	assert.Equal(t, gamedb.NameSet{"DESC"}, desc.Aliases)
	assert.True(t, desc.Flags.Has("VISUAL"))

	require.Len(t, db.Objects, 3)

	room := db.Objects[0]
	assert.Equal(t, "Room Zero", room.Name)
	assert.Equal(t, gamedb.TypeRoom, room.Type)
	assert.Equal(t, gamedb.Nothing, room.Location)
	assert.Equal(t, gamedb.DBRef(2), room.Exits)
	assert.Equal(t, "A bare room.\nWith \"two\" lines.", room.Attrs["DESCRIBE"].Value)
	assert.EqualValues(t, 1700000100, room.Modified)

	one := db.Objects[1]
	assert.Equal(t, gamedb.TypePlayer, one.Type)
	assert.Equal(t, 150, one.Pennies)
	assert.True(t, one.HasFlag("wizard"))
	assert.True(t, one.HasPower("Builder"))
	assert.Equal(t, "O;Won", one.Attrs[gamedb.AttrAlias].Value)
	assert.Equal(t, "secret", one.Attrs[gamedb.AttrPassword].Value)
	require.Contains(t, one.Locks, "Basic")
	assert.Equal(t, "=#1", one.Locks["Basic"].Key)
	assert.Equal(t, gamedb.NameSet{"no_inherit"}, one.Locks["Basic"].Flags)

	exit := db.Objects[2]
	assert.Equal(t, gamedb.TypeExit, exit.Type)
	assert.Equal(t, "Out;o", exit.Name)
	assert.Empty(t, exit.Attrs)

	db.Link()
	assert.Equal(t, []*gamedb.Object{one, exit}, db.Contents(0))
	assert.Equal(t, []*gamedb.Object{exit}, db.ExitsIn(0))
	assert.Equal(t, []*gamedb.Object{one}, db.Flags["WIZARD"].Members())
	assert.Equal(t, []*gamedb.Object{one}, db.Powers["Builder"].Members())
	assert.Same(t, one, db.ByCompositeID("#1:1700000001"))
}

func TestParseTruncated(t *testing.T) {
	dump := "~2\n!5\nname \"Half\"\ntype 2\nlocation #-1\n"
	db, err := Parse(strings.NewReader(dump))
	require.NoError(t, err)
	assert.True(t, db.Truncated)
	assert.Equal(t, 2, db.Declared.Objects)
	require.Contains(t, db.Objects, gamedb.DBRef(5))
	assert.Equal(t, "Half", db.Objects[5].Name)
}

func TestParseStopsAtEndOfDump(t *testing.T) {
	dump := "~1\n!1\nname \"A\"\ntype 2\n***END OF DUMP***\nthis is not a field\n"
	db, err := Parse(strings.NewReader(dump))
	require.NoError(t, err)
	assert.False(t, db.Truncated)
	assert.Len(t, db.Objects, 1)
}

func TestParseSkipsBlankLines(t *testing.T) {
	dump := "\n~1\n\n!1\n\nname \"A\"\n   \ntype 2\n***END OF DUMP***\n"
	db, err := Parse(strings.NewReader(dump))
	require.NoError(t, err)
	assert.Equal(t, "A", db.Objects[1].Name)
}

func TestParseFreeFormHeader(t *testing.T) {
	dump := "+V2\nDumped by hand on a Tuesday\n~0\n***END OF DUMP***\n"
	db, err := Parse(strings.NewReader(dump))
	require.NoError(t, err)
	assert.Contains(t, db.Header.Lines, "Dumped by hand on a Tuesday")
}

func TestParseStructuralViolations(t *testing.T) {
	tests := []struct {
		name string
		dump string
		line int
	}{
		{
			name: "attribute detail with no open attribute",
			dump: "~1\n!1\nname \"A\"\n  value \"x\"\n",
			line: 4,
		},
		{
			name: "sub-record field in plain mode",
			dump: "~1\n!1\nname \"A\"\n name \"B\"\n",
			line: 4,
		},
		{
			name: "attribute list closed by object field",
			dump: "~1\n!1\nattrcount 1\n name \"X\"\n  value \"1\"\nowner #1\n  value \"2\"\n",
			line: 7,
		},
		{
			name: "field before first object",
			dump: "~1\nname \"A\"\n!1\n",
			line: 2,
		},
		{
			name: "duplicate object id",
			dump: "~2\n!1\nname \"A\"\n!1\nname \"B\"\n***END OF DUMP***\n",
			line: 4,
		},
		{
			name: "flag detail with no open flag",
			dump: "+FLAGS LIST\nflagcount 1\n  letter \"W\"\n",
			line: 3,
		},
		{
			name: "unquoted text value",
			dump: "~1\n!1\nflags WIZARD\n",
			line: 3,
		},
		{
			name: "nested too deep",
			dump: "~1\n!1\nattrcount 1\n name \"X\"\n   value \"1\"\n",
			line: 5,
		},
		{
			name: "reference field given text",
			dump: "~1\n!1\nowner \"me\"\n***END OF DUMP***\n",
			line: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.dump))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrStructure), "got %v", err)

			var se *SyntaxError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.line, se.Line)
		})
	}
}

func TestParseTextDecoder(t *testing.T) {
	dump := "~1\n!1\nname \"a\"\nattrcount 1\n name \"desc\"\n  value \"quiet\"\n***END OF DUMP***\n"
	db, err := Parse(strings.NewReader(dump), WithTextDecoder(strings.ToUpper))
	require.NoError(t, err)
	obj := db.Objects[1]
	assert.Equal(t, "a", obj.Name)
	assert.Equal(t, "QUIET", obj.Attrs["DESC"].Value)
}
