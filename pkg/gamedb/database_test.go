package gamedb

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTestDB(objects ...*Object) *Database {
	db := NewDatabase()
	for _, obj := range objects {
		db.Objects[obj.ID] = obj
	}
	return db
}

func obj(id DBRef, typ ObjectType, name string) *Object {
	o := NewObject(id)
	o.Type = typ
	o.Name = name
	o.Created = int64(1000 + id)
	return o
}

func TestLinkContainment(t *testing.T) {
	room := obj(1, TypeRoom, "Lobby")
	thing := obj(2, TypeThing, "Box")
	thing.Location = 1

	db := makeTestDB(room, thing)
	db.Link()

	require.Len(t, db.Contents(1), 1)
	assert.Same(t, thing, db.Contents(1)[0])
	assert.Same(t, room, thing.Links.Location)
	assert.Nil(t, room.Links.Location)
}

func TestLinkDanglingParentIsAbsent(t *testing.T) {
	thing := obj(5, TypeThing, "Orphan")
	thing.Parent = 999
	thing.Owner = 42

	db := makeTestDB(thing)
	require.NotPanics(t, db.Link)

	assert.Nil(t, thing.Links.Parent)
	assert.Nil(t, thing.Links.Owner)
	assert.Empty(t, db.Children(999))
}

func TestLinkBackReferences(t *testing.T) {
	room := obj(0, TypeRoom, "Limbo")
	wiz := obj(1, TypePlayer, "One")
	wiz.Location = 0
	wiz.Flags = ParseNameSet("WIZARD CONNECTED")
	parent := obj(3, TypeThing, "Parent")
	parent.Owner = 1
	child := obj(4, TypeThing, "Child")
	child.Parent = 3
	child.Owner = 1
	child.Zone = 0
	exit := obj(5, TypeExit, "Out")
	exit.Exits = 0
	exit.Location = 0

	db := makeTestDB(room, wiz, parent, child, exit)
	db.Flags["WIZARD"] = &Flag{Name: "WIZARD", Letter: "W"}
	db.Link()

	assert.Equal(t, []*Object{child}, db.Children(3))
	assert.Equal(t, []*Object{parent, child}, db.Owned(1))
	assert.Equal(t, []*Object{child}, db.Zoned(0))
	assert.Equal(t, []*Object{exit}, db.ExitsIn(0))
	assert.Equal(t, []*Object{wiz, exit}, db.Contents(0))
	assert.Equal(t, []*Object{wiz}, db.Flags["WIZARD"].Members())
	assert.Equal(t, []*Object{wiz}, db.OfType(TypePlayer))
}

func TestLinkTwiceIsIdentical(t *testing.T) {
	room := obj(1, TypeRoom, "Lobby")
	thing := obj(2, TypeThing, "Box")
	thing.Location = 1
	thing.Owner = 3
	thing.Flags = ParseNameSet("PUPPET")
	player := obj(3, TypePlayer, "Bob")
	player.Location = 1
	player.Parent = 77

	db := makeTestDB(room, thing, player)
	db.Flags["PUPPET"] = &Flag{Name: "PUPPET"}
	db.Powers["BUILDER"] = &Flag{Name: "BUILDER"}

	db.Link()
	first := db.IndexSummary()
	db.Link()
	second := db.IndexSummary()

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("second Link changed indices (-first +second):\n%s", diff)
	}
	assert.Equal(t, []DBRef{2, 3}, second.Contents[1])
}

func TestLookups(t *testing.T) {
	thing := obj(12, TypeThing, "Widget")
	thing.Created = 1700000000
	db := makeTestDB(thing)
	db.Link()

	assert.Same(t, thing, db.ByReference("#12"))
	assert.Same(t, thing, db.ByCompositeID("#12:1700000000"))
	assert.Same(t, thing, db.FindObject("#12:1700000000"))
	assert.Same(t, thing, db.FindObject(" #12 "))
	assert.Nil(t, db.ByReference("#13"))
	assert.Nil(t, db.ByCompositeID("#12:1"))
	assert.Nil(t, db.FindObject(""))
	assert.Nil(t, db.FindObject("Widget"))
}

func TestMatchName(t *testing.T) {
	db := makeTestDB(
		obj(1, TypeThing, "Core Code Parent <CCP>"),
		obj(2, TypeThing, "Core"),
		obj(3, TypeThing, "Core Code Parent <CCP> backup"),
	)
	assert.Equal(t, DBRef(1), db.MatchName("core code parent <ccp>").ID)
	assert.Equal(t, DBRef(1), db.MatchName("Core Code").ID)
	assert.Equal(t, DBRef(2), db.MatchName("CORE").ID)
	assert.Nil(t, db.MatchName("Nope"))
}

func TestNameSet(t *testing.T) {
	s := ParseNameSet("WIZARD  DARK WIZARD")
	assert.Equal(t, NameSet{"DARK", "WIZARD"}, s)
	assert.True(t, s.Has("wizard"))
	assert.False(t, s.Has("ROYALTY"))
	assert.Nil(t, ParseNameSet("   "))
	assert.Equal(t, NameSet{"DARK", "HAVEN", "WIZARD"}, s.Add("HAVEN").Add("DARK"))
}
