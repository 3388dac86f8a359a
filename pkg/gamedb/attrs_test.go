package gamedb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withAttrs(o *Object, kv ...string) *Object {
	for i := 0; i+1 < len(kv); i += 2 {
		o.Attrs[kv[i]] = &Attr{Name: kv[i], Value: kv[i+1], Owner: 1}
	}
	return o
}

func TestGetInherits(t *testing.T) {
	grand := withAttrs(obj(1, TypeThing, "Grand"), "COBJ`ACCOUNTS", "#10", "DESCRIBE", "old")
	parent := withAttrs(obj(2, TypeThing, "Parent"), "DESCRIBE", "parent")
	parent.Parent = 1
	child := obj(3, TypeThing, "Child")
	child.Parent = 2

	db := makeTestDB(grand, parent, child)
	db.Link()

	a, ok := child.Get("describe", true)
	require.True(t, ok)
	assert.Equal(t, "parent", a.Value)

	assert.Equal(t, "#10", child.Value("COBJ`ACCOUNTS", true))
	assert.Equal(t, "", child.Value("COBJ`ACCOUNTS", false))

	_, ok = child.Get("DESCRIBE", false)
	assert.False(t, ok)
}

func TestGetSurvivesParentLoop(t *testing.T) {
	a := obj(1, TypeThing, "A")
	b := obj(2, TypeThing, "B")
	a.Parent = 2
	b.Parent = 1

	db := makeTestDB(a, b)
	db.Link()

	_, ok := a.Get("MISSING", true)
	assert.False(t, ok)
	assert.Equal(t, []*Object{b}, a.Ancestors())
}

func TestLAttr(t *testing.T) {
	parent := withAttrs(obj(1, TypeThing, "Parent"), "D`DISTRICT", "1", "D`NAME", "Old Town", "DESCRIBE", "x")
	child := withAttrs(obj(2, TypeThing, "Child"), "D`NAME", "New Town", "D`SUB`LEVEL", "3")
	child.Parent = 1

	db := makeTestDB(parent, child)
	db.Link()

	got := child.LAttr("D`*", false)
	assert.Len(t, got, 1)
	assert.Equal(t, "New Town", got["D`NAME"].Value)

	got = child.LAttr("D`*", true)
	assert.Len(t, got, 2)
	assert.Equal(t, "New Town", got["D`NAME"].Value)
	assert.Equal(t, "1", got["D`DISTRICT"].Value)

	got = child.LAttr("d`**", true)
	assert.Len(t, got, 3)

	assert.Empty(t, child.LAttr("", true))
}
