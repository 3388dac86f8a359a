package gamedb

import (
	"fmt"
	"slices"
	"strings"
)

// DBRef is the fundamental object reference type in a PennMUSH dump.
type DBRef int

const (
	Nothing   DBRef = -1
	Ambiguous DBRef = -2
	Home      DBRef = -3
)

// String renders the reference the way the dump writes it ("#12").
func (r DBRef) String() string {
	return fmt.Sprintf("#%d", int(r))
}

// ObjectType is the legacy type code stored in an object's "type" field.
type ObjectType int

const (
	TypeRoom    ObjectType = 1
	TypeThing   ObjectType = 2
	TypeExit    ObjectType = 4
	TypePlayer  ObjectType = 8
	TypeGarbage ObjectType = 16
)

func (t ObjectType) String() string {
	switch t {
	case TypeRoom:
		return "ROOM"
	case TypeThing:
		return "THING"
	case TypeExit:
		return "EXIT"
	case TypePlayer:
		return "PLAYER"
	case TypeGarbage:
		return "GARBAGE"
	default:
		return "UNKNOWN"
	}
}

// Known reports whether t is one of the type codes the dump format defines.
func (t ObjectType) Known() bool {
	switch t {
	case TypeRoom, TypeThing, TypeExit, TypePlayer, TypeGarbage:
		return true
	}
	return false
}

// NameSet is a sorted, de-duplicated list of names (flags, perms, types...).
type NameSet []string

// ParseNameSet splits a space-separated dump value into a NameSet.
func ParseNameSet(s string) NameSet {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	slices.Sort(fields)
	return NameSet(slices.Compact(fields))
}

// Has reports whether name is in the set. Matching is case-insensitive.
func (s NameSet) Has(name string) bool {
	for _, n := range s {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// Add returns the set with name inserted.
func (s NameSet) Add(name string) NameSet {
	i, found := slices.BinarySearch(s, name)
	if found {
		return s
	}
	return slices.Insert(s, i, name)
}

// String joins the set back into dump form.
func (s NameSet) String() string {
	return strings.Join(s, " ")
}

// Flag is a flag or power catalog entry from the FLAGS / POWERS sections.
type Flag struct {
	Name        string
	Letter      string
	Types       NameSet
	Perms       NameSet
	NegatePerms NameSet
	Aliases     NameSet

	members []*Object
}

// Members returns the objects carrying this flag. Populated by Link.
func (f *Flag) Members() []*Object {
	return f.members
}

// AttrDef is a standard attribute template from the ATTRIBUTES section.
type AttrDef struct {
	Name    string
	Flags   NameSet
	Creator DBRef
	Data    string
	Aliases NameSet
}

// Attr is one attribute stored on an object.
type Attr struct {
	Name   string
	Owner  DBRef
	Flags  NameSet
	Derefs int
	Value  string
}

// Lock is one lock stored on an object.
type Lock struct {
	Type    string
	Creator DBRef
	Flags   NameSet
	Derefs  int
	Key     string
}

// Links holds the resolved form of an object's raw references.
// A nil pointer means the reference was Nothing or dangling.
type Links struct {
	Location *Object
	Parent   *Object
	Owner    *Object
	Zone     *Object
	Exits    *Object
}

// Object is a single legacy object record.
type Object struct {
	ID       DBRef
	Name     string
	Type     ObjectType
	Location DBRef
	Parent   DBRef
	Owner    DBRef
	Zone     DBRef
	Exits    DBRef
	Pennies  int
	Flags    NameSet
	Powers   NameSet
	Warnings NameSet
	Created  int64
	Modified int64
	Attrs    map[string]*Attr
	Locks    map[string]*Lock

	Links Links
}

// NewObject returns an object with every reference set to Nothing.
func NewObject(id DBRef) *Object {
	return &Object{
		ID:       id,
		Type:     -1,
		Location: Nothing,
		Parent:   Nothing,
		Owner:    Nothing,
		Zone:     Nothing,
		Exits:    Nothing,
		Created:  -1,
		Modified: -1,
		Attrs:    make(map[string]*Attr),
		Locks:    make(map[string]*Lock),
	}
}

// DBRef returns the "#id" form used by the dbref index.
func (o *Object) DBRef() string {
	return o.ID.String()
}

// ObjID returns the "#id:created" composite identifier.
func (o *Object) ObjID() string {
	return fmt.Sprintf("#%d:%d", int(o.ID), o.Created)
}

// HasFlag reports whether the object carries the named flag.
func (o *Object) HasFlag(name string) bool {
	return o.Flags.Has(name)
}

// HasPower reports whether the object carries the named power.
func (o *Object) HasPower(name string) bool {
	return o.Powers.Has(name)
}

func (o *Object) String() string {
	return fmt.Sprintf("%s %s(%s)", o.Type, o.Name, o.DBRef())
}

// Header holds the free-form lines that precede the FLAGS section.
type Header struct {
	Version   string // raw "+V..." marker text
	DBVersion int
	SavedTime string
	Lines     []string
}

// Declared holds the counts announced by the dump itself.
type Declared struct {
	Flags       int
	FlagAliases int
	Powers      int
	PowerAlias  int
	Attrs       int
	AttrAliases int
	Objects     int
}
