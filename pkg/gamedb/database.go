package gamedb

import (
	"slices"
	"strconv"
	"strings"
)

// Database holds a complete parsed dump: catalogs, raw object records, and,
// after Link, the derived lookup indices.
type Database struct {
	Header    Header
	Declared  Declared
	Flags     map[string]*Flag
	Powers    map[string]*Flag
	AttrDefs  map[string]*AttrDef
	Objects   map[DBRef]*Object
	Truncated bool // input ended before the end-of-dump marker

	linked   bool
	byType   map[ObjectType][]*Object
	byDBRef  map[string]*Object
	byObjID  map[string]*Object
	contents map[DBRef][]*Object
	children map[DBRef][]*Object
	owned    map[DBRef][]*Object
	zoned    map[DBRef][]*Object
	exitsIn  map[DBRef][]*Object
}

// NewDatabase creates an empty Database.
func NewDatabase() *Database {
	return &Database{
		Flags:    make(map[string]*Flag),
		Powers:   make(map[string]*Flag),
		AttrDefs: make(map[string]*AttrDef),
		Objects:  make(map[DBRef]*Object),
	}
}

// AddObject inserts an object record. It reports false if the id is taken.
func (db *Database) AddObject(obj *Object) bool {
	if _, exists := db.Objects[obj.ID]; exists {
		return false
	}
	db.Objects[obj.ID] = obj
	return true
}

// Linked reports whether Link has run.
func (db *Database) Linked() bool {
	return db.linked
}

// SortedIDs returns every object id in ascending order.
func (db *Database) SortedIDs() []DBRef {
	ids := make([]DBRef, 0, len(db.Objects))
	for id := range db.Objects {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Link resolves every object's raw references and rebuilds the derived
// indices. It must run after every object exists. It resets all derived
// state first, so calling it again yields identical indices.
func (db *Database) Link() {
	db.byType = make(map[ObjectType][]*Object)
	db.byDBRef = make(map[string]*Object, len(db.Objects))
	db.byObjID = make(map[string]*Object, len(db.Objects))
	db.contents = make(map[DBRef][]*Object)
	db.children = make(map[DBRef][]*Object)
	db.owned = make(map[DBRef][]*Object)
	db.zoned = make(map[DBRef][]*Object)
	db.exitsIn = make(map[DBRef][]*Object)
	for _, f := range db.Flags {
		f.members = nil
	}
	for _, p := range db.Powers {
		p.members = nil
	}

	for _, id := range db.SortedIDs() {
		obj := db.Objects[id]
		obj.Links = Links{
			Location: db.Objects[obj.Location],
			Parent:   db.Objects[obj.Parent],
			Owner:    db.Objects[obj.Owner],
			Zone:     db.Objects[obj.Zone],
			Exits:    db.Objects[obj.Exits],
		}

		db.byType[obj.Type] = append(db.byType[obj.Type], obj)
		db.byDBRef[obj.DBRef()] = obj
		db.byObjID[obj.ObjID()] = obj

		if l := obj.Links.Location; l != nil {
			db.contents[l.ID] = append(db.contents[l.ID], obj)
		}
		if p := obj.Links.Parent; p != nil {
			db.children[p.ID] = append(db.children[p.ID], obj)
		}
		if o := obj.Links.Owner; o != nil {
			db.owned[o.ID] = append(db.owned[o.ID], obj)
		}
		if z := obj.Links.Zone; z != nil {
			db.zoned[z.ID] = append(db.zoned[z.ID], obj)
		}
		if e := obj.Links.Exits; e != nil {
			db.exitsIn[e.ID] = append(db.exitsIn[e.ID], obj)
		}

		for _, name := range obj.Flags {
			if f, ok := db.Flags[name]; ok {
				f.members = append(f.members, obj)
			}
		}
		for _, name := range obj.Powers {
			if p, ok := db.Powers[name]; ok {
				p.members = append(p.members, obj)
			}
		}
	}
	db.linked = true
}

// ByID returns the object with the given id, or nil.
func (db *Database) ByID(id DBRef) *Object {
	return db.Objects[id]
}

// ByReference looks up an object by its "#id" string, or nil.
func (db *Database) ByReference(ref string) *Object {
	return db.byDBRef[ref]
}

// ByCompositeID looks up an object by its "#id:created" string, or nil.
func (db *Database) ByCompositeID(objid string) *Object {
	return db.byObjID[objid]
}

// FindObject resolves "#id" or "#id:created" strings.
func (db *Database) FindObject(ref string) *Object {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	if strings.Contains(ref, ":") {
		return db.ByCompositeID(ref)
	}
	if obj := db.ByReference(ref); obj != nil {
		return obj
	}
	// Unlinked snapshots have no string index yet.
	if n, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil && strings.HasPrefix(ref, "#") {
		return db.Objects[DBRef(n)]
	}
	return nil
}

// OfType returns all objects of the given type in ascending id order.
func (db *Database) OfType(t ObjectType) []*Object {
	return db.byType[t]
}

// Contents returns the objects located in ref.
func (db *Database) Contents(ref DBRef) []*Object { return db.contents[ref] }

// Children returns the objects parented to ref.
func (db *Database) Children(ref DBRef) []*Object { return db.children[ref] }

// Owned returns the objects owned by ref.
func (db *Database) Owned(ref DBRef) []*Object { return db.owned[ref] }

// Zoned returns the objects zoned to ref.
func (db *Database) Zoned(ref DBRef) []*Object { return db.zoned[ref] }

// ExitsIn returns the exits whose exits-container is ref.
func (db *Database) ExitsIn(ref DBRef) []*Object { return db.exitsIn[ref] }

// MatchName finds an object by exact (case-insensitive) name, falling back
// to the lowest-id object whose name starts with name.
func (db *Database) MatchName(name string) *Object {
	var prefix *Object
	for _, id := range db.SortedIDs() {
		obj := db.Objects[id]
		if strings.EqualFold(obj.Name, name) {
			return obj
		}
		if prefix == nil && len(obj.Name) >= len(name) && strings.EqualFold(obj.Name[:len(name)], name) {
			prefix = obj
		}
	}
	return prefix
}
