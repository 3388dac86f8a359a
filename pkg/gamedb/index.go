package gamedb

import "slices"

// IndexSummary is a plain, comparable rendering of every derived index.
// All id lists are ascending.
type IndexSummary struct {
	Types    map[ObjectType][]DBRef
	DBRefs   []string
	ObjIDs   []string
	Contents map[DBRef][]DBRef
	Children map[DBRef][]DBRef
	Owned    map[DBRef][]DBRef
	Zoned    map[DBRef][]DBRef
	ExitsIn  map[DBRef][]DBRef
	Flags    map[string][]DBRef
	Powers   map[string][]DBRef
	Links    map[DBRef][5]DBRef // location, parent, owner, zone, exits
}

// IndexSummary snapshots the derived indices built by Link.
func (db *Database) IndexSummary() IndexSummary {
	s := IndexSummary{
		Types:    make(map[ObjectType][]DBRef),
		Contents: refsOf(db.contents),
		Children: refsOf(db.children),
		Owned:    refsOf(db.owned),
		Zoned:    refsOf(db.zoned),
		ExitsIn:  refsOf(db.exitsIn),
		Flags:    make(map[string][]DBRef),
		Powers:   make(map[string][]DBRef),
		Links:    make(map[DBRef][5]DBRef),
	}
	for t, objs := range db.byType {
		s.Types[t] = ids(objs)
	}
	for k := range db.byDBRef {
		s.DBRefs = append(s.DBRefs, k)
	}
	slices.Sort(s.DBRefs)
	for k := range db.byObjID {
		s.ObjIDs = append(s.ObjIDs, k)
	}
	slices.Sort(s.ObjIDs)
	for name, f := range db.Flags {
		s.Flags[name] = ids(f.members)
	}
	for name, p := range db.Powers {
		s.Powers[name] = ids(p.members)
	}
	for id, obj := range db.Objects {
		s.Links[id] = [5]DBRef{
			refOf(obj.Links.Location),
			refOf(obj.Links.Parent),
			refOf(obj.Links.Owner),
			refOf(obj.Links.Zone),
			refOf(obj.Links.Exits),
		}
	}
	return s
}

func refsOf(m map[DBRef][]*Object) map[DBRef][]DBRef {
	out := make(map[DBRef][]DBRef, len(m))
	for k, objs := range m {
		out[k] = ids(objs)
	}
	return out
}

func ids(objs []*Object) []DBRef {
	out := make([]DBRef, len(objs))
	for i, o := range objs {
		out[i] = o.ID
	}
	return out
}

func refOf(o *Object) DBRef {
	if o == nil {
		return Nothing
	}
	return o.ID
}
