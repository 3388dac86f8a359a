package validate

import (
	"fmt"

	"github.com/crystal-mush/pennport/pkg/gamedb"
)

// IntegrityChecker performs referential integrity checks on the database.
type IntegrityChecker struct{}

func (c *IntegrityChecker) Name() string { return "integrity" }

// refField names one reference slot of an object.
type refField struct {
	name string
	ptr  func(*gamedb.Object) *gamedb.DBRef
}

var refFields = []refField{
	{"location", func(o *gamedb.Object) *gamedb.DBRef { return &o.Location }},
	{"parent", func(o *gamedb.Object) *gamedb.DBRef { return &o.Parent }},
	{"owner", func(o *gamedb.Object) *gamedb.DBRef { return &o.Owner }},
	{"zone", func(o *gamedb.Object) *gamedb.DBRef { return &o.Zone }},
	{"exits", func(o *gamedb.Object) *gamedb.DBRef { return &o.Exits }},
}

// special reports whether ref is one of the negative sentinel values.
func special(ref gamedb.DBRef) bool {
	return ref == gamedb.Nothing || ref == gamedb.Ambiguous || ref == gamedb.Home
}

func (c *IntegrityChecker) Check(db *gamedb.Database) []Finding {
	var findings []Finding
	ids := &idGen{prefix: "integrity"}

	for _, id := range db.SortedIDs() {
		obj := db.Objects[id]
		if obj.Type == gamedb.TypeGarbage {
			continue
		}

		// Every reference slot should name an object that exists.
		for _, f := range refFields {
			slot := f.ptr(obj)
			ref := *slot
			if special(ref) {
				continue
			}
			if _, ok := db.Objects[ref]; ok {
				continue
			}
			findings = append(findings, Finding{
				ID:          ids.next(),
				Category:    CatIntegrityError,
				Severity:    SevError,
				ObjectRef:   id,
				Field:       f.name,
				Description: fmt.Sprintf("%s %s %s does not exist", id, f.name, ref),
				Fixable:     true,
				fixFunc:     func() { *slot = gamedb.Nothing },
			})
		}

		// Owner should be a player. Players own themselves.
		if owner, ok := db.Objects[obj.Owner]; ok && owner.Type != gamedb.TypePlayer {
			findings = append(findings, Finding{
				ID:          ids.next(),
				Category:    CatIntegrityWarn,
				Severity:    SevWarning,
				ObjectRef:   id,
				Field:       "owner",
				Description: fmt.Sprintf("%s owner %s is not a player (type=%s)", id, obj.Owner, owner.Type),
			})
		}

		// An exit's container should be a room.
		if obj.Type == gamedb.TypeExit {
			if room, ok := db.Objects[obj.Exits]; ok && room.Type != gamedb.TypeRoom {
				findings = append(findings, Finding{
					ID:          ids.next(),
					Category:    CatIntegrityWarn,
					Severity:    SevWarning,
					ObjectRef:   id,
					Field:       "exits",
					Description: fmt.Sprintf("exit %s sits in %s, which is not a room (type=%s)", id, obj.Exits, room.Type),
				})
			}
		}
	}

	// Check parent chains for loops.
	for _, id := range db.SortedIDs() {
		obj := db.Objects[id]
		visited := map[gamedb.DBRef]bool{id: true}
		cur := obj.Parent
		for !special(cur) {
			if visited[cur] {
				slot := &obj.Parent
				findings = append(findings, Finding{
					ID:          ids.next(),
					Category:    CatIntegrityError,
					Severity:    SevError,
					ObjectRef:   id,
					Field:       "parent",
					Description: fmt.Sprintf("%s parent chain has loop at %s", id, cur),
					Fixable:     true,
					fixFunc:     func() { *slot = gamedb.Nothing },
				})
				break
			}
			visited[cur] = true
			next, ok := db.Objects[cur]
			if !ok {
				break
			}
			cur = next.Parent
		}
	}

	return findings
}
