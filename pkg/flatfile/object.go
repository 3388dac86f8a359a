package flatfile

import (
	"strings"

	"github.com/crystal-mush/pennport/pkg/gamedb"
)

type objMode int

const (
	modePlain objMode = iota
	modeAttrs
	modeLocks
)

// buildObject turns the lines collected under one "!id" marker into an
// object record.
func (p *parser) buildObject(id gamedb.DBRef, lines []Line) (*gamedb.Object, error) {
	obj := gamedb.NewObject(id)
	mode := modePlain
	var attr *gamedb.Attr
	var lock *gamedb.Lock

	for _, ln := range lines {
		switch ln.Depth {
		case 0:
			attr, lock = nil, nil
			switch {
			case ln.Name == "attrcount" && ln.Num > 0:
				mode = modeAttrs
			case ln.Name == "lockcount" && ln.Num > 0:
				mode = modeLocks
			default:
				mode = modePlain
				if err := setObjectField(obj, ln); err != nil {
					return nil, err
				}
			}

		case 1:
			switch {
			case mode == modeAttrs && ln.Name == "name":
				attr = &gamedb.Attr{Name: strings.ToUpper(ln.Text()), Owner: gamedb.Nothing}
				obj.Attrs[attr.Name] = attr
			case mode == modeLocks && ln.Name == "type":
				lock = &gamedb.Lock{Type: ln.Text(), Creator: gamedb.Nothing}
				obj.Locks[lock.Type] = lock
			default:
				return nil, violation(ln, "field %q outside an attribute or lock list of %s", ln.Name, id)
			}

		case 2:
			switch {
			case mode == modeAttrs && attr != nil:
				p.setAttrField(attr, ln)
			case mode == modeLocks && lock != nil:
				p.setLockField(lock, ln)
			default:
				return nil, violation(ln, "detail field %q with no open attribute or lock on %s", ln.Name, id)
			}

		default:
			return nil, violation(ln, "field %q nested too deep on %s", ln.Name, id)
		}
	}
	return obj, nil
}

func setObjectField(obj *gamedb.Object, ln Line) error {
	ref := func(dst *gamedb.DBRef) error {
		if ln.Kind == KindText {
			return violation(ln, "%s must be a reference", ln.Name)
		}
		*dst = ln.Ref()
		return nil
	}

	switch ln.Name {
	case "name":
		obj.Name = ln.Text()
	case "location":
		return ref(&obj.Location)
	case "parent":
		return ref(&obj.Parent)
	case "owner":
		return ref(&obj.Owner)
	case "zone":
		return ref(&obj.Zone)
	case "exits":
		return ref(&obj.Exits)
	case "pennies":
		obj.Pennies = int(ln.Num)
	case "type":
		if ln.Kind == KindText {
			return violation(ln, "type must be a number")
		}
		obj.Type = gamedb.ObjectType(ln.Num)
	case "flags":
		obj.Flags = gamedb.ParseNameSet(ln.Text())
	case "powers":
		obj.Powers = gamedb.ParseNameSet(ln.Text())
	case "warnings":
		obj.Warnings = gamedb.ParseNameSet(ln.Text())
	case "created":
		obj.Created = ln.Num
	case "modified":
		obj.Modified = ln.Num
	}
	return nil
}

func (p *parser) setAttrField(attr *gamedb.Attr, ln Line) {
	switch ln.Name {
	case "owner":
		attr.Owner = ln.Ref()
	case "flags":
		attr.Flags = gamedb.ParseNameSet(ln.Text())
	case "derefs":
		attr.Derefs = int(ln.Num)
	case "value":
		attr.Value = p.decode(ln.Text())
	}
}

func (p *parser) setLockField(lock *gamedb.Lock, ln Line) {
	switch ln.Name {
	case "creator":
		lock.Creator = ln.Ref()
	case "flags":
		lock.Flags = gamedb.ParseNameSet(ln.Text())
	case "derefs":
		lock.Derefs = int(ln.Num)
	case "key", "value":
		lock.Key = p.decode(ln.Text())
	}
}
