package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/crystal-mush/pennport/pkg/config"
	"github.com/crystal-mush/pennport/pkg/events"
	"github.com/crystal-mush/pennport/pkg/gamedb"
)

// skeleton creates one destination object per legacy object, category by
// category, without wiring any relation.
func (p *Pipeline) skeleton(ctx context.Context, res *Result) error {
	for _, id := range p.db.SortedIDs() {
		obj := p.db.Objects[id]
		if p.classifier.IsAccountRoot(obj) {
			continue
		}
		if !obj.Type.Known() {
			return phaseErr(PhaseSkeleton, id, ErrUnknownTypeMapping, fmt.Errorf("type code %d", int(obj.Type)))
		}
	}

	for _, cat := range config.Categories {
		objs := p.category(cat)
		if len(objs) == 0 {
			continue
		}
		class := p.conf.Classes[cat]
		if class == "" {
			return phaseErr(PhaseSkeleton, objs[0].ID, ErrUnknownTypeMapping, fmt.Errorf("category %q", cat))
		}
		for _, obj := range objs {
			if _, done := res.State.LegacyToNew[obj.ID]; done {
				continue
			}
			if err := p.createObject(ctx, res, obj, class); err != nil {
				return err
			}
		}
	}
	return nil
}

// category lists the objects of one skeleton category in ascending id
// order. Account roots and garbage never appear.
func (p *Pipeline) category(cat string) []*gamedb.Object {
	var src []*gamedb.Object
	var keep func(*gamedb.Object) bool

	switch cat {
	case config.CategoryGroup:
		for _, id := range p.db.SortedIDs() {
			src = append(src, p.db.Objects[id])
		}
		keep = func(o *gamedb.Object) bool {
			return o.Type != gamedb.TypeGarbage && p.classifier.IsGroup(o)
		}
	case config.CategoryDistrict:
		src = p.db.OfType(gamedb.TypeThing)
		keep = func(o *gamedb.Object) bool {
			return p.conf.DistrictAttribute != "" && o.Value(p.conf.DistrictAttribute, false) != ""
		}
	case config.CategoryPlayer:
		src = p.db.OfType(gamedb.TypePlayer)
	case config.CategoryRoom:
		src = p.db.OfType(gamedb.TypeRoom)
	case config.CategoryExit:
		src = p.db.OfType(gamedb.TypeExit)
	case config.CategoryThing:
		src = p.db.OfType(gamedb.TypeThing)
	}

	var out []*gamedb.Object
	for _, o := range src {
		if p.classifier.IsAccountRoot(o) {
			continue
		}
		if keep == nil || keep(o) {
			out = append(out, o)
		}
	}
	return out
}

func (p *Pipeline) createObject(ctx context.Context, res *Result, obj *gamedb.Object, class string) error {
	spec := ObjectSpec{
		Class:      class,
		Name:       obj.Name,
		LegacyID:   obj.ID,
		Owner:      p.ownerAccount(res.State, obj),
		Created:    obj.Created,
		Modified:   obj.Modified,
		Attributes: make(map[string]string, len(obj.Attrs)),
	}
	for name, attr := range obj.Attrs {
		if name == gamedb.AttrAlias {
			spec.Aliases = splitAliases(attr.Value)
			continue
		}
		spec.Attributes[name] = attr.Value
	}

	nid, err := p.store.CreateObject(ctx, spec)
	if err != nil {
		return storeErr(PhaseSkeleton, obj.ID, err)
	}
	res.State.LegacyToNew[obj.ID] = nid
	res.State.Created = append(res.State.Created, obj.ID)
	res.Objects++

	if p.ledger != nil {
		if err := p.ledger.RecordObject(ctx, obj.ID, nid, class); err != nil {
			return phaseErr(PhaseSkeleton, obj.ID, ErrExternalStore, fmt.Errorf("ledger: %w", err))
		}
	}
	p.metrics.objectCreated(class)
	p.log.WithFields(logrus.Fields{
		"legacy": obj.ID,
		"class":  class,
		"id":     nid,
	}).Debugf("import: created %q", obj.Name)
	p.bus.Emit(events.Event{
		Type:   events.EvObject,
		Phase:  string(PhaseSkeleton),
		Legacy: obj.ID,
		ID:     nid,
		Text:   obj.Name,
		Data:   map[string]any{"class": class},
	})
	return nil
}

// ownerAccount picks the account for an object: its own for characters,
// its legacy owner's otherwise, the fallback account failing both.
func (p *Pipeline) ownerAccount(st *State, obj *gamedb.Object) uuid.UUID {
	if aid, ok := st.AccountsByLegacyOwner[obj.ID]; ok {
		return aid
	}
	if aid, ok := st.AccountsByLegacyOwner[obj.Owner]; ok {
		return aid
	}
	return st.Unassigned
}

func splitAliases(value string) []string {
	var out []string
	for _, a := range strings.Split(value, ";") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
