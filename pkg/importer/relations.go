package importer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/crystal-mush/pennport/pkg/events"
	"github.com/crystal-mush/pennport/pkg/gamedb"
)

// relations wires zone, parent, owner and placement for every migrated
// object. References to objects that were not migrated are left unset.
func (p *Pipeline) relations(ctx context.Context, res *Result) error {
	for _, legacy := range res.State.Created {
		obj := p.db.Objects[legacy]
		id := res.State.LegacyToNew[legacy]

		for _, rel := range []struct {
			kind Relation
			ref  gamedb.DBRef
		}{
			{RelZone, obj.Zone},
			{RelParent, obj.Parent},
			{RelOwner, obj.Owner},
		} {
			if err := p.relate(ctx, res, obj, id, rel.kind, rel.ref); err != nil {
				return err
			}
		}

		if obj.Type == gamedb.TypeExit {
			if err := p.relate(ctx, res, obj, id, RelDestination, obj.Location); err != nil {
				return err
			}
			if err := p.placeExit(ctx, res, obj, id); err != nil {
				return err
			}
			continue
		}
		if err := p.relate(ctx, res, obj, id, RelLocation, obj.Location); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) relate(ctx context.Context, res *Result, obj *gamedb.Object, id uuid.UUID, kind Relation, ref gamedb.DBRef) error {
	target, ok := res.State.LegacyToNew[ref]
	if !ok {
		return nil
	}
	if err := p.store.SetRelation(ctx, id, kind, target); err != nil {
		return storeErr(PhaseRelations, obj.ID, fmt.Errorf("%s: %w", kind, err))
	}
	p.related(res, obj, id, kind, target)
	return nil
}

// placeExit puts an exit into its container. A clash with an exit of the
// same name there is resolved by renaming this one NAME1, NAME2 and so on.
func (p *Pipeline) placeExit(ctx context.Context, res *Result, obj *gamedb.Object, id uuid.UUID) error {
	container, ok := res.State.LegacyToNew[obj.Exits]
	if !ok {
		return nil
	}

	err := p.store.SetRelation(ctx, id, RelExits, container)
	renamed := false
	for n := 1; errors.Is(err, ErrNameConflict); n++ {
		if n > p.conf.ExitSuffixLimit {
			return phaseErr(PhaseRelations, obj.ID, ErrExternalStore,
				fmt.Errorf("no free name for exit %q after %d attempts: %w", obj.Name, p.conf.ExitSuffixLimit, err))
		}
		name := suffixed(obj.Name, n)
		if err := p.store.RenameObject(ctx, id, name); err != nil {
			return storeErr(PhaseRelations, obj.ID, err)
		}
		if !renamed {
			renamed = true
			res.ExitRenames++
			p.metrics.exitRenamed()
		}
		p.log.WithField("legacy", obj.ID).Debugf("import: exit %q renamed %q", obj.Name, name)
		p.bus.Emit(events.Event{
			Type:   events.EvExitRenamed,
			Phase:  string(PhaseRelations),
			Legacy: obj.ID,
			ID:     id,
			Text:   name,
		})
		err = p.store.SetRelation(ctx, id, RelExits, container)
	}
	if err != nil {
		return storeErr(PhaseRelations, obj.ID, fmt.Errorf("%s: %w", RelExits, err))
	}
	p.related(res, obj, id, RelExits, container)
	return nil
}

// suffixed appends n to the primary name, keeping any ";alias" list.
func suffixed(name string, n int) string {
	if i := strings.IndexByte(name, ';'); i >= 0 {
		return name[:i] + strconv.Itoa(n) + name[i:]
	}
	return name + strconv.Itoa(n)
}

func (p *Pipeline) related(res *Result, obj *gamedb.Object, id uuid.UUID, kind Relation, target uuid.UUID) {
	res.Relations++
	p.metrics.relationSet(kind)
	p.bus.Emit(events.Event{
		Type:   events.EvRelation,
		Phase:  string(PhaseRelations),
		Legacy: obj.ID,
		ID:     id,
		Text:   string(kind),
		Data:   map[string]any{"target": target},
	})
}

// finalize registers every migrated object with the live indices.
func (p *Pipeline) finalize(ctx context.Context, res *Result) error {
	for _, legacy := range res.State.Created {
		id := res.State.LegacyToNew[legacy]
		if err := p.store.RegisterObject(ctx, id); err != nil {
			return storeErr(PhaseFinalize, legacy, err)
		}
		p.bus.Emit(events.Event{
			Type:   events.EvRegistered,
			Phase:  string(PhaseFinalize),
			Legacy: legacy,
			ID:     id,
		})
	}
	return nil
}
