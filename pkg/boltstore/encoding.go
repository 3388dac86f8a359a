package boltstore

import (
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/crystal-mush/pennport/pkg/gamedb"
	"github.com/crystal-mush/pennport/pkg/importer"
)

// objectRecord is the stored form of one destination object.
type objectRecord struct {
	Seq        uint64               `msgpack:"seq"`
	Class      string               `msgpack:"class"`
	Name       string               `msgpack:"name"`
	LegacyID   int                  `msgpack:"legacy"`
	Owner      uuid.UUID            `msgpack:"owner"`
	Created    int64                `msgpack:"created"`
	Modified   int64                `msgpack:"modified"`
	Attributes map[string]string    `msgpack:"attrs,omitempty"`
	Aliases    []string             `msgpack:"aliases,omitempty"`
	Relations  map[string]uuid.UUID `msgpack:"rels,omitempty"`
	Registered bool                 `msgpack:"registered"`
}

type accountRecord struct {
	Seq        uint64 `msgpack:"seq"`
	Name       string `msgpack:"name"`
	Email      string `msgpack:"email,omitempty"`
	AdminLevel int    `msgpack:"admin"`
	LegacyID   int    `msgpack:"legacy"`
}

func newObjectRecord(seq uint64, spec importer.ObjectSpec) *objectRecord {
	return &objectRecord{
		Seq:        seq,
		Class:      spec.Class,
		Name:       spec.Name,
		LegacyID:   int(spec.LegacyID),
		Owner:      spec.Owner,
		Created:    spec.Created,
		Modified:   spec.Modified,
		Attributes: spec.Attributes,
		Aliases:    spec.Aliases,
	}
}

func (r *objectRecord) entity(id uuid.UUID) importer.Entity {
	e := importer.Entity{
		ID: id,
		ObjectSpec: importer.ObjectSpec{
			Class:      r.Class,
			Name:       r.Name,
			LegacyID:   gamedb.DBRef(r.LegacyID),
			Owner:      r.Owner,
			Created:    r.Created,
			Modified:   r.Modified,
			Attributes: r.Attributes,
			Aliases:    r.Aliases,
		},
		Relations:  make(map[importer.Relation]uuid.UUID, len(r.Relations)),
		Registered: r.Registered,
	}
	if e.Attributes == nil {
		e.Attributes = map[string]string{}
	}
	for kind, target := range r.Relations {
		e.Relations[importer.Relation(kind)] = target
	}
	return e
}

func (r *accountRecord) account(id uuid.UUID) importer.Account {
	return importer.Account{
		ID: id,
		AccountSpec: importer.AccountSpec{
			Name:       r.Name,
			Email:      r.Email,
			AdminLevel: r.AdminLevel,
			LegacyID:   gamedb.DBRef(r.LegacyID),
		},
	}
}

func encodeObject(r *objectRecord) ([]byte, error) {
	return msgpack.Marshal(r)
}

func decodeObject(data []byte) (*objectRecord, error) {
	var r objectRecord
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func encodeAccount(r *accountRecord) ([]byte, error) {
	return msgpack.Marshal(r)
}

func decodeAccount(data []byte) (*accountRecord, error) {
	var r accountRecord
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
