// Package boltstore is a destination world persisted in a bbolt file.
package boltstore

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	bbolt "go.etcd.io/bbolt"

	"github.com/crystal-mush/pennport/pkg/gamedb"
	"github.com/crystal-mush/pennport/pkg/importer"
)

// Store implements importer.Store and importer.Inspector on bbolt. Every
// call is its own transaction, so a failed import leaves what it created.
type Store struct {
	bolt *bbolt.DB
	log  logrus.FieldLogger
}

var (
	_ importer.Store     = (*Store)(nil)
	_ importer.Inspector = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default is logrus.StandardLogger().
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) { s.log = log }
}

// Open opens or creates a bbolt database file and ensures all buckets exist.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: create buckets: %w", err)
	}

	s := &Store{bolt: db, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	s.log.WithField("path", path).Debug("boltstore: opened")
	return s, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}

// Path returns the filesystem path of the underlying bbolt database.
func (s *Store) Path() string {
	if s.bolt != nil {
		return s.bolt.Path()
	}
	return ""
}

func (s *Store) ObjectCount(ctx context.Context) (int, error) {
	var n int
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketObjects).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *Store) CreateObject(ctx context.Context, spec importer.ObjectSpec) (uuid.UUID, error) {
	id := uuid.New()
	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		legacy := tx.Bucket(bucketLegacy)
		if legacy.Get(refToKey(spec.LegacyID)) != nil {
			return fmt.Errorf("%s: %w", spec.LegacyID, importer.ErrConflict)
		}
		seq, err := tx.Bucket(bucketMeta).NextSequence()
		if err != nil {
			return err
		}
		data, err := encodeObject(newObjectRecord(seq, spec))
		if err != nil {
			return fmt.Errorf("encode %s: %w", spec.LegacyID, err)
		}
		if err := tx.Bucket(bucketObjects).Put(id[:], data); err != nil {
			return err
		}
		return legacy.Put(refToKey(spec.LegacyID), id[:])
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("boltstore: create object: %w", err)
	}
	return id, nil
}

func (s *Store) SetRelation(ctx context.Context, subject uuid.UUID, kind importer.Relation, target uuid.UUID) error {
	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		objects := tx.Bucket(bucketObjects)
		rec, err := getObject(objects, subject)
		if err != nil {
			return fmt.Errorf("subject %s: %w", subject, err)
		}
		if objects.Get(target[:]) == nil {
			return fmt.Errorf("target %s: %w", target, importer.ErrNotFound)
		}

		if kind == importer.RelExits {
			exits := tx.Bucket(bucketExits)
			key := exitKey(target, rec.Name)
			if holder := exits.Get(key); holder != nil && keyToID(holder) != subject {
				return fmt.Errorf("exit %q: %w", importer.PrimaryName(rec.Name), importer.ErrNameConflict)
			}
			if old, placed := rec.Relations[string(importer.RelExits)]; placed {
				if err := exits.Delete(exitKey(old, rec.Name)); err != nil {
					return err
				}
			}
			if err := exits.Put(key, subject[:]); err != nil {
				return err
			}
		}

		if rec.Relations == nil {
			rec.Relations = make(map[string]uuid.UUID)
		}
		rec.Relations[string(kind)] = target
		return putObject(objects, subject, rec)
	})
	if err != nil {
		return fmt.Errorf("boltstore: set %s: %w", kind, err)
	}
	return nil
}

func (s *Store) RenameObject(ctx context.Context, id uuid.UUID, name string) error {
	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		objects := tx.Bucket(bucketObjects)
		rec, err := getObject(objects, id)
		if err != nil {
			return err
		}
		// A placed exit moves to its new key in the container index.
		if container, placed := rec.Relations[string(importer.RelExits)]; placed {
			exits := tx.Bucket(bucketExits)
			if holder := exits.Get(exitKey(container, name)); holder != nil && keyToID(holder) != id {
				return fmt.Errorf("exit %q: %w", importer.PrimaryName(name), importer.ErrNameConflict)
			}
			if err := exits.Delete(exitKey(container, rec.Name)); err != nil {
				return err
			}
			if err := exits.Put(exitKey(container, name), id[:]); err != nil {
				return err
			}
		}
		rec.Name = name
		return putObject(objects, id, rec)
	})
	if err != nil {
		return fmt.Errorf("boltstore: rename %s: %w", id, err)
	}
	return nil
}

func (s *Store) RegisterObject(ctx context.Context, id uuid.UUID) error {
	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		objects := tx.Bucket(bucketObjects)
		rec, err := getObject(objects, id)
		if err != nil {
			return err
		}
		rec.Registered = true
		return putObject(objects, id, rec)
	})
	if err != nil {
		return fmt.Errorf("boltstore: register %s: %w", id, err)
	}
	return nil
}

func (s *Store) CreateAccount(ctx context.Context, spec importer.AccountSpec) (uuid.UUID, error) {
	id := uuid.New()
	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		names := tx.Bucket(bucketAccountNames)
		if names.Get(accountNameKey(spec.Name)) != nil {
			return fmt.Errorf("%q: %w", spec.Name, importer.ErrAccountExists)
		}
		accounts := tx.Bucket(bucketAccounts)
		seq, err := accounts.NextSequence()
		if err != nil {
			return err
		}
		data, err := encodeAccount(&accountRecord{
			Seq:        seq,
			Name:       spec.Name,
			Email:      spec.Email,
			AdminLevel: spec.AdminLevel,
			LegacyID:   int(spec.LegacyID),
		})
		if err != nil {
			return fmt.Errorf("encode account %q: %w", spec.Name, err)
		}
		if err := accounts.Put(id[:], data); err != nil {
			return err
		}
		return names.Put(accountNameKey(spec.Name), id[:])
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("boltstore: create account: %w", err)
	}
	return id, nil
}

func (s *Store) ValidAccountName(ctx context.Context, name string) (bool, string) {
	if ok, reason := importer.CheckAccountName(name); !ok {
		return false, reason
	}
	taken := false
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		taken = tx.Bucket(bucketAccountNames).Get(accountNameKey(name)) != nil
		return nil
	})
	if err != nil {
		return false, err.Error()
	}
	if taken {
		return false, "name taken"
	}
	return true, ""
}

// Entity reads one object.
func (s *Store) Entity(ctx context.Context, id uuid.UUID) (importer.Entity, error) {
	var e importer.Entity
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		rec, err := getObject(tx.Bucket(bucketObjects), id)
		if err != nil {
			return err
		}
		e = rec.entity(id)
		return nil
	})
	if err != nil {
		return importer.Entity{}, fmt.Errorf("boltstore: %s: %w", id, err)
	}
	return e, nil
}

// Entities reads every object in creation order.
func (s *Store) Entities(ctx context.Context) ([]importer.Entity, error) {
	type entry struct {
		seq uint64
		e   importer.Entity
	}
	var all []entry
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketObjects).ForEach(func(k, v []byte) error {
			rec, err := decodeObject(v)
			if err != nil {
				return fmt.Errorf("decode object: %w", err)
			}
			all = append(all, entry{rec.Seq, rec.entity(keyToID(k))})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: load objects: %w", err)
	}
	slices.SortFunc(all, func(a, b entry) int { return cmp.Compare(a.seq, b.seq) })

	out := make([]importer.Entity, len(all))
	for i, en := range all {
		out[i] = en.e
	}
	return out, nil
}

// Accounts reads every account in creation order.
func (s *Store) Accounts(ctx context.Context) ([]importer.Account, error) {
	type entry struct {
		seq uint64
		a   importer.Account
	}
	var all []entry
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAccounts).ForEach(func(k, v []byte) error {
			rec, err := decodeAccount(v)
			if err != nil {
				return fmt.Errorf("decode account: %w", err)
			}
			all = append(all, entry{rec.Seq, rec.account(keyToID(k))})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: load accounts: %w", err)
	}
	slices.SortFunc(all, func(a, b entry) int { return cmp.Compare(a.seq, b.seq) })

	out := make([]importer.Account, len(all))
	for i, en := range all {
		out[i] = en.a
	}
	return out, nil
}

// LegacyIndex maps every migrated legacy id to its object.
func (s *Store) LegacyIndex(ctx context.Context) (map[gamedb.DBRef]uuid.UUID, error) {
	index := make(map[gamedb.DBRef]uuid.UUID)
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketLegacy).ForEach(func(k, v []byte) error {
			index[keyToRef(k)] = keyToID(v)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: load legacy index: %w", err)
	}
	return index, nil
}

// Backup creates a hot snapshot of the bbolt database using tx.WriteTo().
func (s *Store) Backup(path string) error {
	return s.bolt.View(func(tx *bbolt.Tx) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("boltstore: create backup %s: %w", path, err)
		}
		defer f.Close()
		_, err = tx.WriteTo(f)
		if err != nil {
			return fmt.Errorf("boltstore: write backup: %w", err)
		}
		s.log.WithField("path", path).Info("boltstore: backup written")
		return nil
	})
}

func getObject(b *bbolt.Bucket, id uuid.UUID) (*objectRecord, error) {
	data := b.Get(id[:])
	if data == nil {
		return nil, importer.ErrNotFound
	}
	rec, err := decodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	return rec, nil
}

func putObject(b *bbolt.Bucket, id uuid.UUID, rec *objectRecord) error {
	data, err := encodeObject(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}
	return b.Put(id[:], data)
}
