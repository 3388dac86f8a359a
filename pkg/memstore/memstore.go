// Package memstore is an in-memory destination world. It backs dry runs
// and tests, and can be told to fail or panic on a given call.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/crystal-mush/pennport/pkg/gamedb"
	"github.com/crystal-mush/pennport/pkg/importer"
)

// Operation names accepted by FailOn and PanicOn.
const (
	OpObjectCount    = "ObjectCount"
	OpCreateObject   = "CreateObject"
	OpSetRelation    = "SetRelation"
	OpRenameObject   = "RenameObject"
	OpRegisterObject = "RegisterObject"
	OpCreateAccount  = "CreateAccount"
)

type fault struct {
	call  int
	err   error
	panic bool
}

// Store implements importer.Store and importer.Inspector in memory.
type Store struct {
	mu           sync.Mutex
	objects      map[uuid.UUID]*importer.Entity
	order        []uuid.UUID
	byLegacy     map[gamedb.DBRef]uuid.UUID
	accounts     map[uuid.UUID]*importer.Account
	accountOrder []uuid.UUID
	accountNames map[string]uuid.UUID
	calls        map[string]int
	faults       map[string]fault
}

var (
	_ importer.Store     = (*Store)(nil)
	_ importer.Inspector = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		objects:      make(map[uuid.UUID]*importer.Entity),
		byLegacy:     make(map[gamedb.DBRef]uuid.UUID),
		accounts:     make(map[uuid.UUID]*importer.Account),
		accountNames: make(map[string]uuid.UUID),
		calls:        make(map[string]int),
		faults:       make(map[string]fault),
	}
}

// FailOn makes the n-th call (1-based) of op return err.
func (s *Store) FailOn(op string, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = fault{call: n, err: err}
}

// PanicOn makes the n-th call (1-based) of op panic.
func (s *Store) PanicOn(op string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = fault{call: n, panic: true}
}

// Calls returns how many times op has been called.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// enter counts a call and fires any fault set for it. Caller holds mu.
func (s *Store) enter(op string) error {
	s.calls[op]++
	f, ok := s.faults[op]
	if !ok || f.call != s.calls[op] {
		return nil
	}
	if f.panic {
		panic(fmt.Sprintf("memstore: injected panic in %s call %d", op, f.call))
	}
	return f.err
}

func (s *Store) ObjectCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpObjectCount); err != nil {
		return 0, err
	}
	return len(s.objects), nil
}

func (s *Store) CreateObject(ctx context.Context, spec importer.ObjectSpec) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpCreateObject); err != nil {
		return uuid.Nil, err
	}
	if _, dup := s.byLegacy[spec.LegacyID]; dup {
		return uuid.Nil, fmt.Errorf("memstore: %s: %w", spec.LegacyID, importer.ErrConflict)
	}

	id := uuid.New()
	spec.Attributes = maps.Clone(spec.Attributes)
	spec.Aliases = slices.Clone(spec.Aliases)
	s.objects[id] = &importer.Entity{
		ID:         id,
		ObjectSpec: spec,
		Relations:  make(map[importer.Relation]uuid.UUID),
	}
	s.order = append(s.order, id)
	s.byLegacy[spec.LegacyID] = id
	return id, nil
}

func (s *Store) SetRelation(ctx context.Context, subject uuid.UUID, kind importer.Relation, target uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpSetRelation); err != nil {
		return err
	}
	subj, ok := s.objects[subject]
	if !ok {
		return fmt.Errorf("memstore: subject %s: %w", subject, importer.ErrNotFound)
	}
	if _, ok := s.objects[target]; !ok {
		return fmt.Errorf("memstore: target %s: %w", target, importer.ErrNotFound)
	}

	if kind == importer.RelExits {
		if err := s.exitClash(subject, target, subj.Name); err != nil {
			return err
		}
	}
	subj.Relations[kind] = target
	return nil
}

// exitClash reports ErrNameConflict if another exit in container already
// uses the primary name of name.
func (s *Store) exitClash(subject, container uuid.UUID, name string) error {
	name = importer.PrimaryName(name)
	for _, other := range s.objects {
		if other.ID != subject && other.Relations[importer.RelExits] == container &&
			strings.EqualFold(importer.PrimaryName(other.Name), name) {
			return fmt.Errorf("memstore: exit %q: %w", name, importer.ErrNameConflict)
		}
	}
	return nil
}

func (s *Store) RenameObject(ctx context.Context, id uuid.UUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpRenameObject); err != nil {
		return err
	}
	obj, ok := s.objects[id]
	if !ok {
		return fmt.Errorf("memstore: %s: %w", id, importer.ErrNotFound)
	}
	if container, placed := obj.Relations[importer.RelExits]; placed {
		if err := s.exitClash(id, container, name); err != nil {
			return err
		}
	}
	obj.Name = name
	return nil
}

func (s *Store) RegisterObject(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpRegisterObject); err != nil {
		return err
	}
	obj, ok := s.objects[id]
	if !ok {
		return fmt.Errorf("memstore: %s: %w", id, importer.ErrNotFound)
	}
	obj.Registered = true
	return nil
}

func (s *Store) CreateAccount(ctx context.Context, spec importer.AccountSpec) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpCreateAccount); err != nil {
		return uuid.Nil, err
	}
	key := strings.ToLower(spec.Name)
	if _, taken := s.accountNames[key]; taken {
		return uuid.Nil, fmt.Errorf("memstore: %q: %w", spec.Name, importer.ErrAccountExists)
	}
	id := uuid.New()
	s.accounts[id] = &importer.Account{ID: id, AccountSpec: spec}
	s.accountOrder = append(s.accountOrder, id)
	s.accountNames[key] = id
	return id, nil
}

func (s *Store) ValidAccountName(ctx context.Context, name string) (bool, string) {
	if ok, reason := importer.CheckAccountName(name); !ok {
		return false, reason
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.accountNames[strings.ToLower(name)]; taken {
		return false, "name taken"
	}
	return true, ""
}

// Entity returns a copy of one object.
func (s *Store) Entity(ctx context.Context, id uuid.UUID) (importer.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[id]
	if !ok {
		return importer.Entity{}, fmt.Errorf("memstore: %s: %w", id, importer.ErrNotFound)
	}
	return copyEntity(obj), nil
}

// Entities returns copies of every object in creation order.
func (s *Store) Entities(ctx context.Context) ([]importer.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]importer.Entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copyEntity(s.objects[id]))
	}
	return out, nil
}

// Accounts returns every account in creation order.
func (s *Store) Accounts(ctx context.Context) ([]importer.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]importer.Account, 0, len(s.accountOrder))
	for _, id := range s.accountOrder {
		out = append(out, *s.accounts[id])
	}
	return out, nil
}

func copyEntity(e *importer.Entity) importer.Entity {
	c := *e
	c.Attributes = maps.Clone(e.Attributes)
	c.Aliases = slices.Clone(e.Aliases)
	c.Relations = maps.Clone(e.Relations)
	return c
}
