// Package storetest checks that an importer.Store behaves the way the
// import pipeline expects.
package storetest

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystal-mush/pennport/pkg/gamedb"
	"github.com/crystal-mush/pennport/pkg/importer"
)

// Store is what the suite needs from an implementation.
type Store interface {
	importer.Store
	importer.Inspector
}

// Run exercises a fresh store from newStore in each subtest.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s Store)
	}{
		{"CreateAndCount", testCreateAndCount},
		{"DuplicateLegacyID", testDuplicateLegacyID},
		{"Relations", testRelations},
		{"RelationUnknownIDs", testRelationUnknownIDs},
		{"ExitNameConflict", testExitNameConflict},
		{"RenameAndRegister", testRenameAndRegister},
		{"Accounts", testAccounts},
		{"AccountNames", testAccountNames},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func create(t *testing.T, s Store, legacy gamedb.DBRef, class, name string) uuid.UUID {
	t.Helper()
	id, err := s.CreateObject(context.Background(), importer.ObjectSpec{
		Class:      class,
		Name:       name,
		LegacyID:   legacy,
		Created:    100,
		Modified:   200,
		Attributes: map[string]string{"DESC": "A " + name + "."},
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)
	return id
}

func testCreateAndCount(t *testing.T, s Store) {
	ctx := context.Background()
	n, err := s.ObjectCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	owner, err := s.CreateAccount(ctx, importer.AccountSpec{Name: "Owner", LegacyID: 7})
	require.NoError(t, err)

	id, err := s.CreateObject(ctx, importer.ObjectSpec{
		Class:      "THING",
		Name:       "Lamp",
		LegacyID:   3,
		Owner:      owner,
		Created:    100,
		Modified:   200,
		Attributes: map[string]string{"DESC": "Bright."},
		Aliases:    []string{"light"},
	})
	require.NoError(t, err)
	create(t, s, 4, "ROOM", "Hall")

	n, err = s.ObjectCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	e, err := s.Entity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", e.Name)
	assert.Equal(t, "THING", e.Class)
	assert.Equal(t, gamedb.DBRef(3), e.LegacyID)
	assert.Equal(t, owner, e.Owner)
	assert.Equal(t, int64(100), e.Created)
	assert.Equal(t, int64(200), e.Modified)
	assert.Equal(t, map[string]string{"DESC": "Bright."}, e.Attributes)
	assert.Equal(t, []string{"light"}, e.Aliases)
	assert.False(t, e.Registered)

	all, err := s.Entities(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = s.Entity(ctx, uuid.New())
	assert.ErrorIs(t, err, importer.ErrNotFound)
}

func testDuplicateLegacyID(t *testing.T, s Store) {
	create(t, s, 5, "THING", "First")
	_, err := s.CreateObject(context.Background(), importer.ObjectSpec{Class: "THING", Name: "Second", LegacyID: 5})
	assert.ErrorIs(t, err, importer.ErrConflict)

	n, err := s.ObjectCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testRelations(t *testing.T, s Store) {
	ctx := context.Background()
	room := create(t, s, 1, "ROOM", "Hall")
	zone := create(t, s, 2, "THING", "Zone")
	thing := create(t, s, 3, "THING", "Lamp")

	require.NoError(t, s.SetRelation(ctx, thing, importer.RelLocation, room))
	require.NoError(t, s.SetRelation(ctx, thing, importer.RelZone, zone))
	require.NoError(t, s.SetRelation(ctx, thing, importer.RelLocation, zone))

	e, err := s.Entity(ctx, thing)
	require.NoError(t, err)
	assert.Equal(t, map[importer.Relation]uuid.UUID{
		importer.RelLocation: zone,
		importer.RelZone:     zone,
	}, e.Relations)
}

func testRelationUnknownIDs(t *testing.T, s Store) {
	ctx := context.Background()
	thing := create(t, s, 3, "THING", "Lamp")
	assert.ErrorIs(t, s.SetRelation(ctx, uuid.New(), importer.RelOwner, thing), importer.ErrNotFound)
	assert.ErrorIs(t, s.SetRelation(ctx, thing, importer.RelOwner, uuid.New()), importer.ErrNotFound)
}

func testExitNameConflict(t *testing.T, s Store) {
	ctx := context.Background()
	room := create(t, s, 1, "ROOM", "Hall")
	other := create(t, s, 2, "ROOM", "Yard")
	north := create(t, s, 3, "EXIT", "North;n")
	again := create(t, s, 4, "EXIT", "north;no")

	require.NoError(t, s.SetRelation(ctx, north, importer.RelExits, room))
	// Placing an exit again where it already is does not clash with itself.
	require.NoError(t, s.SetRelation(ctx, north, importer.RelExits, room))

	err := s.SetRelation(ctx, again, importer.RelExits, room)
	assert.ErrorIs(t, err, importer.ErrNameConflict)
	require.NoError(t, s.SetRelation(ctx, again, importer.RelExits, other))

	require.NoError(t, s.RenameObject(ctx, north, "North1;n"))
	e, err := s.Entity(ctx, north)
	require.NoError(t, err)
	assert.Equal(t, "North1;n", e.Name)

	// A placed exit cannot be renamed onto a sibling's name.
	west := create(t, s, 5, "EXIT", "West;w")
	require.NoError(t, s.SetRelation(ctx, west, importer.RelExits, room))
	err = s.RenameObject(ctx, west, "north1")
	assert.ErrorIs(t, err, importer.ErrNameConflict)
	e, err = s.Entity(ctx, west)
	require.NoError(t, err)
	assert.Equal(t, "West;w", e.Name)

	// The sibling still holds its name.
	twin := create(t, s, 6, "EXIT", "North1")
	assert.ErrorIs(t, s.SetRelation(ctx, twin, importer.RelExits, room), importer.ErrNameConflict)
}

func testRenameAndRegister(t *testing.T, s Store) {
	ctx := context.Background()
	id := create(t, s, 1, "THING", "Lamp")
	require.NoError(t, s.RenameObject(ctx, id, "Torch"))
	require.NoError(t, s.RegisterObject(ctx, id))

	e, err := s.Entity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Torch", e.Name)
	assert.True(t, e.Registered)

	assert.ErrorIs(t, s.RenameObject(ctx, uuid.New(), "x"), importer.ErrNotFound)
	assert.ErrorIs(t, s.RegisterObject(ctx, uuid.New()), importer.ErrNotFound)
}

func testAccounts(t *testing.T, s Store) {
	ctx := context.Background()
	a, err := s.CreateAccount(ctx, importer.AccountSpec{Name: "Alice", Email: "a@example.com", AdminLevel: 10, LegacyID: 50})
	require.NoError(t, err)
	b, err := s.CreateAccount(ctx, importer.AccountSpec{Name: "Unassigned", LegacyID: gamedb.Nothing})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	_, err = s.CreateAccount(ctx, importer.AccountSpec{Name: "ALICE"})
	assert.ErrorIs(t, err, importer.ErrAccountExists)

	accts, err := s.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, accts, 2)
	assert.Equal(t, importer.Account{ID: a, AccountSpec: importer.AccountSpec{
		Name: "Alice", Email: "a@example.com", AdminLevel: 10, LegacyID: 50,
	}}, accts[0])
	assert.Equal(t, gamedb.Nothing, accts[1].LegacyID)

	n, err := s.ObjectCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "accounts are not objects")
}

func testAccountNames(t *testing.T, s Store) {
	ctx := context.Background()
	_, err := s.CreateAccount(ctx, importer.AccountSpec{Name: "Taken"})
	require.NoError(t, err)

	for name, want := range map[string]bool{
		"Alice":                 true,
		"Mary Sue":              true,
		"":                      false,
		"taken":                 false,
		"12345":                 false,
		"a@b":                   false,
		" padded":               false,
		"x\x01y":                false,
		strings.Repeat("a", 31): false,
	} {
		ok, reason := s.ValidAccountName(ctx, name)
		assert.Equal(t, want, ok, "%q: %s", name, reason)
		if !ok {
			assert.NotEmpty(t, reason, name)
		}
	}
}
