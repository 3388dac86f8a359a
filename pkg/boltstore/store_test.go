package boltstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystal-mush/pennport/pkg/gamedb"
	"github.com/crystal-mush/pennport/pkg/importer"
	"github.com/crystal-mush/pennport/pkg/importer/storetest"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	log, _ := test.NewNullLogger()
	s, err := Open(filepath.Join(t.TempDir(), "world.db"), WithLogger(log))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store { return openTemp(t) })
}

func TestRefKeysSortNumerically(t *testing.T) {
	refs := []gamedb.DBRef{gamedb.Home, gamedb.Nothing, 0, 1, 255, 256, 70000}
	for i := 1; i < len(refs); i++ {
		assert.Less(t, string(refToKey(refs[i-1])), string(refToKey(refs[i])))
	}
	for _, ref := range refs {
		assert.Equal(t, ref, keyToRef(refToKey(ref)))
	}
}

func TestReopenKeepsWorld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.db")
	log, _ := test.NewNullLogger()
	ctx := context.Background()

	s, err := Open(path, WithLogger(log))
	require.NoError(t, err)
	room, err := s.CreateObject(ctx, importer.ObjectSpec{Class: "ROOM", Name: "Hall", LegacyID: 0})
	require.NoError(t, err)
	exit, err := s.CreateObject(ctx, importer.ObjectSpec{Class: "EXIT", Name: "Out;o", LegacyID: 4})
	require.NoError(t, err)
	require.NoError(t, s.SetRelation(ctx, exit, importer.RelExits, room))
	_, err = s.CreateAccount(ctx, importer.AccountSpec{Name: "Alice", AdminLevel: 8, LegacyID: 50})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, WithLogger(log))
	require.NoError(t, err)
	defer s.Close()

	n, err := s.ObjectCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	index, err := s.LegacyIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[gamedb.DBRef]uuid.UUID{0: room, 4: exit}, index)

	// The exit index survives the reopen.
	other, err := s.CreateObject(ctx, importer.ObjectSpec{Class: "EXIT", Name: "OUT", LegacyID: 5})
	require.NoError(t, err)
	assert.ErrorIs(t, s.SetRelation(ctx, other, importer.RelExits, room), importer.ErrNameConflict)

	ok, _ := s.ValidAccountName(ctx, "alice")
	assert.False(t, ok)
	accts, err := s.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, accts, 1)
	assert.Equal(t, 8, accts[0].AdminLevel)
}

func TestBackup(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	_, err := s.CreateObject(ctx, importer.ObjectSpec{Class: "THING", Name: "Lamp", LegacyID: 9})
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, s.Backup(dst))

	copied, err := Open(dst)
	require.NoError(t, err)
	defer copied.Close()
	ents, err := copied.Entities(ctx)
	require.NoError(t, err)
	require.Len(t, ents, 1)
	assert.Equal(t, "Lamp", ents[0].Name)
	assert.Equal(t, gamedb.DBRef(9), ents[0].LegacyID)
}
