package boltstore

import (
	"encoding/binary"
	"strings"

	"github.com/google/uuid"

	"github.com/crystal-mush/pennport/pkg/gamedb"
	"github.com/crystal-mush/pennport/pkg/importer"
)

// Bucket name constants for bbolt storage.
var (
	bucketMeta         = []byte("meta") // owns the object creation sequence
	bucketObjects      = []byte("objects")
	bucketLegacy       = []byte("legacy")
	bucketAccounts     = []byte("accounts")
	bucketAccountNames = []byte("accountnames")
	bucketExits        = []byte("exits")
)

var allBuckets = [][]byte{
	bucketMeta, bucketObjects, bucketLegacy,
	bucketAccounts, bucketAccountNames, bucketExits,
}

// refToKey converts a DBRef to an 8-byte big-endian key.
// We offset by a large constant so negative DBRefs (Nothing=-1, etc.) sort correctly.
func refToKey(ref gamedb.DBRef) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(int64(ref)+1<<32))
	return buf
}

// keyToRef converts an 8-byte big-endian key back to a DBRef.
func keyToRef(b []byte) gamedb.DBRef {
	v := binary.BigEndian.Uint64(b)
	return gamedb.DBRef(int64(v) - 1<<32)
}

// exitKey indexes an exit by container and lowercased primary name.
func exitKey(container uuid.UUID, name string) []byte {
	key := make([]byte, 0, len(container)+len(name))
	key = append(key, container[:]...)
	return append(key, strings.ToLower(importer.PrimaryName(name))...)
}

func accountNameKey(name string) []byte {
	return []byte(strings.ToLower(name))
}

// keyToID copies a stored 16-byte id out of bbolt-owned memory.
func keyToID(b []byte) uuid.UUID {
	var id uuid.UUID
	copy(id[:], b)
	return id
}
