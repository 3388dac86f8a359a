package archive

import (
	"archive/tar"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func createArchive(t *testing.T, dir string, at time.Time) string {
	t.Helper()
	src := t.TempDir()
	ledger := writeFile(t, filepath.Join(src, "remap.sqlite"), "ledger rows")
	report := writeFile(t, filepath.Join(src, "import.json"), `{"objects":3}`)

	now = func() time.Time { return at }
	t.Cleanup(func() { now = time.Now })

	checkpointed := false
	path, err := Create(Params{
		StoreSnapshot: func(dest string) error {
			return os.WriteFile(dest, []byte("bolt pages"), 0600)
		},
		LedgerPath:       ledger,
		LedgerCheckpoint: func() error { checkpointed = true; return nil },
		ReportPath:       report,
		Dir:              dir,
		Source:           "outdb.gz",
		Run:              "run-1",
		Objects:          3,
		Accounts:         2,
	})
	require.NoError(t, err)
	assert.True(t, checkpointed)
	return path
}

func TestCreateAndVerify(t *testing.T) {
	dir := t.TempDir()
	path := createArchive(t, dir, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, filepath.Join(dir, "import-20240501-120000.tar.gz"), path)

	m, err := Verify(path)
	require.NoError(t, err)
	assert.Equal(t, "outdb.gz", m.Source)
	assert.Equal(t, "run-1", m.Run)
	assert.Equal(t, 3, m.Objects)
	assert.Len(t, m.Files, 3)
	assert.Equal(t, "store", m.Files[EntryStore].Type)
	assert.Equal(t, int64(len("bolt pages")), m.Files[EntryStore].Size)
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	createArchive(t, dir, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	createArchive(t, dir, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	infos, err := List(dir)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "import-20240601-120000.tar.gz", infos[0].Filename)
	assert.Equal(t, 2, infos[1].Accounts)
}

func TestRestore(t *testing.T) {
	path := createArchive(t, t.TempDir(), time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	dest := t.TempDir()
	storeDest := filepath.Join(dest, "world.db")

	res, err := Restore(RestoreParams{
		ArchivePath: path,
		StoreDest:   storeDest,
		LedgerDest:  filepath.Join(dest, "remap.sqlite"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.FilesRestored)

	data, err := os.ReadFile(storeDest)
	require.NoError(t, err)
	assert.Equal(t, "bolt pages", string(data))

	_, err = Restore(RestoreParams{ArchivePath: path, StoreDest: storeDest})
	assert.ErrorContains(t, err, "already exists")

	res, err = Restore(RestoreParams{ArchivePath: path, StoreDest: storeDest, Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesRestored)
}

func TestVerifyDetectsMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tar.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)

	body := []byte("tampered")
	require.NoError(t, tw.WriteHeader(&tar.Header{Typeflag: tar.TypeReg, Name: EntryReport, Size: int64(len(body)), Mode: 0644}))
	_, err = tw.Write(body)
	require.NoError(t, err)

	manifest, err := json.Marshal(Manifest{Files: map[string]FileEntry{
		EntryReport: {SHA256: "00", Size: int64(len(body))},
	}})
	require.NoError(t, err)
	require.NoError(t, tw.WriteHeader(&tar.Header{Typeflag: tar.TypeReg, Name: EntryManifest, Size: int64(len(manifest)), Mode: 0644}))
	_, err = tw.Write(manifest)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())

	_, err = Verify(path)
	assert.ErrorContains(t, err, "checksum mismatch")

	_, err = ReadManifest(path)
	assert.NoError(t, err)
}
