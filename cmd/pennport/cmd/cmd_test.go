package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystal-mush/pennport/pkg/archive"
	"github.com/crystal-mush/pennport/pkg/boltstore"
	"github.com/crystal-mush/pennport/pkg/crypt"
	"github.com/crystal-mush/pennport/pkg/flatfile"
	"github.com/crystal-mush/pennport/pkg/gamedb"
	"github.com/crystal-mush/pennport/pkg/importer"
	"github.com/crystal-mush/pennport/pkg/ledger"
)

func object(db *gamedb.Database, id gamedb.DBRef, typ gamedb.ObjectType, name string) *gamedb.Object {
	o := gamedb.NewObject(id)
	o.Type = typ
	o.Name = name
	o.Owner = 1
	o.Location = 0
	o.Created = 1000
	o.Modified = 2000
	db.AddObject(o)
	return o
}

func setAttr(o *gamedb.Object, name, value string) {
	o.Attrs[name] = &gamedb.Attr{Name: name, Owner: o.Owner, Value: value}
}

// writeDump saves a small game with one account and returns its path.
func writeDump(t *testing.T) string {
	t.Helper()
	db := gamedb.NewDatabase()
	db.Header.Version = "+V1"
	object(db, 0, gamedb.TypeRoom, "Limbo").Location = gamedb.Nothing
	one := object(db, 1, gamedb.TypePlayer, "One")
	one.Flags = gamedb.ParseNameSet("WIZARD")
	hash, err := crypt.Upgrade("potrzebie")
	require.NoError(t, err)
	setAttr(one, gamedb.AttrPassword, hash)

	ccp := object(db, 2, gamedb.TypeThing, "Core Code Parent <CCP>")
	setAttr(ccp, "COBJ`ACCOUNTS", "#3")
	setAttr(ccp, "COBJ`GOP", "#4")
	object(db, 3, gamedb.TypeThing, "Accounts").Location = 2
	object(db, 4, gamedb.TypeThing, "Groups").Location = 2

	acct := object(db, 5, gamedb.TypeThing, "Bob <bob@example.com>")
	acct.Parent = 3
	acct.Location = 3
	robert := object(db, 6, gamedb.TypePlayer, "Robert")
	robert.Parent = 5
	robert.Owner = 6

	out := object(db, 7, gamedb.TypeExit, "Out;o")
	out.Exits = 0
	out.Location = 0

	path := filepath.Join(t.TempDir(), "outdb")
	require.NoError(t, flatfile.Save(path, db))
	return path
}

func resetFlags() {
	configPath, logLevel, logFormat = "", "error", ""
	showPlayers, showRooms, showObj, showAttrStats, rewritePath = false, false, -1, false, ""
	validateJSON, validateFix, validateWatch = false, "", false
	importDryRun, importStore, importLedger, importReportF, importMetrics, importStrict = false, "", "", "", "", false
	importArchive = ""
	restoreStore, restoreLedger, restoreReport, restoreForce = "", "", "", false
	checkpassUpgrade = false
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInspect(t *testing.T) {
	path := writeDump(t)
	out, err := execute(t, "inspect", path, "--players", "--obj", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded objects: 8")
	assert.Contains(t, out, "Robert")
	assert.Contains(t, out, "=== OBJECT #7 ===")
	assert.Contains(t, out, "Out;o")
}

func TestInspectRewrite(t *testing.T) {
	path := writeDump(t)
	copyPath := filepath.Join(t.TempDir(), "copy.db")
	_, err := execute(t, "inspect", path, "--rewrite", copyPath)
	require.NoError(t, err)

	db, err := flatfile.Load(copyPath)
	require.NoError(t, err)
	assert.Len(t, db.Objects, 8)
	assert.False(t, db.Truncated)
}

func TestValidate(t *testing.T) {
	path := writeDump(t)
	out, err := execute(t, "validate", path, "--json")
	require.NoError(t, err)

	var report struct {
		Objects int `json:"objects"`
		Errors  int `json:"errors"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 8, report.Objects)
	assert.Zero(t, report.Errors)
}

func TestValidateFix(t *testing.T) {
	db := gamedb.NewDatabase()
	object(db, 0, gamedb.TypeRoom, "Limbo").Location = gamedb.Nothing
	object(db, 1, gamedb.TypePlayer, "One")
	object(db, 2, gamedb.TypeThing, "Lost").Location = 99
	path := filepath.Join(t.TempDir(), "outdb")
	require.NoError(t, flatfile.Save(path, db))

	_, err := execute(t, "validate", path)
	assert.ErrorContains(t, err, "1 unfixed errors")

	fixed := filepath.Join(t.TempDir(), "fixed.db")
	_, err = execute(t, "validate", path, "--fix", fixed)
	require.NoError(t, err)
	_, err = execute(t, "validate", fixed)
	assert.NoError(t, err)
}

func TestImportDryRun(t *testing.T) {
	path := writeDump(t)
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "import.json")
	ledgerPath := filepath.Join(dir, "remap.sqlite")
	metricsPath := filepath.Join(dir, "import.prom")

	out, err := execute(t, "import", path, "--dry-run",
		"--report", reportPath, "--ledger", ledgerPath, "--metrics", metricsPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Import complete: 2 accounts")

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report importReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.True(t, report.DryRun)
	assert.Empty(t, report.Error)
	assert.Equal(t, importer.PhaseFinalize, report.Phase)
	assert.Equal(t, 2, report.Accounts)
	assert.Len(t, report.Remap, report.Objects)
	assert.Contains(t, report.Remap, "#7")
	assert.NotContains(t, report.Remap, "#5", "account roots become accounts")
	assert.Equal(t, report.Owners["#5"], report.Owners["#6"])

	l, err := ledger.Open(ledgerPath)
	require.NoError(t, err)
	defer l.Close()
	entries, err := l.Entries(context.Background(), report.Run)
	require.NoError(t, err)
	assert.Len(t, entries, report.Objects+report.Accounts)

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "pennport_objects_created_total")
}

func TestImportIntoNonEmptyStore(t *testing.T) {
	path := writeDump(t)
	storePath := filepath.Join(t.TempDir(), "world.db")

	_, err := execute(t, "import", path, "--store", storePath)
	require.NoError(t, err)

	out, err := execute(t, "import", path, "--store", storePath)
	assert.ErrorIs(t, err, importer.ErrWorldNotEmpty)
	assert.Equal(t, 1, strings.Count(out, "Import failed"))

	var stderr bytes.Buffer
	printError(&stderr, err)
	assert.Empty(t, stderr.String())
}

func TestImportReportsRenamedExits(t *testing.T) {
	path := writeDump(t)
	db, err := flatfile.Load(path)
	require.NoError(t, err)
	twin := object(db, 8, gamedb.TypeExit, "Out")
	twin.Exits = 0
	twin.Location = 0
	require.NoError(t, flatfile.Save(path, db))

	reportPath := filepath.Join(t.TempDir(), "import.json")
	_, err = execute(t, "import", path, "--dry-run", "--report", reportPath)
	require.NoError(t, err)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report importReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 1, report.ExitRenames)
	assert.Equal(t, map[string]string{"#8": "Out1"}, report.RenamedExits)
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, errors.New("no such dump"))
	assert.Equal(t, "Error: no such dump\n", buf.String())
}

func TestImportArchive(t *testing.T) {
	path := writeDump(t)
	dir := t.TempDir()
	archives := filepath.Join(dir, "archives")

	_, err := execute(t, "import", path,
		"--store", filepath.Join(dir, "world.db"),
		"--ledger", filepath.Join(dir, "remap.sqlite"),
		"--report", filepath.Join(dir, "import.json"),
		"--archive", archives)
	require.NoError(t, err)

	infos, err := archive.List(archives)
	require.NoError(t, err)
	require.Len(t, infos, 1)

	out, err := execute(t, "archive", "verify", infos[0].Path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok (3 files")

	restored := filepath.Join(t.TempDir(), "world.db")
	out, err = execute(t, "archive", "restore", infos[0].Path, "--store", restored)
	require.NoError(t, err)
	assert.Contains(t, out, "restored 1 files")

	bs, err := boltstore.Open(restored)
	require.NoError(t, err)
	defer bs.Close()
	n, err := bs.ObjectCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, infos[0].Objects, n)
}

func TestCheckpass(t *testing.T) {
	path := writeDump(t)

	out, err := execute(t, "checkpass", path, "one", "potrzebie", "--upgrade")
	require.NoError(t, err)
	assert.Contains(t, out, "password matches (bcrypt)")
	assert.Contains(t, out, "$2a$")

	_, err = execute(t, "checkpass", path, "#1", "wrong")
	assert.ErrorContains(t, err, "mismatch")

	_, err = execute(t, "checkpass", path, "#3", "potrzebie")
	assert.ErrorContains(t, err, "no player")
}
