package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 10, c.WizardLevel)
	assert.Equal(t, 8, c.RoyaltyLevel)
	assert.Equal(t, 6, c.AdminAttributeLevel)
	assert.Equal(t, "EXIT", c.Classes[CategoryExit])
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "pennport.yaml", `
core_code_parent: "Code Root"
wizard_level: 99
classes:
  group: GUILD
store_path: data/world.db
log_format: json
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Code Root", c.CoreCodeParent)
	assert.Equal(t, 99, c.WizardLevel)
	assert.Equal(t, 8, c.RoyaltyLevel)
	assert.Equal(t, "GUILD", c.Classes[CategoryGroup])
	assert.Equal(t, "ROOM", c.Classes[CategoryRoom])
	assert.Equal(t, filepath.Join(filepath.Dir(path), "data/world.db"), c.StorePath)
	assert.Equal(t, "json", c.LogFormat)

	_, isJSON := c.Logger().Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
}

func TestLoadText(t *testing.T) {
	path := writeFile(t, "pennport.conf", `
# comment
unassigned_name   Lost And Found
exit_suffix_limit 5
class_thing	ITEM
ledger_path /var/lib/pennport/ledger.db
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Lost And Found", c.UnassignedName)
	assert.Equal(t, 5, c.ExitSuffixLimit)
	assert.Equal(t, "ITEM", c.Classes[CategoryThing])
	assert.Equal(t, "/var/lib/pennport/ledger.db", c.LedgerPath)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeFile(t, "bad.conf", "wizard_level lots\n"))
	assert.ErrorContains(t, err, "bad.conf:1")

	_, err = Load(writeFile(t, "bad2.conf", "no_such_key 1\n"))
	assert.ErrorContains(t, err, "unknown key")

	_, err = Load(writeFile(t, "bad.yaml", "exit_suffix_limit: 0\n"))
	assert.ErrorContains(t, err, "exit_suffix_limit")

	_, err = Load(writeFile(t, "bad2.yaml", "log_level: chatty\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
