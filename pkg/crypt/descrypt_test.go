package crypt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func desHash(t *testing.T, password, salt string) string {
	t.Helper()
	sum, err := DES(password, salt)
	require.NoError(t, err)
	return sum
}

func TestDESShape(t *testing.T) {
	for _, salt := range []string{"XX", "ab", "Ax", "..", "//"} {
		sum := desHash(t, "mushpassword", salt)
		assert.Len(t, sum, 13, salt)
		assert.Equal(t, salt, sum[:2])
		assert.True(t, CheckDES("mushpassword", sum), salt)
	}
}

func TestDESBadSalt(t *testing.T) {
	_, err := DES("pw", "X")
	assert.Error(t, err)
}

func TestCheckDES(t *testing.T) {
	sum := desHash(t, "testpass", "XX")
	assert.True(t, CheckDES("testpass", sum))
	assert.False(t, CheckDES("wrongpass", sum))
	assert.False(t, CheckDES("", sum))
	assert.False(t, CheckDES("testpass", sum[:12]), "short hash")
}
