// Package crypt verifies the password hashes PennMUSH stores in a
// player's XYXXY attribute, and re-hashes them with bcrypt.
package crypt

import (
	"crypto/subtle"
	"fmt"

	descrypt "github.com/digitive/crypt"
)

// DES runs traditional Unix crypt(3) with a two-character salt. Dumps
// from servers built before SHA1 support hold these.
func DES(password, salt string) (string, error) {
	if len(salt) != 2 {
		return "", fmt.Errorf("crypt: DES salt must be 2 characters, got %q", salt)
	}
	sum, err := descrypt.Crypt(password, salt)
	if err != nil {
		return "", fmt.Errorf("crypt: DES: %w", err)
	}
	return sum, nil
}

// CheckDES reports whether password hashes to stored, a 13-character
// crypt(3) string whose first two characters are the salt.
func CheckDES(password, stored string) bool {
	if len(stored) != 13 {
		return false
	}
	sum, err := DES(password, stored[:2])
	return err == nil && subtle.ConstantTimeCompare([]byte(sum), []byte(stored)) == 1
}
