package crypt

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Scheme names the form of a stored hash.
type Scheme string

const (
	SchemeUnknown Scheme = ""
	SchemePlain   Scheme = "plain"  // 1:<algo>:<hex>:<ts>
	SchemeSalted  Scheme = "salted" // 2:<algo>:<salt><hex>:<ts>
	SchemeDES     Scheme = "des"    // 13-character crypt(3)
	SchemeBcrypt  Scheme = "bcrypt"
)

var (
	ErrUnknownScheme = errors.New("crypt: unrecognised password hash")
	ErrUnknownAlgo   = errors.New("crypt: unsupported digest")
)

var digests = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha":    sha1.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha512": sha512.New,
}

// Identify reports which scheme produced stored.
func Identify(stored string) Scheme {
	switch {
	case strings.HasPrefix(stored, "1:"):
		return SchemePlain
	case strings.HasPrefix(stored, "2:"):
		return SchemeSalted
	case strings.HasPrefix(stored, "$2a$"), strings.HasPrefix(stored, "$2b$"), strings.HasPrefix(stored, "$2y$"):
		return SchemeBcrypt
	case len(stored) == 13 && !strings.Contains(stored, ":"):
		return SchemeDES
	}
	return SchemeUnknown
}

// Verify checks password against a stored hash. It returns an error only
// when the hash cannot be interpreted.
func Verify(stored, password string) (bool, error) {
	switch Identify(stored) {
	case SchemePlain, SchemeSalted:
		return verifyDigest(stored, password)
	case SchemeDES:
		return CheckDES(password, stored), nil
	case SchemeBcrypt:
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return err == nil, err
	}
	return false, ErrUnknownScheme
}

// verifyDigest handles "1:algo:hex:ts" and "2:algo:<2-char salt>hex:ts".
func verifyDigest(stored, password string) (bool, error) {
	parts := strings.Split(stored, ":")
	if len(parts) < 3 {
		return false, fmt.Errorf("%w: %d fields", ErrUnknownScheme, len(parts))
	}
	newHash, ok := digests[strings.ToLower(parts[1])]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownAlgo, parts[1])
	}

	want := parts[2]
	input := password
	if parts[0] == "2" {
		if len(want) < 2 {
			return false, fmt.Errorf("%w: missing salt", ErrUnknownScheme)
		}
		input = want[:2] + password
		want = want[2:]
	}

	h := newHash()
	h.Write([]byte(input))
	got := hex.EncodeToString(h.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(want))) == 1, nil
}

// Upgrade hashes password with bcrypt at the default cost.
func Upgrade(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("crypt: bcrypt: %w", err)
	}
	return string(b), nil
}
