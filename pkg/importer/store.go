package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/crystal-mush/pennport/pkg/gamedb"
)

// Errors a Store reports for conditions the pipeline reacts to.
var (
	// ErrConflict means an object for the legacy id already exists.
	ErrConflict = errors.New("store: legacy id already present")
	// ErrNameConflict means an exit with the same name already sits in the
	// target container.
	ErrNameConflict = errors.New("store: name already used in container")
	// ErrNotFound means a subject or target id is unknown to the store.
	ErrNotFound = errors.New("store: no such object")
)

// Relation is a directed edge between two destination objects.
type Relation string

const (
	RelZone        Relation = "ZONE"
	RelParent      Relation = "PARENT"
	RelOwner       Relation = "OWNER"
	RelLocation    Relation = "LOCATION"
	RelDestination Relation = "DESTINATION"
	RelExits       Relation = "EXITS"
)

// Relations lists every relation kind in wiring order.
var Relations = []Relation{RelZone, RelParent, RelOwner, RelLocation, RelDestination, RelExits}

// ObjectSpec describes one destination object to create.
type ObjectSpec struct {
	Class      string
	Name       string
	LegacyID   gamedb.DBRef
	Owner      uuid.UUID // account
	Created    int64
	Modified   int64
	Attributes map[string]string
	Aliases    []string
}

// AccountSpec describes one destination account.
type AccountSpec struct {
	Name       string
	Email      string
	AdminLevel int
	LegacyID   gamedb.DBRef // Nothing for accounts with no legacy root
}

// Store is the destination world. Every call may block.
type Store interface {
	// ObjectCount reports how many objects the world holds.
	ObjectCount(ctx context.Context) (int, error)
	// CreateObject creates one object. It returns ErrConflict if an object
	// with the same legacy id exists.
	CreateObject(ctx context.Context, spec ObjectSpec) (uuid.UUID, error)
	// SetRelation points subject at target. For RelExits, subject is the
	// exit and target the room holding it; a name clash inside target
	// returns ErrNameConflict.
	SetRelation(ctx context.Context, subject uuid.UUID, kind Relation, target uuid.UUID) error
	// RenameObject changes an object's name.
	RenameObject(ctx context.Context, id uuid.UUID, name string) error
	// RegisterObject makes an object visible to search and traversal.
	RegisterObject(ctx context.Context, id uuid.UUID) error
	// CreateAccount creates an account.
	CreateAccount(ctx context.Context, spec AccountSpec) (uuid.UUID, error)
	// ValidAccountName reports whether name is acceptable, and why not.
	ValidAccountName(ctx context.Context, name string) (bool, string)
}

// ErrAccountExists means an account with that name (in any case) exists.
var ErrAccountExists = errors.New("store: account name taken")

// Entity is a store's view of one created object.
type Entity struct {
	ID uuid.UUID
	ObjectSpec
	Relations  map[Relation]uuid.UUID
	Registered bool
}

// Account is a store's view of one created account.
type Account struct {
	ID uuid.UUID
	AccountSpec
}

// Inspector is implemented by stores that can list what they hold.
type Inspector interface {
	Entity(ctx context.Context, id uuid.UUID) (Entity, error)
	Entities(ctx context.Context) ([]Entity, error)
	Accounts(ctx context.Context) ([]Account, error)
}

// MaxAccountName is the longest account name CheckAccountName accepts.
const MaxAccountName = 30

// CheckAccountName applies the account naming rules shared by the bundled
// stores: 1 to MaxAccountName printable characters, no surrounding spaces,
// no "@", not all digits.
func CheckAccountName(name string) (bool, string) {
	switch {
	case name == "":
		return false, "empty name"
	case utf8.RuneCountInString(name) > MaxAccountName:
		return false, fmt.Sprintf("longer than %d characters", MaxAccountName)
	case strings.TrimSpace(name) != name:
		return false, "leading or trailing space"
	case strings.ContainsRune(name, '@'):
		return false, "contains @"
	case strings.Trim(name, "0123456789") == "":
		return false, "all digits"
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return false, "unprintable character"
		}
	}
	return true, ""
}

// PrimaryName is the part of an object name before any ";alias" list.
func PrimaryName(name string) string {
	if i := strings.IndexByte(name, ';'); i >= 0 {
		return name[:i]
	}
	return name
}
