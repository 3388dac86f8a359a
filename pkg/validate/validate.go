// Package validate checks a parsed PennMUSH dump for problems that would
// make an import lose or misplace data, with optional auto-fix support.
package validate

import (
	"fmt"
	"sort"

	"github.com/crystal-mush/pennport/pkg/gamedb"
)

// Category classifies the type of finding.
type Category int

const (
	CatDump           Category = iota // Truncated or miscounted dump
	CatIntegrityError                 // Broken references
	CatIntegrityWarn                  // Suspicious references
	CatCatalog                        // Flags or powers missing from the catalogs
)

func (c Category) String() string {
	switch c {
	case CatDump:
		return "dump"
	case CatIntegrityError:
		return "integrity-error"
	case CatIntegrityWarn:
		return "integrity-warning"
	case CatCatalog:
		return "catalog"
	default:
		return "unknown"
	}
}

func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Severity indicates how serious a finding is.
type Severity int

const (
	SevError   Severity = iota // Must be fixed for correct behavior
	SevWarning                 // Should be reviewed
	SevInfo                    // Informational only
)

func (s Severity) String() string {
	switch s {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	case SevInfo:
		return "info"
	default:
		return "unknown"
	}
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Finding represents a single validation issue detected in the database.
type Finding struct {
	ID          string       `json:"id"`
	Category    Category     `json:"category"`
	Severity    Severity     `json:"severity"`
	ObjectRef   gamedb.DBRef `json:"object_ref"`
	Field       string       `json:"field,omitempty"`
	Name        string       `json:"name,omitempty"`
	Description string       `json:"description"`
	Fixable     bool         `json:"fixable"`
	Fixed       bool         `json:"fixed"`
	fixFunc     func()
}

// Checker is the interface that each validation check implements.
type Checker interface {
	Name() string
	Check(db *gamedb.Database) []Finding
}

// Validator orchestrates running all checkers against a database.
type Validator struct {
	checkers []Checker
	db       *gamedb.Database
	findings []Finding
}

// New creates a Validator with all built-in checkers registered.
func New(db *gamedb.Database) *Validator {
	return &Validator{
		db: db,
		checkers: []Checker{
			&DumpChecker{},
			&IntegrityChecker{},
			&CatalogChecker{},
		},
	}
}

// Run executes all checkers and returns findings sorted by dbref then
// category.
func (v *Validator) Run() []Finding {
	v.findings = nil
	for _, c := range v.checkers {
		v.findings = append(v.findings, c.Check(v.db)...)
	}
	sort.SliceStable(v.findings, func(i, j int) bool {
		if v.findings[i].ObjectRef != v.findings[j].ObjectRef {
			return v.findings[i].ObjectRef < v.findings[j].ObjectRef
		}
		return v.findings[i].Category < v.findings[j].Category
	})
	return v.findings
}

// Findings returns the current findings (after Run has been called).
func (v *Validator) Findings() []Finding {
	return v.findings
}

// Errors counts findings of error severity that are not fixed.
func (v *Validator) Errors() int {
	n := 0
	for _, f := range v.findings {
		if f.Severity == SevError && !f.Fixed {
			n++
		}
	}
	return n
}

// ApplyFix applies a single fix by finding ID. Returns error if not found or not fixable.
func (v *Validator) ApplyFix(id string) error {
	for i := range v.findings {
		if v.findings[i].ID == id {
			if !v.findings[i].Fixable {
				return fmt.Errorf("finding %s is not fixable", id)
			}
			if v.findings[i].Fixed {
				return fmt.Errorf("finding %s is already fixed", id)
			}
			if v.findings[i].fixFunc != nil {
				v.findings[i].fixFunc()
				v.findings[i].Fixed = true
				if v.db.Linked() {
					v.db.Link()
				}
			}
			return nil
		}
	}
	return fmt.Errorf("finding %s not found", id)
}

// ApplyAll applies all fixable findings in the given category. Returns count of fixes applied.
func (v *Validator) ApplyAll(cat Category) int {
	count := 0
	for i := range v.findings {
		f := &v.findings[i]
		if f.Category == cat && f.Fixable && !f.Fixed && f.fixFunc != nil {
			f.fixFunc()
			f.Fixed = true
			count++
		}
	}
	if count > 0 && v.db.Linked() {
		v.db.Link()
	}
	return count
}

// Summary returns counts of findings per category.
func (v *Validator) Summary() map[Category]int {
	m := make(map[Category]int)
	for _, f := range v.findings {
		m[f.Category]++
	}
	return m
}

// idGen numbers the findings of one checker run.
type idGen struct {
	prefix string
	seq    int
}

func (g *idGen) next() string {
	id := fmt.Sprintf("%s-%d", g.prefix, g.seq)
	g.seq++
	return id
}
