package validate

import (
	"fmt"

	"github.com/crystal-mush/pennport/pkg/gamedb"
)

// DumpChecker compares what the dump announced with what was loaded.
type DumpChecker struct{}

func (c *DumpChecker) Name() string { return "dump" }

func (c *DumpChecker) Check(db *gamedb.Database) []Finding {
	var findings []Finding
	ids := &idGen{prefix: "dump"}

	if db.Truncated {
		findings = append(findings, Finding{
			ID:          ids.next(),
			Category:    CatDump,
			Severity:    SevError,
			ObjectRef:   gamedb.Nothing,
			Description: fmt.Sprintf("dump ends before the end-of-dump marker; %d objects loaded", len(db.Objects)),
		})
	}

	counts := []struct {
		what     string
		declared int
		loaded   int
	}{
		{"objects", db.Declared.Objects, len(db.Objects)},
		{"flags", db.Declared.Flags, len(db.Flags)},
		{"powers", db.Declared.Powers, len(db.Powers)},
		{"attributes", db.Declared.Attrs, len(db.AttrDefs)},
	}
	for _, c := range counts {
		if c.declared == 0 || c.declared == c.loaded {
			continue
		}
		findings = append(findings, Finding{
			ID:          ids.next(),
			Category:    CatDump,
			Severity:    SevWarning,
			ObjectRef:   gamedb.Nothing,
			Field:       c.what,
			Description: fmt.Sprintf("dump declares %d %s but %d were loaded", c.declared, c.what, c.loaded),
		})
	}
	return findings
}
