package validate

import (
	"fmt"
	"strings"

	"github.com/crystal-mush/pennport/pkg/gamedb"
)

// CatalogChecker reports flags and powers set on objects but absent from
// the dump's own FLAGS and POWERS catalogs, and flags set on object types
// the catalog does not allow.
type CatalogChecker struct{}

func (c *CatalogChecker) Name() string { return "catalog" }

func (c *CatalogChecker) Check(db *gamedb.Database) []Finding {
	var findings []Finding
	ids := &idGen{prefix: "catalog"}
	flags := catalogNames(db.Flags)
	powers := catalogNames(db.Powers)

	for _, id := range db.SortedIDs() {
		obj := db.Objects[id]
		if obj.Type == gamedb.TypeGarbage {
			continue
		}
		for _, name := range obj.Flags {
			def, ok := flags[strings.ToUpper(name)]
			if !ok {
				findings = append(findings, Finding{
					ID:          ids.next(),
					Category:    CatCatalog,
					Severity:    SevWarning,
					ObjectRef:   id,
					Field:       "flags",
					Name:        name,
					Description: fmt.Sprintf("%s has flag %s, which the FLAGS section does not declare", id, name),
				})
				continue
			}
			if !appliesTo(def, obj.Type) {
				findings = append(findings, Finding{
					ID:          ids.next(),
					Category:    CatCatalog,
					Severity:    SevInfo,
					ObjectRef:   id,
					Field:       "flags",
					Name:        name,
					Description: fmt.Sprintf("%s has flag %s, which is declared for %s only", id, name, def.Types),
				})
			}
		}
		for _, name := range obj.Powers {
			if _, ok := powers[strings.ToUpper(name)]; !ok {
				findings = append(findings, Finding{
					ID:          ids.next(),
					Category:    CatCatalog,
					Severity:    SevWarning,
					ObjectRef:   id,
					Field:       "powers",
					Name:        name,
					Description: fmt.Sprintf("%s has power %s, which the POWERS section does not declare", id, name),
				})
			}
		}
	}
	return findings
}

// catalogNames indexes a catalog by upper-cased name and alias.
func catalogNames(catalog map[string]*gamedb.Flag) map[string]*gamedb.Flag {
	out := make(map[string]*gamedb.Flag, len(catalog))
	for name, f := range catalog {
		out[strings.ToUpper(name)] = f
		for _, alias := range f.Aliases {
			out[strings.ToUpper(alias)] = f
		}
	}
	return out
}

// appliesTo reports whether a catalog entry allows objects of type t. An
// entry with no type list, or listing ANY, allows every type.
func appliesTo(f *gamedb.Flag, t gamedb.ObjectType) bool {
	if len(f.Types) == 0 || f.Types.Has("ANY") {
		return true
	}
	return f.Types.Has(t.String())
}
