package gamedb

import (
	"regexp"
	"strings"
)

// Reserved attribute names with meaning to the importer.
const (
	AttrAlias    = "ALIAS"
	AttrPassword = "XYXXY"
)

// Get looks up an attribute by name. With inherit set, a miss falls back
// along the parent chain. Requires a linked database for inheritance.
func (o *Object) Get(name string, inherit bool) (*Attr, bool) {
	name = strings.ToUpper(name)
	seen := make(map[DBRef]bool)
	for cur := o; cur != nil && !seen[cur.ID]; cur = cur.Links.Parent {
		if a, ok := cur.Attrs[name]; ok {
			return a, true
		}
		if !inherit {
			break
		}
		seen[cur.ID] = true
	}
	return nil, false
}

// Value returns the attribute's value or "" if it is not set.
func (o *Object) Value(name string, inherit bool) string {
	if a, ok := o.Get(name, inherit); ok {
		return a.Value
	}
	return ""
}

// Ancestors returns the parent chain, nearest first. Loops are cut.
func (o *Object) Ancestors() []*Object {
	var out []*Object
	seen := map[DBRef]bool{o.ID: true}
	for p := o.Links.Parent; p != nil && !seen[p.ID]; p = p.Links.Parent {
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

// LAttr lists attributes whose names match a wildcard pattern. "*" matches
// within one backtick-separated name segment and "**" matches across
// segments. With inherit set, ancestors contribute attributes the object
// does not override.
func (o *Object) LAttr(pattern string, inherit bool) map[string]*Attr {
	out := make(map[string]*Attr)
	if pattern == "" {
		return out
	}
	re, err := compileAttrPattern(pattern)
	if err != nil {
		return out
	}

	chain := []*Object{o}
	if inherit {
		chain = append(chain, o.Ancestors()...)
	}
	// Farthest ancestor first so nearer objects override.
	for i := len(chain) - 1; i >= 0; i-- {
		for name, a := range chain[i].Attrs {
			if re.MatchString(name) {
				out[name] = a
			}
		}
	}
	return out
}

func compileAttrPattern(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?i)^")
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				b.WriteString(`\S*`)
				i++
			} else {
				b.WriteString("[^`\\s]*")
			}
		case '?':
			b.WriteString("[^`\\s]")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}
