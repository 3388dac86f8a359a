package flatfile

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/natefinch/atomic"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/crystal-mush/pennport/pkg/gamedb"
)

// Write emits the snapshot in PennMUSH flatfile form. Catalog entries,
// objects, attributes and locks are written in sorted order so output is
// stable for a given snapshot.
func Write(w io.Writer, db *gamedb.Database) error {
	wr := &writer{w: w}

	version := db.Header.Version
	if version == "" {
		version = "+V-1"
	}
	wr.writef("%s\n", version)
	if db.Header.DBVersion != 0 {
		wr.writef("dbversion %d\n", db.Header.DBVersion)
	}
	if db.Header.SavedTime != "" {
		wr.writef("savedtime %s\n", quoteString(db.Header.SavedTime))
	}

	wr.writef("+FLAGS LIST\n")
	wr.writeFlags(db.Flags)
	wr.writef("+POWER LIST\n")
	wr.writeFlags(db.Powers)
	wr.writef("+ATTRIBUTES LIST\n")
	wr.writeAttrDefs(db.AttrDefs)

	wr.writef("~%d\n", len(db.Objects))
	for _, id := range db.SortedIDs() {
		wr.writeObject(db.Objects[id])
		if wr.err != nil {
			return fmt.Errorf("writing object %s: %w", id, wr.err)
		}
	}
	wr.writef("%s\n", endOfDump)

	return wr.err
}

// Save writes the snapshot to path atomically, encoded as latin-1 the way
// the server writes its own dumps. Runes latin-1 cannot hold become "?".
func Save(path string, db *gamedb.Database) error {
	var buf bytes.Buffer
	enc := transform.NewWriter(&buf, encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()))
	if err := Write(enc, db); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("save flatfile: encode: %w", err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("save flatfile: %w", err)
	}
	return nil
}

type writer struct {
	w   io.Writer
	err error
}

func (wr *writer) writef(format string, args ...interface{}) {
	if wr.err != nil {
		return
	}
	_, wr.err = fmt.Fprintf(wr.w, format, args...)
}

func (wr *writer) writeFlags(catalog map[string]*gamedb.Flag) {
	names := sortedKeys(catalog)
	wr.writef("flagcount %d\n", len(names))
	aliases := 0
	for _, name := range names {
		f := catalog[name]
		aliases += len(f.Aliases)
		wr.writef(" name %s\n", quoteString(f.Name))
		wr.writef("  letter %s\n", quoteString(f.Letter))
		wr.writef("  type %s\n", quoteString(f.Types.String()))
		wr.writef("  perms %s\n", quoteString(f.Perms.String()))
		wr.writef("  negate_perms %s\n", quoteString(f.NegatePerms.String()))
	}
	wr.writef("flagaliascount %d\n", aliases)
	for _, name := range names {
		f := catalog[name]
		if len(f.Aliases) == 0 {
			continue
		}
		wr.writef(" name %s\n", quoteString(f.Name))
		for _, alias := range f.Aliases {
			wr.writef("  alias %s\n", quoteString(alias))
		}
	}
}

func (wr *writer) writeAttrDefs(defs map[string]*gamedb.AttrDef) {
	names := sortedKeys(defs)
	wr.writef("attrcount %d\n", len(names))
	aliases := 0
	for _, name := range names {
		a := defs[name]
		aliases += len(a.Aliases)
		wr.writef(" name %s\n", quoteString(a.Name))
		wr.writef("  flags %s\n", quoteString(a.Flags.String()))
		wr.writef("  creator %s\n", a.Creator)
		wr.writef("  data %s\n", quoteString(a.Data))
	}
	wr.writef("attraliascount %d\n", aliases)
	for _, name := range names {
		a := defs[name]
		if len(a.Aliases) == 0 {
			continue
		}
		wr.writef(" name %s\n", quoteString(a.Name))
		for _, alias := range a.Aliases {
			wr.writef("  alias %s\n", quoteString(alias))
		}
	}
}

func (wr *writer) writeObject(obj *gamedb.Object) {
	wr.writef("!%d\n", int(obj.ID))
	wr.writef("name %s\n", quoteString(obj.Name))
	wr.writef("location %s\n", obj.Location)
	wr.writef("exits %s\n", obj.Exits)
	wr.writef("parent %s\n", obj.Parent)

	locks := sortedKeys(obj.Locks)
	wr.writef("lockcount %d\n", len(locks))
	for _, name := range locks {
		l := obj.Locks[name]
		wr.writef(" type %s\n", quoteString(l.Type))
		wr.writef("  creator %s\n", l.Creator)
		wr.writef("  flags %s\n", quoteString(l.Flags.String()))
		wr.writef("  derefs %d\n", l.Derefs)
		wr.writef("  key %s\n", quoteString(l.Key))
	}

	wr.writef("owner %s\n", obj.Owner)
	wr.writef("zone %s\n", obj.Zone)
	wr.writef("pennies %d\n", obj.Pennies)
	wr.writef("type %d\n", int(obj.Type))
	wr.writef("flags %s\n", quoteString(obj.Flags.String()))
	wr.writef("powers %s\n", quoteString(obj.Powers.String()))
	wr.writef("warnings %s\n", quoteString(obj.Warnings.String()))
	wr.writef("created %d\n", obj.Created)
	wr.writef("modified %d\n", obj.Modified)

	attrs := sortedKeys(obj.Attrs)
	wr.writef("attrcount %d\n", len(attrs))
	for _, name := range attrs {
		a := obj.Attrs[name]
		wr.writef(" name %s\n", quoteString(a.Name))
		wr.writef("  owner %s\n", a.Owner)
		wr.writef("  flags %s\n", quoteString(a.Flags.String()))
		wr.writef("  derefs %d\n", a.Derefs)
		wr.writef("  value %s\n", quoteString(a.Value))
	}
}

// quoteString produces a quoted value. Only the quote and the backslash
// need escaping; newlines are written raw inside the quotes.
func quoteString(s string) string {
	var buf strings.Builder
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			buf.WriteByte('\\')
			buf.WriteRune(r)
		case '\r':
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
	return buf.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
