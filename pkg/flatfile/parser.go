package flatfile

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/crystal-mush/pennport/pkg/gamedb"
)

type section int

const (
	secHeader section = iota
	secFlags
	secFlagAliases
	secPowers
	secPowerAliases
	secAttrs
	secAttrAliases
	secObjects
	secDone
)

var sectionNames = [...]string{
	"HEADER", "FLAGS", "FLAG_ALIASES", "POWERS", "POWER_ALIASES",
	"ATTRIBUTES", "ATTRIBUTE_ALIASES", "OBJECTS", "DONE",
}

func (s section) String() string {
	if int(s) < len(sectionNames) {
		return sectionNames[s]
	}
	return fmt.Sprintf("section(%d)", int(s))
}

const endOfDump = "***END OF DUMP***"

// TextDecoder turns an attribute value as stored in the dump into display
// text. The default leaves values untouched.
type TextDecoder func(string) string

// Option configures Parse.
type Option func(*parser)

// WithTextDecoder sets the decoder applied to attribute and lock values.
func WithTextDecoder(fn TextDecoder) Option {
	return func(p *parser) {
		if fn != nil {
			p.decode = fn
		}
	}
}

// cursor is the parser position. It is passed by value through the loop;
// each step returns the next cursor.
type cursor struct {
	section section
	flag    *gamedb.Flag    // open or reselected flag/power entry
	attr    *gamedb.AttrDef // open or reselected attribute template
	obj     gamedb.DBRef
	objLine Line
	inObj   bool
	lines   []Line
}

type parser struct {
	db     *gamedb.Database
	decode TextDecoder
}

// Parse reads a PennMUSH flatfile dump and returns the unlinked snapshot.
// Input that ends before the end-of-dump sentinel is accepted and marks
// the snapshot Truncated. Structural violations abort with a *SyntaxError.
func Parse(r io.Reader, opts ...Option) (*gamedb.Database, error) {
	p := &parser{
		db:     gamedb.NewDatabase(),
		decode: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(p)
	}

	lr := NewLineReader(r)
	c := cursor{section: secHeader}
	for c.section != secDone {
		text, err := lr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		ln, err := ParseLine(text)
		if err != nil {
			if c.section == secHeader {
				// free-form header text
				p.db.Header.Lines = append(p.db.Header.Lines, text)
				continue
			}
			var se *SyntaxError
			if errors.As(err, &se) {
				se.Line = lr.LineNo()
			}
			return nil, err
		}
		ln.LineNo = lr.LineNo()

		if c, err = p.step(c, ln); err != nil {
			return nil, err
		}
	}

	if c.section != secDone {
		p.db.Truncated = true
		if _, err := p.finish(c); err != nil {
			return nil, err
		}
	}
	return p.db, nil
}

func (p *parser) step(c cursor, ln Line) (cursor, error) {
	if next, ok := markerSection(ln); ok && next > c.section {
		c, err := p.finish(c)
		if err != nil {
			return c, err
		}
		c.section = next
		if next == secObjects && ln.Kind == KindNumber {
			p.db.Declared.Objects = int(ln.Num)
		}
		return c, nil
	}

	switch c.section {
	case secHeader:
		return p.header(c, ln)
	case secFlags, secPowers:
		return p.flags(c, ln)
	case secFlagAliases, secPowerAliases:
		return p.flagAliases(c, ln)
	case secAttrs:
		return p.attrDefs(c, ln)
	case secAttrAliases:
		return p.attrAliases(c, ln)
	case secObjects:
		return p.objects(c, ln)
	}
	return c, nil
}

// markerSection maps the section-opening markers to the section they open.
func markerSection(ln Line) (section, bool) {
	if !ln.Header {
		return 0, false
	}
	switch {
	case strings.HasPrefix(ln.Raw, "+FLAGS"):
		return secFlags, true
	case strings.HasPrefix(ln.Raw, "+POWER"):
		return secPowers, true
	case strings.HasPrefix(ln.Raw, "+ATTRIBUTES"):
		return secAttrs, true
	case ln.Raw[0] == markerTilde:
		return secObjects, true
	}
	return 0, false
}

// finish closes whatever the cursor has open: a catalog entry or an object.
func (p *parser) finish(c cursor) (cursor, error) {
	switch c.section {
	case secFlags, secPowers:
		if c.flag != nil {
			p.catalog(c.section)[c.flag.Name] = c.flag
		}
	case secAttrs:
		if c.attr != nil {
			p.db.AttrDefs[c.attr.Name] = c.attr
		}
	case secObjects:
		if c.inObj {
			obj, err := p.buildObject(c.obj, c.lines)
			if err != nil {
				return c, err
			}
			if !p.db.AddObject(obj) {
				return c, violation(c.objLine, "duplicate object %s", c.obj)
			}
		}
		c.inObj = false
		c.lines = c.lines[:0]
	}
	c.flag = nil
	c.attr = nil
	return c, nil
}

func (p *parser) catalog(s section) map[string]*gamedb.Flag {
	if s == secPowers || s == secPowerAliases {
		return p.db.Powers
	}
	return p.db.Flags
}

func (p *parser) header(c cursor, ln Line) (cursor, error) {
	p.db.Header.Lines = append(p.db.Header.Lines, ln.Raw)
	switch {
	case ln.Header && strings.HasPrefix(ln.Raw, "+V"):
		p.db.Header.Version = ln.Raw
	case ln.Depth == 0 && ln.Name == "dbversion":
		p.db.Header.DBVersion = int(ln.Num)
	case ln.Depth == 0 && ln.Name == "savedtime":
		p.db.Header.SavedTime = ln.Text()
	case ln.Depth == 0 && ln.Name == "flagcount":
		// some dumps omit the +FLAGS marker
		c.section = secFlags
		p.db.Declared.Flags = int(ln.Num)
	}
	return c, nil
}

func (p *parser) flags(c cursor, ln Line) (cursor, error) {
	switch {
	case ln.Header:
	case ln.Depth == 0 && ln.Name == "flagcount":
		if c.section == secFlags {
			p.db.Declared.Flags = int(ln.Num)
		} else {
			p.db.Declared.Powers = int(ln.Num)
		}
	case ln.Depth == 0 && ln.Name == "flagaliascount":
		c, _ = p.finish(c)
		if c.section == secFlags {
			p.db.Declared.FlagAliases = int(ln.Num)
		} else {
			p.db.Declared.PowerAlias = int(ln.Num)
		}
		c.section++
	case ln.Depth == 1 && ln.Name == "name":
		c, _ = p.finish(c)
		c.flag = &gamedb.Flag{Name: ln.Text()}
	case ln.Depth == 2:
		if c.flag == nil {
			return c, violation(ln, "%s field with no open entry", c.section)
		}
		switch ln.Name {
		case "letter":
			c.flag.Letter = ln.Text()
		case "type":
			c.flag.Types = gamedb.ParseNameSet(ln.Text())
		case "perms":
			c.flag.Perms = gamedb.ParseNameSet(ln.Text())
		case "negate_perms":
			c.flag.NegatePerms = gamedb.ParseNameSet(ln.Text())
		}
	case ln.Depth > 2:
		return c, violation(ln, "%s field nested too deep", c.section)
	}
	return c, nil
}

func (p *parser) flagAliases(c cursor, ln Line) (cursor, error) {
	switch {
	case ln.Header:
	case ln.Depth == 1 && ln.Name == "name":
		c.flag = p.catalog(c.section)[ln.Text()]
	case ln.Depth == 2 && ln.Name == "alias":
		if c.flag != nil {
			c.flag.Aliases = c.flag.Aliases.Add(ln.Text())
		}
	case ln.Depth > 2:
		return c, violation(ln, "%s field nested too deep", c.section)
	}
	return c, nil
}

func (p *parser) attrDefs(c cursor, ln Line) (cursor, error) {
	switch {
	case ln.Header:
	case ln.Depth == 0 && ln.Name == "attrcount":
		p.db.Declared.Attrs = int(ln.Num)
	case ln.Depth == 0 && ln.Name == "attraliascount":
		c, _ = p.finish(c)
		p.db.Declared.AttrAliases = int(ln.Num)
		c.section = secAttrAliases
	case ln.Depth == 1 && ln.Name == "name":
		c, _ = p.finish(c)
		c.attr = &gamedb.AttrDef{Name: strings.ToUpper(ln.Text()), Creator: gamedb.Nothing}
	case ln.Depth == 2:
		if c.attr == nil {
			return c, violation(ln, "attribute field with no open attribute")
		}
		switch ln.Name {
		case "flags":
			c.attr.Flags = gamedb.ParseNameSet(ln.Text())
		case "creator":
			c.attr.Creator = ln.Ref()
		case "data":
			c.attr.Data = ln.Text()
		}
	case ln.Depth > 2:
		return c, violation(ln, "attribute field nested too deep")
	}
	return c, nil
}

func (p *parser) attrAliases(c cursor, ln Line) (cursor, error) {
	switch {
	case ln.Header:
	case ln.Depth == 1 && ln.Name == "name":
		c.attr = p.db.AttrDefs[strings.ToUpper(ln.Text())]
	case ln.Depth == 2 && ln.Name == "alias":
		if c.attr != nil {
			c.attr.Aliases = c.attr.Aliases.Add(ln.Text())
		}
	case ln.Depth > 2:
		return c, violation(ln, "attribute alias field nested too deep")
	}
	return c, nil
}

func (p *parser) objects(c cursor, ln Line) (cursor, error) {
	switch {
	case ln.Header && strings.HasPrefix(ln.Raw, endOfDump):
		c, err := p.finish(c)
		if err != nil {
			return c, err
		}
		c.section = secDone
		return c, nil
	case ln.Header && ln.Raw[0] == markerObject:
		c, err := p.finish(c)
		if err != nil {
			return c, err
		}
		c.obj = ln.Ref()
		c.objLine = ln
		c.inObj = true
		return c, nil
	case ln.Header:
		return c, nil
	}

	if !c.inObj {
		return c, violation(ln, "object field before any object marker")
	}
	c.lines = append(c.lines, ln)
	return c, nil
}
