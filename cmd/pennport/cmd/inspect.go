package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/crystal-mush/pennport/pkg/flatfile"
	"github.com/crystal-mush/pennport/pkg/gamedb"
)

var (
	showPlayers   bool
	showRooms     bool
	showObj       int
	showAttrStats bool
	rewritePath   string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <dump>",
	Short: "Print a summary of a dump",
	Long: `Load a dump and print its header, catalog sizes and object counts.

Examples:
  pennport inspect outdb.gz
  pennport inspect outdb --players --rooms
  pennport inspect outdb --obj 12
  pennport inspect outdb.zst --rewrite clean.db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := loadDump(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		printSummary(out, db)
		if showPlayers {
			fmt.Fprintln(out)
			printPlayers(out, db)
		}
		if showRooms {
			fmt.Fprintln(out)
			printRooms(out, db)
		}
		if showObj >= 0 {
			fmt.Fprintln(out)
			printObject(out, db, gamedb.DBRef(showObj))
		}
		if showAttrStats {
			fmt.Fprintln(out)
			printAttrStats(out, db)
		}
		if rewritePath != "" {
			if err := flatfile.Save(rewritePath, db); err != nil {
				return err
			}
			log.WithField("path", rewritePath).Info("dump rewritten")
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&showPlayers, "players", false, "list all player objects")
	inspectCmd.Flags().BoolVar(&showRooms, "rooms", false, "list room summary")
	inspectCmd.Flags().IntVar(&showObj, "obj", -1, "show details for one object by dbref")
	inspectCmd.Flags().BoolVar(&showAttrStats, "attrstats", false, "show attribute usage statistics")
	inspectCmd.Flags().StringVar(&rewritePath, "rewrite", "", "write the parsed dump back out to this path")
	rootCmd.AddCommand(inspectCmd)
}

// loadDump parses and links a dump, logging how long it took.
func loadDump(path string) (*gamedb.Database, error) {
	start := time.Now()
	db, err := flatfile.Load(path)
	if err != nil {
		return nil, err
	}
	entry := log.WithFields(logrus.Fields{
		"path":    path,
		"objects": len(db.Objects),
		"elapsed": time.Since(start).Round(time.Millisecond),
	})
	if db.Truncated {
		entry.Warn("dump ended before the end-of-dump marker")
	} else {
		entry.Debug("dump loaded")
	}
	return db, nil
}

func printSummary(w io.Writer, db *gamedb.Database) {
	fmt.Fprintln(w, "=== DUMP SUMMARY ===")
	fmt.Fprintf(w, "Version:        %s\n", db.Header.Version)
	fmt.Fprintf(w, "DB version:     %d\n", db.Header.DBVersion)
	if db.Header.SavedTime != "" {
		fmt.Fprintf(w, "Saved:          %s\n", db.Header.SavedTime)
	}
	fmt.Fprintf(w, "Declared size:  %d objects\n", db.Declared.Objects)
	fmt.Fprintf(w, "Loaded objects: %d\n", len(db.Objects))
	fmt.Fprintf(w, "Flags:          %d\n", len(db.Flags))
	fmt.Fprintf(w, "Powers:         %d\n", len(db.Powers))
	fmt.Fprintf(w, "Attr defs:      %d\n", len(db.AttrDefs))
	fmt.Fprintf(w, "Truncated:      %v\n", db.Truncated)

	typeCounts := make(map[gamedb.ObjectType]int)
	totalAttrs := 0
	for _, obj := range db.Objects {
		typeCounts[obj.Type]++
		totalAttrs += len(obj.Attrs)
	}

	fmt.Fprintln(w, "\n--- Object Counts by Type ---")
	types := []gamedb.ObjectType{
		gamedb.TypeRoom, gamedb.TypeThing, gamedb.TypeExit,
		gamedb.TypePlayer, gamedb.TypeGarbage,
	}
	for _, t := range types {
		if c, ok := typeCounts[t]; ok {
			fmt.Fprintf(w, "  %-10s %d\n", t.String(), c)
		}
	}
	fmt.Fprintf(w, "\nTotal attributes across all objects: %d\n", totalAttrs)
}

func printPlayers(w io.Writer, db *gamedb.Database) {
	fmt.Fprintln(w, "=== PLAYERS ===")
	fmt.Fprintf(w, "%-8s %-25s %-10s %s\n", "DBRef", "Name", "Location", "Last Modified")
	fmt.Fprintln(w, strings.Repeat("-", 75))

	players := db.OfType(gamedb.TypePlayer)
	for _, p := range players {
		fmt.Fprintf(w, "%-8s %-25s %-10s %s\n", p.ID, truncate(p.Name, 25), p.Location, stamp(p.Modified))
	}
	fmt.Fprintf(w, "\nTotal players: %d\n", len(players))
}

func printRooms(w io.Writer, db *gamedb.Database) {
	fmt.Fprintln(w, "=== ROOMS (first 50) ===")
	fmt.Fprintf(w, "%-8s %-40s %8s %8s\n", "DBRef", "Name", "Contents", "Exits")
	fmt.Fprintln(w, strings.Repeat("-", 68))

	rooms := db.OfType(gamedb.TypeRoom)
	limit := min(50, len(rooms))
	for _, r := range rooms[:limit] {
		fmt.Fprintf(w, "%-8s %-40s %8d %8d\n", r.ID, truncate(r.Name, 40),
			len(db.Contents(r.ID)), len(db.ExitsIn(r.ID)))
	}
	fmt.Fprintf(w, "\nTotal rooms: %d (showing first %d)\n", len(rooms), limit)
}

func printObject(w io.Writer, db *gamedb.Database, ref gamedb.DBRef) {
	obj := db.ByID(ref)
	if obj == nil {
		fmt.Fprintf(w, "Object %s not found in dump\n", ref)
		return
	}

	fmt.Fprintf(w, "=== OBJECT %s ===\n", ref)
	fmt.Fprintf(w, "Name:       %s\n", obj.Name)
	fmt.Fprintf(w, "Type:       %s\n", obj.Type)
	fmt.Fprintf(w, "Location:   %s\n", obj.Location)
	fmt.Fprintf(w, "Zone:       %s\n", obj.Zone)
	fmt.Fprintf(w, "Exits:      %s\n", obj.Exits)
	fmt.Fprintf(w, "Owner:      %s\n", obj.Owner)
	fmt.Fprintf(w, "Parent:     %s\n", obj.Parent)
	fmt.Fprintf(w, "Pennies:    %d\n", obj.Pennies)
	fmt.Fprintf(w, "Flags:      %s\n", obj.Flags)
	fmt.Fprintf(w, "Powers:     %s\n", obj.Powers)
	fmt.Fprintf(w, "Created:    %s\n", stamp(obj.Created))
	fmt.Fprintf(w, "Modified:   %s\n", stamp(obj.Modified))

	if len(obj.Locks) > 0 {
		fmt.Fprintf(w, "\n--- Locks (%d) ---\n", len(obj.Locks))
		for _, name := range sortedNames(obj.Locks) {
			fmt.Fprintf(w, "  %s = %s\n", name, obj.Locks[name].Key)
		}
	}

	fmt.Fprintf(w, "\n--- Attributes (%d) ---\n", len(obj.Attrs))
	for _, name := range sortedNames(obj.Attrs) {
		attr := obj.Attrs[name]
		fmt.Fprintf(w, "  %s [%s] = %s\n", name, attr.Owner, truncate(attr.Value, 120))
	}
}

func printAttrStats(w io.Writer, db *gamedb.Database) {
	fmt.Fprintln(w, "=== ATTRIBUTE STATISTICS ===")

	usage := make(map[string]int)
	for _, obj := range db.Objects {
		for name := range obj.Attrs {
			usage[name]++
		}
	}

	type attrCount struct {
		name  string
		count int
	}
	counts := make([]attrCount, 0, len(usage))
	for name, count := range usage {
		counts = append(counts, attrCount{name, count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].name < counts[j].name
	})

	fmt.Fprintf(w, "%-30s %-8s %s\n", "Name", "Std", "Usage Count")
	fmt.Fprintln(w, strings.Repeat("-", 55))
	limit := min(50, len(counts))
	for _, c := range counts[:limit] {
		_, std := db.AttrDefs[c.name]
		fmt.Fprintf(w, "%-30s %-8v %d\n", truncate(c.name, 30), std, c.count)
	}
	fmt.Fprintf(w, "\nTotal unique attributes in use: %d\n", len(usage))
}

func stamp(unix int64) string {
	if unix <= 0 {
		return "never"
	}
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
