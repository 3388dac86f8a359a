package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/crystal-mush/pennport/pkg/flatfile"
	"github.com/crystal-mush/pennport/pkg/validate"
)

var (
	validateJSON  bool
	validateFix   string
	validateWatch bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <dump>",
	Short: "Check a dump for problems an import would trip over",
	Long: `Run the dump, integrity and catalog checks against a dump.

Fixable findings (dangling references, parent loops) can be repaired and
the result written to a new dump with --fix. With --watch the checks run
again whenever the dump file is rewritten.

Examples:
  pennport validate outdb.gz
  pennport validate outdb --json > report.json
  pennport validate outdb --fix fixed.db
  pennport validate outdb --watch`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if validateWatch {
			return watchDump(cmd.Context(), path, func() {
				if _, err := runValidate(cmd.OutOrStdout(), path); err != nil {
					log.WithError(err).Error("validate failed")
				}
			})
		}

		errs, err := runValidate(cmd.OutOrStdout(), path)
		if err != nil {
			return err
		}
		if errs > 0 {
			return fmt.Errorf("%s: %d unfixed errors", path, errs)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "print the report as JSON")
	validateCmd.Flags().StringVar(&validateFix, "fix", "", "apply every fixable finding and save the dump to this path")
	validateCmd.Flags().BoolVar(&validateWatch, "watch", false, "validate again whenever the dump changes")
	rootCmd.AddCommand(validateCmd)
}

// runValidate checks one dump and returns the number of unfixed errors.
func runValidate(w io.Writer, path string) (int, error) {
	db, err := loadDump(path)
	if err != nil {
		return 0, err
	}

	v := validate.New(db)
	v.Run()
	if validateFix != "" {
		fixed := 0
		for _, cat := range []validate.Category{validate.CatIntegrityError, validate.CatIntegrityWarn} {
			fixed += v.ApplyAll(cat)
		}
		if err := flatfile.Save(validateFix, db); err != nil {
			return 0, err
		}
		log.WithField("path", validateFix).WithField("fixed", fixed).Info("fixed dump saved")
	}

	report := validate.GenerateReport(v)
	report.Source = path
	if validateJSON {
		return report.Errors, report.WriteJSON(w)
	}
	return report.Errors, report.WriteText(w)
}

// watchDump calls fn once, then again each time path is written or
// replaced, until ctx is done.
func watchDump(ctx context.Context, path string, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	defer watcher.Close()

	// Watch the directory: atomic saves replace the file, which drops a
	// watch placed on the file itself.
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	log.WithField("path", path).Info("watching dump for changes")

	fn()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			log.WithField("op", event.Op.String()).Debug("dump changed")
			fn()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("dump watcher error")
		}
	}
}
