package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/crystal-mush/pennport/pkg/archive"
	"github.com/crystal-mush/pennport/pkg/boltstore"
	"github.com/crystal-mush/pennport/pkg/events"
	"github.com/crystal-mush/pennport/pkg/gamedb"
	"github.com/crystal-mush/pennport/pkg/importer"
	"github.com/crystal-mush/pennport/pkg/ledger"
	"github.com/crystal-mush/pennport/pkg/memstore"
	"github.com/crystal-mush/pennport/pkg/validate"
)

var (
	importDryRun  bool
	importStore   string
	importLedger  string
	importReportF string
	importMetrics string
	importStrict  bool
	importArchive string
)

var importCmd = &cobra.Command{
	Use:   "import <dump>",
	Short: "Migrate a dump into a destination world",
	Long: `Import a dump into an empty destination world.

Accounts are built from the core code parent's account roots, then every
object is created, wired to its relations and registered. A run that
fails leaves what it created in place and exits non-zero.

Examples:
  pennport import outdb.gz --dry-run
  pennport import outdb.gz --store world.db --ledger remap.sqlite
  pennport import outdb.gz --report import.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]
		if importStore != "" {
			conf.StorePath = importStore
		}
		if importLedger != "" {
			conf.LedgerPath = importLedger
		}
		if importMetrics != "" {
			conf.MetricsFile = importMetrics
		}

		db, err := loadDump(path)
		if err != nil {
			return err
		}
		if importStrict {
			v := validate.New(db)
			v.Run()
			if n := v.Errors(); n > 0 {
				return fmt.Errorf("%s: %d validation errors; run validate for details", path, n)
			}
		}

		var store importer.Store
		var bs *boltstore.Store
		if importDryRun {
			store = memstore.New()
			log.Info("dry run: importing into memory")
		} else {
			bs, err = boltstore.Open(conf.StorePath, boltstore.WithLogger(log))
			if err != nil {
				return err
			}
			defer bs.Close()
			store = bs
		}

		reg := prometheus.NewRegistry()
		bus := events.NewBus()
		bus.SubscribeGlobal(events.SubscriberFunc(func(ev events.Event) {
			entry := log.WithFields(logrus.Fields{"event": ev.Type.String(), "phase": ev.Phase})
			if ev.Legacy != gamedb.Nothing {
				entry = entry.WithField("legacy", ev.Legacy)
			}
			entry.Debug(ev.Text)
		}))

		renames := &renameWatch{log: log, renamed: make(map[string]string)}
		bus.Subscribe(events.EvExitRenamed, renames)
		defer bus.Unsubscribe(events.EvExitRenamed, renames)

		opts := []importer.Option{
			importer.WithConfig(conf),
			importer.WithLogger(log),
			importer.WithMetrics(importer.NewMetrics(reg)),
			importer.WithBus(bus),
			importer.WithReporter(importer.ReporterFunc(func(msg string) {
				fmt.Fprintln(cmd.OutOrStdout(), msg)
			})),
		}
		var run string
		var l *ledger.Ledger
		if conf.LedgerPath != "" {
			l, err = ledger.Open(conf.LedgerPath)
			if err != nil {
				return err
			}
			defer l.Close()
			run = l.Run()
			opts = append(opts, importer.WithLedger(l))
			log.WithFields(logrus.Fields{"path": l.Path(), "run": run}).Info("recording remap ledger")
		}

		res := importer.New(db, store, opts...).Run(ctx)

		if importReportF != "" {
			r := newImportReport(path, run, res)
			r.RenamedExits = renames.renamed
			if err := writeImportReport(importReportF, r); err != nil {
				log.WithError(err).Error("import report not written")
			}
		}
		if conf.MetricsFile != "" {
			if err := prometheus.WriteToTextfile(conf.MetricsFile, reg); err != nil {
				log.WithError(err).Error("metrics not written")
			}
		}
		if res.Err != nil {
			// The reporter has printed the failure line.
			return &reportedError{err: res.Err}
		}

		if importArchive != "" {
			if bs == nil {
				log.Warn("dry run: nothing to archive")
				return nil
			}
			params := archive.Params{
				StoreSnapshot: bs.Backup,
				ReportPath:    importReportF,
				Dir:           importArchive,
				Source:        path,
				Run:           run,
				Objects:       res.Objects,
				Accounts:      res.Accounts,
			}
			if l != nil {
				params.LedgerPath = l.Path()
				params.LedgerCheckpoint = func() error { return l.Checkpoint(ctx) }
			}
			archivePath, err := archive.Create(params)
			if err != nil {
				return err
			}
			log.WithField("path", archivePath).Info("import archived")
		}
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "import into memory and discard the result")
	importCmd.Flags().StringVar(&importStore, "store", "", "override store_path")
	importCmd.Flags().StringVar(&importLedger, "ledger", "", "override ledger_path")
	importCmd.Flags().StringVar(&importReportF, "report", "", "write a JSON report with the remap table to this path")
	importCmd.Flags().StringVar(&importMetrics, "metrics", "", "override metrics_file")
	importCmd.Flags().BoolVar(&importStrict, "strict", false, "refuse to import a dump with validation errors")
	importCmd.Flags().StringVar(&importArchive, "archive", "", "after a successful run, bundle store, ledger and report into this directory")
	rootCmd.AddCommand(importCmd)
}

type importReport struct {
	Source      string         `json:"source"`
	Run         string         `json:"run,omitempty"`
	DryRun      bool           `json:"dry_run"`
	Phase       importer.Phase `json:"phase"`
	Error       string         `json:"error,omitempty"`
	Accounts    int            `json:"accounts"`
	Objects     int            `json:"objects"`
	Relations   int            `json:"relations"`
	ExitRenames int            `json:"exit_renames"`
	// RenamedExits maps each renamed exit's legacy ref to its final name.
	RenamedExits map[string]string    `json:"renamed_exits,omitempty"`
	Unassigned   uuid.UUID            `json:"unassigned"`
	Remap        map[string]uuid.UUID `json:"remap"`
	Owners       map[string]uuid.UUID `json:"owners"`
}

func newImportReport(source, run string, res *importer.Result) *importReport {
	r := &importReport{
		Source:      source,
		Run:         run,
		DryRun:      importDryRun,
		Phase:       res.Phase,
		Accounts:    res.Accounts,
		Objects:     res.Objects,
		Relations:   res.Relations,
		ExitRenames: res.ExitRenames,
		Unassigned:  res.State.Unassigned,
		Remap:       make(map[string]uuid.UUID, len(res.State.LegacyToNew)),
		Owners:      make(map[string]uuid.UUID, len(res.State.AccountsByLegacyOwner)),
	}
	if res.Err != nil {
		r.Error = res.Err.Error()
	}
	for ref, id := range res.State.LegacyToNew {
		r.Remap[ref.String()] = id
	}
	for ref, id := range res.State.AccountsByLegacyOwner {
		r.Owners[ref.String()] = id
	}
	return r
}

func writeImportReport(path string, r *importReport) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode import report: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write import report: %w", err)
	}
	log.WithField("path", path).Info("import report written")
	return nil
}

// renameWatch logs exit renames and keeps the last name given to each exit.
type renameWatch struct {
	log     logrus.FieldLogger
	renamed map[string]string
}

func (w *renameWatch) Receive(ev events.Event) {
	w.renamed[ev.Legacy.String()] = ev.Text
	w.log.WithFields(logrus.Fields{"legacy": ev.Legacy, "name": ev.Text}).Info("exit renamed to clear a name clash")
}

func (w *renameWatch) Closed() bool { return false }
