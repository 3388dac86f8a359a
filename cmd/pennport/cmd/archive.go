package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crystal-mush/pennport/pkg/archive"
)

var (
	restoreStore  string
	restoreLedger string
	restoreReport string
	restoreForce  bool
)

var archiveCmd = &cobra.Command{
	Use:   "archive [list|verify|restore]",
	Short: "Manage import archives",
	Long: `Import archives are written by "import --archive". Each one holds the
world store, the remap ledger and the JSON report of a run, with a
manifest of SHA-256 checksums.

Examples:
  pennport archive list backups/
  pennport archive verify backups/import-20240501-120000.tar.gz
  pennport archive restore backups/import-20240501-120000.tar.gz --store world.db`,
}

var archiveListCmd = &cobra.Command{
	Use:   "list <dir>",
	Short: "List archives, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		infos, err := archive.List(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, a := range infos {
			fmt.Fprintf(out, "%s  %-25s %8d objects %6d accounts  %s\n",
				a.Timestamp, a.Source, a.Objects, a.Accounts, a.Filename)
		}
		return nil
	},
}

var archiveVerifyCmd = &cobra.Command{
	Use:   "verify <archive>",
	Short: "Check every file in an archive against its manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := archive.Verify(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d files, run %s)\n", args[0], len(m.Files), m.Run)
		return nil
	},
}

var archiveRestoreCmd = &cobra.Command{
	Use:   "restore <archive>",
	Short: "Verify an archive and copy its files into place",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if restoreStore == "" && restoreLedger == "" && restoreReport == "" {
			return fmt.Errorf("nothing to restore: pass --store, --ledger or --report")
		}
		res, err := archive.Restore(archive.RestoreParams{
			ArchivePath: args[0],
			StoreDest:   restoreStore,
			LedgerDest:  restoreLedger,
			ReportDest:  restoreReport,
			Force:       restoreForce,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restored %d files from %s\n", res.FilesRestored, res.Manifest.Source)
		return nil
	},
}

func init() {
	archiveRestoreCmd.Flags().StringVar(&restoreStore, "store", "", "destination for the world store")
	archiveRestoreCmd.Flags().StringVar(&restoreLedger, "ledger", "", "destination for the remap ledger")
	archiveRestoreCmd.Flags().StringVar(&restoreReport, "report", "", "destination for the JSON report")
	archiveRestoreCmd.Flags().BoolVar(&restoreForce, "force", false, "overwrite existing files")

	archiveCmd.AddCommand(archiveListCmd, archiveVerifyCmd, archiveRestoreCmd)
	rootCmd.AddCommand(archiveCmd)
}
