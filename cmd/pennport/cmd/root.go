package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/crystal-mush/pennport/pkg/config"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	conf *config.Config
	log  *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pennport",
	Short: "Inspect, validate and import PennMUSH flatfile dumps",
	Long: `pennport reads a PennMUSH flatfile dump (plain, gzip or zstd) and
either reports on it or migrates it into a destination world.

The import runs four phases: account identity, object skeleton,
relations and registration. Every run ends with one summary line.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		return setup(cmd)
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel its context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// reportedError is a failure the command already described to the user.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// printError writes err unless the command already reported it.
func printError(w io.Writer, err error) {
	var rep *reportedError
	if errors.As(err, &rep) {
		return
	}
	fmt.Fprintln(w, "Error:", err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (.yaml or key/value .conf)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log_level")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log_format (text or json)")
}

func setup(cmd *cobra.Command) error {
	c := config.Default()
	if configPath != "" {
		var err error
		if c, err = config.Load(configPath); err != nil {
			return err
		}
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if logFormat != "" {
		c.LogFormat = logFormat
	}
	if err := c.Validate(); err != nil {
		return err
	}
	conf = c
	log = c.Logger()
	log.SetOutput(cmd.ErrOrStderr())
	return nil
}
