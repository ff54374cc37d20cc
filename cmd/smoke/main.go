package main

import (
	"fmt"
	"io"
	"os"

	_ "covidsql/adapters/excel"
	"covidsql/adapters/postgres"
	"covidsql/internal"
	"covidsql/internal/config"
	"covidsql/internal/probe"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var root string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Smoke test for the covid-sql data environment",
		Long: `Check that the data environment is usable: report the Go runtime, import the
frame library, and preview the first 3 rows of each expected CSV file.

Files are looked up in the current directory unless --root or SMOKE_ROOT is set.
Missing files are reported and skipped; a missing frame format aborts the run.
If DATABASE_URL is set, the database server and dataset tables are checked too.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dotenvErr := godotenv.Load()

			var overrides []config.Override
			if cmd.Flags().Changed("root") {
				overrides = append(overrides, config.WithRoot(root))
			}
			cfg, err := config.Load(overrides...)
			if err != nil {
				return err
			}

			logger := newLogger(cfg, verbose, cmd.ErrOrStderr())
			if dotenvErr != nil {
				logger.Debug("no .env file loaded, using process environment: %v", dotenvErr)
			} else {
				logger.Info("loaded environment from .env")
			}

			p := probe.New(cfg, cmd.OutOrStdout(),
				probe.WithLogger(logger),
				probe.WithDatabaseOpener(postgres.Connect),
			)
			return p.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "directory the expected files are resolved against (default: working directory)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log diagnostics to stderr at DEBUG level")

	return cmd
}

func newLogger(cfg *config.Config, verbose bool, w io.Writer) *internal.Logger {
	logger := internal.NewLogger(internal.ParseLogLevel(cfg.Logging.Level), w)
	if verbose {
		logger.SetLevel(internal.LogLevelDebug)
	}
	return logger
}
