package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/choice-experiment/internal/config"
	"github.com/danielpatrickdp/choice-experiment/internal/logging"
)

var (
	// Global flags; non-empty values override EXPERIMENT_* variables.
	flagProtocol  string
	flagLang      string
	flagDB        string
	flagCatalog   string
	flagLogLevel  string
	flagLogFormat string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "experiment",
	Short: "Intertemporal choice experiment controller",
	Long: `Runs the intertemporal choice experiment: a fixed 6x5 design or an adaptive
staircase with anomaly probes, followed by a short survey. Finished sessions are
written to the results sheet in one batch; failed batches are spooled for resubmission.

Configuration is read from EXPERIMENT_* environment variables; flags override them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagProtocol, "protocol", "", "experiment design: fixed or staircase (env EXPERIMENT_PROTOCOL)")
	pf.StringVar(&flagLang, "lang", "", "question language: ko or en (env EXPERIMENT_LANG)")
	pf.StringVar(&flagDB, "db", "", "SQLite database path (env EXPERIMENT_DB)")
	pf.StringVar(&flagCatalog, "catalog", "", "catalog YAML replacing the built-in one (env EXPERIMENT_CATALOG)")
	pf.StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error (env EXPERIMENT_LOG_LEVEL)")
	pf.StringVar(&flagLogFormat, "log-format", "", "json or console (env EXPERIMENT_LOG_FORMAT)")

	rootCmd.AddCommand(serveCmd, runCmd, replayCmd, resubmitCmd, inspectCmd, healthCmd)
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig() (config.Config, error) {
	c, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&c.Protocol, flagProtocol)
	override(&c.Lang, flagLang)
	override(&c.DB, flagDB)
	override(&c.Catalog, flagCatalog)
	override(&c.LogLevel, flagLogLevel)
	override(&c.LogFormat, flagLogFormat)
	if err := c.Validate(); err != nil {
		return config.Config{}, err
	}
	return c, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
