package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/eringen/readdash"
)

var (
	v      = viper.New()
	cfg    readdash.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "readdash",
	Short: "Dashboard for the reading-time estimator's usage statistics",
	Long: `readdash fetches usage statistics from a reading-time estimator service
and renders them as a dashboard: totals, averages, a 30-day trend and
sample text usage.

Configuration is read from readdash.yaml (. or ./configs), READDASH_*
environment variables and flags, in increasing order of precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = readdash.LoadConfig(v)
		if err != nil {
			return err
		}
		logger, err = readdash.NewLogger(cfg.Log)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("db", "data/readdash.db", "SQLite settings database path")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "console", "log format: json, console")

	cobra.CheckErr(v.BindPFlag("database_path", flags.Lookup("db")))
	cobra.CheckErr(v.BindPFlag("log.level", flags.Lookup("log-level")))
	cobra.CheckErr(v.BindPFlag("log.format", flags.Lookup("log-format")))
}
